// Package grpc implements the gRPC transport for mediai.
//
// The service mediai.v1.Conversation mirrors transport.Conversation. Messages
// are the JSON types from the message package, carried with a JSON codec
// registered under the "json" content-subtype, so no generated stubs are
// needed. A failed call returns a status error with the error kind in the
// "mediai-error-kind" trailer and the session notice in "mediai-notice-bin".
package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/mediai/internal/config"
	"github.com/nadzzz/mediai/internal/conversation"
	"github.com/nadzzz/mediai/internal/dispatch"
	"github.com/nadzzz/mediai/internal/message"
	"github.com/nadzzz/mediai/internal/transport"
)

const (
	serviceName = "mediai.v1.Conversation"

	// maxMessageBytes fits a 25 MB recording after base64 and a session
	// view carrying every synthesized clip.
	maxMessageBytes = 64 << 20

	trailerKind   = "mediai-error-kind"
	trailerNotice = "mediai-notice-bin"
)

// codecName is the gRPC content-subtype of the JSON codec.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Empty is the request of calls that take no arguments.
type Empty struct{}

// SubmitVoiceRequest carries a recording and its MIME type.
type SubmitVoiceRequest struct {
	Audio       []byte `json:"audio"`
	ContentType string `json:"content_type"`
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*transport.Conversation)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSession", Handler: unary("GetSession", func(ctx context.Context, conv transport.Conversation, _ *Empty) (message.SessionView, error) {
			return conv.Session(ctx)
		})},
		{MethodName: "SubmitText", Handler: unary("SubmitText", func(ctx context.Context, conv transport.Conversation, req *message.SubmitTextRequest) (message.SessionView, error) {
			if strings.TrimSpace(req.Text) == "" {
				return message.SessionView{}, status.Error(codes.InvalidArgument, "text is required")
			}
			return conv.SubmitText(context.WithoutCancel(ctx), req.Text)
		})},
		{MethodName: "SubmitVoice", Handler: unary("SubmitVoice", func(ctx context.Context, conv transport.Conversation, req *SubmitVoiceRequest) (message.SessionView, error) {
			if len(req.Audio) == 0 {
				return message.SessionView{}, status.Error(codes.InvalidArgument, "empty recording")
			}
			return conv.SubmitVoice(context.WithoutCancel(ctx), req.Audio, req.ContentType)
		})},
		{MethodName: "Reset", Handler: unary("Reset", func(ctx context.Context, conv transport.Conversation, _ *Empty) (message.SessionView, error) {
			return conv.Reset(ctx)
		})},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "mediai/v1/conversation.proto",
}

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
}

// New creates a new gRPC transport from config.
func New(cfg config.GRPCConfig) *Transport {
	return &Transport{port: cfg.Port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// NewServer returns a gRPC server with the conversation service registered.
func NewServer(conv transport.Conversation) *grpc.Server {
	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMessageBytes),
		grpc.MaxSendMsgSize(maxMessageBytes),
		grpc.ChainUnaryInterceptor(logUnary),
	)
	s.RegisterService(&serviceDesc, conv)
	return s
}

// Listen starts the gRPC server and serves the conversation.
func (t *Transport) Listen(ctx context.Context, conv transport.Conversation) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	t.server = NewServer(conv)

	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// unary adapts a conversation call to a grpc.MethodHandler.
func unary[Req any](method string, call func(context.Context, transport.Conversation, *Req) (message.SessionView, error)) grpc.MethodHandler {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		conv := srv.(transport.Conversation)
		handler := func(ctx context.Context, req any) (any, error) {
			view, err := call(ctx, conv, req.(*Req))
			if err != nil {
				return nil, toStatus(ctx, view, err)
			}
			return &view, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	var req Empty
	if err := stream.RecvMsg(&req); err != nil {
		return err
	}
	views, err := srv.(transport.Conversation).Watch(stream.Context())
	if err != nil {
		return toStatus(stream.Context(), message.SessionView{}, err)
	}
	for view := range views {
		if err := stream.SendMsg(&view); err != nil {
			return err
		}
	}
	return nil
}

// toStatus maps a conversation error to a gRPC status and attaches the
// error kind and session notice as trailers.
func toStatus(ctx context.Context, view message.SessionView, err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	md := metadata.MD{}
	if kind := dispatch.KindOf(err); kind != "" {
		md.Set(trailerKind, string(kind))
	}
	if view.Notice != "" {
		md.Set(trailerNotice, view.Notice)
	}
	if len(md) > 0 {
		if terr := grpc.SetTrailer(ctx, md); terr != nil {
			slog.Debug("grpc set trailer", "error", terr)
		}
	}

	return status.Error(codeFor(err), err.Error())
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, conversation.ErrBusy):
		return codes.FailedPrecondition
	case errors.Is(err, conversation.ErrStale):
		return codes.Aborted
	case dispatch.KindOf(err) == dispatch.KindRecognition:
		return codes.InvalidArgument
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case dispatch.KindOf(err) != "":
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	slog.Debug("grpc request",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}
