package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nadzzz/mediai/internal/conversation"
	"github.com/nadzzz/mediai/internal/dispatch"
	"github.com/nadzzz/mediai/internal/message"
)

// Client is a transport.Conversation served by a remote mediai over gRPC.
// Errors are translated back, so errors.Is(err, conversation.ErrBusy) and
// dispatch.KindOf behave as they do in-process.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a mediai gRPC server at addr (host:port) without TLS.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.CallContentSubtype(codecName),
		grpc.MaxCallRecvMsgSize(maxMessageBytes),
		grpc.MaxCallSendMsgSize(maxMessageBytes),
	))
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Session returns the current view.
func (c *Client) Session(ctx context.Context) (message.SessionView, error) {
	var view message.SessionView
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/GetSession", &Empty{}, &view); err != nil {
		return message.SessionView{}, fromStatus(err, nil)
	}
	return view, nil
}

// SubmitText runs one turn for typed input.
func (c *Client) SubmitText(ctx context.Context, text string) (message.SessionView, error) {
	return c.invoke(ctx, "SubmitText", &message.SubmitTextRequest{Text: text})
}

// SubmitVoice runs one turn for a recording.
func (c *Client) SubmitVoice(ctx context.Context, audio []byte, contentType string) (message.SessionView, error) {
	return c.invoke(ctx, "SubmitVoice", &SubmitVoiceRequest{Audio: audio, ContentType: contentType})
}

// Reset discards the transcript.
func (c *Client) Reset(ctx context.Context) (message.SessionView, error) {
	return c.invoke(ctx, "Reset", &Empty{})
}

// Watch streams the session view after every change until ctx is done or
// the server goes away.
func (c *Client) Watch(ctx context.Context) (<-chan message.SessionView, error) {
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], "/"+serviceName+"/Watch")
	if err != nil {
		return nil, fromStatus(err, nil)
	}
	if err := stream.SendMsg(&Empty{}); err != nil {
		return nil, fromStatus(err, nil)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fromStatus(err, nil)
	}

	out := make(chan message.SessionView, 1)
	go func() {
		defer close(out)
		for {
			var view message.SessionView
			if err := stream.RecvMsg(&view); err != nil {
				if ctx.Err() == nil {
					slog.Debug("grpc watch ended", "error", err)
				}
				return
			}
			// Keep only the newest view when the reader lags.
			select {
			case <-out:
			default:
			}
			select {
			case out <- view:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, req any) (message.SessionView, error) {
	var (
		view    message.SessionView
		trailer metadata.MD
	)
	err := c.conn.Invoke(ctx, "/"+serviceName+"/"+method, req, &view, grpc.Trailer(&trailer))
	if err != nil {
		return c.sessionAfter(ctx, trailer), fromStatus(err, trailer)
	}
	return view, nil
}

// sessionAfter fetches the view following a failed call. When the server
// cannot be reached again only the notice from the trailer is returned.
func (c *Client) sessionAfter(ctx context.Context, md metadata.MD) message.SessionView {
	view, err := c.Session(ctx)
	if err == nil {
		return view
	}
	slog.Debug("grpc session after failure", "error", err)
	if vals := md.Get(trailerNotice); len(vals) > 0 {
		return message.SessionView{Notice: vals[0]}
	}
	return message.SessionView{}
}

// fromStatus turns a status error back into the conversation error it
// came from.
func fromStatus(err error, md metadata.MD) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	if kinds := md.Get(trailerKind); len(kinds) > 0 {
		msg := strings.TrimPrefix(st.Message(), kinds[0]+" failed: ")
		return &dispatch.TurnError{Kind: dispatch.ErrorKind(kinds[0]), Err: errors.New(msg)}
	}
	switch st.Code() {
	case codes.FailedPrecondition:
		return conversation.ErrBusy
	case codes.Aborted:
		return conversation.ErrStale
	}
	return err
}
