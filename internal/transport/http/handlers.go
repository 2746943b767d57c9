package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/nadzzz/mediai/internal/conversation"
	"github.com/nadzzz/mediai/internal/dispatch"
	"github.com/nadzzz/mediai/internal/message"
	"github.com/nadzzz/mediai/internal/transport"
)

type handler struct {
	conv           transport.Conversation
	originPatterns []string
}

// getSession returns the current conversation.
//
// @Summary     Get the conversation
// @Description Returns every turn with its synthesized audio, the current step and the last notice.
// @Tags        session
// @Produce     json
// @Success     200  {object}  message.SessionView
// @Router      /api/session [get]
func (h *handler) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.conv.Session(r.Context())
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// resetSession discards the transcript.
//
// @Summary     Start over
// @Description Discards the transcript and reseeds the greeting. A turn still in flight is dropped when it finishes.
// @Tags        session
// @Produce     json
// @Success     200  {object}  message.SessionView
// @Router      /api/session/reset [post]
func (h *handler) resetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.conv.Reset(r.Context())
	if err != nil {
		writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// submitText runs one turn for typed input.
//
// @Summary     Send a typed message
// @Description Appends the user turn, asks the model, and appends the voiced answer and optional follow-up question.
// @Tags        turns
// @Accept      json
// @Produce     json
// @Param       request  body      message.SubmitTextRequest  true  "User message"
// @Success     200  {object}  message.SessionView
// @Failure     400  {object}  message.ErrorResponse  "Missing or invalid text"
// @Failure     409  {object}  message.ErrorResponse  "A reply is still pending"
// @Failure     502  {object}  message.ErrorResponse  "Completion, parsing or synthesis failed"
// @Router      /api/turns [post]
func (h *handler) submitText(w http.ResponseWriter, r *http.Request) {
	var req message.SubmitTextRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, message.ErrorResponse{Error: "invalid json: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, message.ErrorResponse{Error: "text is required"})
		return
	}

	// The round trip outlives a closed tab; the dispatcher's timeout bounds it.
	view, err := h.conv.SubmitText(context.WithoutCancel(r.Context()), req.Text)
	if err != nil {
		writeError(w, err, &view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// submitVoice runs one turn for a recording.
//
// @Summary     Send a spoken message
// @Description POST the raw recording with its audio MIME type. It is transcribed and handled like a typed message.
// @Tags        turns
// @Accept      audio/webm
// @Accept      audio/ogg
// @Accept      audio/wav
// @Produce     json
// @Success     200  {object}  message.SessionView
// @Failure     400  {object}  message.ErrorResponse  "Empty body"
// @Failure     409  {object}  message.ErrorResponse  "A reply is still pending"
// @Failure     413  {object}  message.ErrorResponse  "Recording larger than 25 MB"
// @Failure     422  {object}  message.ErrorResponse  "Speech could not be recognized"
// @Failure     502  {object}  message.ErrorResponse  "Completion, parsing or synthesis failed"
// @Router      /api/voice [post]
func (h *handler) submitVoice(w http.ResponseWriter, r *http.Request) {
	audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, message.ErrorResponse{Error: "reading audio: " + err.Error()})
		return
	}
	if len(audio) > maxAudioBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, message.ErrorResponse{Error: "recording too large"})
		return
	}
	if len(audio) == 0 {
		writeJSON(w, http.StatusBadRequest, message.ErrorResponse{Error: "empty recording"})
		return
	}

	view, err := h.conv.SubmitVoice(context.WithoutCancel(r.Context()), audio, r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, err, &view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// watchSession pushes the session view over a WebSocket after every change.
//
// @Summary     Watch the conversation
// @Description Upgrades to a WebSocket and sends a SessionView JSON message on connect and after every change.
// @Tags        session
// @Success     101  {string}  string  "Switching Protocols"
// @Router      /api/session/ws [get]
func (h *handler) watchSession(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "watch ended"); closeErr != nil {
			slog.Debug("websocket close", "error", closeErr)
		}
	}()

	// The client never sends; CloseRead cancels ctx when it goes away.
	ctx := ws.CloseRead(r.Context())
	views, err := h.conv.Watch(ctx)
	if err != nil {
		slog.Error("watch failed", "error", err)
		return
	}

	for view := range views {
		wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := wsjson.Write(wctx, ws, view)
		cancel()
		if err != nil {
			slog.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error, view *message.SessionView) {
	resp := message.ErrorResponse{Error: err.Error(), Kind: string(dispatch.KindOf(err))}
	if view != nil && view.ID != "" {
		resp.Session = view
	}
	writeJSON(w, statusFor(err), resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, conversation.ErrBusy), errors.Is(err, conversation.ErrStale):
		return http.StatusConflict
	case dispatch.KindOf(err) == dispatch.KindRecognition:
		return http.StatusUnprocessableEntity
	case dispatch.KindOf(err) != "":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
