package telephony

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
)

// Handler decodes provider webhooks and media-stream websockets into
// [StreamEvent] values and feeds them to the sink.
type Handler struct {
	sink EventSink
}

// NewHandler creates a Handler delivering events to sink.
func NewHandler(sink EventSink) *Handler {
	return &Handler{sink: sink}
}

// HandleStatus is the provider's call-status webhook (form-encoded POST).
// Unknown statuses are ignored, not errors.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	callID := r.PostFormValue("CallSid")
	if callID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	ev := StreamEvent{
		CallID:       callID,
		CallerNumber: r.PostFormValue("From"),
	}

	switch status := r.PostFormValue("CallStatus"); status {
	case "initiated", "ringing":
		ev.Kind = EventInitiated
	case "in-progress":
		ev.Kind = EventAnswered
	case "completed", "busy", "failed", "no-answer", "canceled":
		ev.Kind = EventHangup
	default:
		slog.Debug("telephony: ignoring unknown call status", "call_id", callID, "status", status)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.sink.HandleCallEvent(r.Context(), ev)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMedia upgrades the request to the provider's media-stream websocket
// and pumps its frames into the sink until the provider disconnects. Frames
// with event types this handler does not understand are skipped.
func (h *Handler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("telephony: media stream accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream done")

	ctx := r.Context()
	var (
		callID string
		stream *MediaStream
	)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}

		var frame wireFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Event {
		case "start":
			if frame.Start == nil || frame.Start.CallSid == "" {
				continue
			}
			callID = frame.Start.CallSid
			stream = NewMediaStream(conn, frame.Start.StreamSid)
			h.sink.AttachCaller(callID, stream)
			h.sink.HandleCallEvent(ctx, StreamEvent{
				Kind:         EventAnswered,
				CallID:       callID,
				StreamID:     frame.Start.StreamSid,
				CallerNumber: frame.Start.CustomParameters["from"],
			})

		case "media":
			if callID == "" || frame.Media == nil || frame.Media.Payload == "" {
				continue
			}
			payload, err := base64.StdEncoding.DecodeString(frame.Media.Payload)
			if err != nil || len(payload) == 0 {
				continue
			}
			h.sink.HandleCallEvent(ctx, StreamEvent{
				Kind:    EventMedia,
				CallID:  callID,
				Payload: payload,
			})

		case "stop":
			if callID != "" {
				h.sink.HandleCallEvent(ctx, StreamEvent{Kind: EventStop, CallID: callID})
			}
		}
	}

	if stream != nil {
		stream.markClosed()
	}
	if callID != "" {
		h.sink.HandleCallEvent(ctx, StreamEvent{Kind: EventHangup, CallID: callID})
	}
}
