// Package relay forwards opaque audio payloads between a call's two live
// connections: the telephony stream and the speech-model session.
//
// The relay never transforms, buffers, or reorders payloads, and it never
// fails: a missing or closed destination is a logged no-op, because audio
// routinely arrives during connection setup and teardown races. Both
// directions sit on the hot path and must not block on anything but the
// destination write itself.
package relay

import (
	"context"
	"log/slog"

	"github.com/lexline-ai/lexline/internal/call"
	"github.com/lexline-ai/lexline/internal/observe"
)

// Direction attribute values for relay metrics.
const (
	dirToModel  = "to_model"
	dirToCaller = "to_caller"
)

// Relay forwards audio payloads for live calls registered in the store.
type Relay struct {
	store   *call.Store
	metrics *observe.Metrics
}

// New creates a Relay over the given session store.
func New(store *call.Store, metrics *observe.Metrics) *Relay {
	return &Relay{store: store, metrics: metrics}
}

// ToModel forwards a caller audio payload to the call's model connection.
// Dropped silently when the session or its model connection is absent.
func (r *Relay) ToModel(callID string, payload []byte) {
	sess, ok := r.store.Get(callID)
	if !ok || sess.Model == nil {
		slog.Debug("relay: dropping caller audio, no model connection", "call_id", callID)
		r.metrics.FrameDropped(context.Background(), dirToModel)
		return
	}

	if err := sess.Model.SendAudio(payload); err != nil {
		slog.Debug("relay: model send failed", "call_id", callID, "err", err)
		r.metrics.FrameDropped(context.Background(), dirToModel)
		return
	}
	r.metrics.FrameRelayed(context.Background(), dirToModel)
}

// ToCaller forwards a model audio payload to the call's telephony stream.
// Dropped silently when the session or its telephony handle is absent.
func (r *Relay) ToCaller(callID string, payload []byte) {
	sess, ok := r.store.Get(callID)
	if !ok || sess.Caller == nil {
		slog.Debug("relay: dropping model audio, no caller connection", "call_id", callID)
		r.metrics.FrameDropped(context.Background(), dirToCaller)
		return
	}

	if err := sess.Caller.SendMedia(payload); err != nil {
		slog.Debug("relay: caller send failed", "call_id", callID, "err", err)
		r.metrics.FrameDropped(context.Background(), dirToCaller)
		return
	}
	r.metrics.FrameRelayed(context.Background(), dirToCaller)
}
