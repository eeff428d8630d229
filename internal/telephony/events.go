// Package telephony is the transport-layer boundary to the phone provider:
// inbound call/stream events, the outbound media websocket handle, and the
// fire-and-forget call-control client.
//
// Only the surface the orchestrator consumes is modelled here; full provider
// protocol detail (signatures, callbacks, retries) stays with the provider.
package telephony

import "context"

// EventKind classifies an inbound call event.
type EventKind string

const (
	// EventInitiated announces a new inbound call before it is answered.
	EventInitiated EventKind = "initiated"

	// EventAnswered signals the call was picked up and media is imminent.
	EventAnswered EventKind = "answered"

	// EventMedia carries one opaque audio payload from the caller.
	EventMedia EventKind = "media"

	// EventStop signals the provider closed the media stream.
	EventStop EventKind = "stop"

	// EventHangup signals the call ended.
	EventHangup EventKind = "hangup"
)

// StreamEvent is one inbound event from the telephony layer, already decoded
// from the provider's wire format.
type StreamEvent struct {
	Kind         EventKind
	CallID       string
	StreamID     string
	CallerNumber string

	// Payload is the opaque decoded audio bytes of a media event.
	Payload []byte
}

// EventSink consumes decoded stream events. Implemented by the session
// orchestrator.
type EventSink interface {
	// HandleCallEvent processes one inbound event. It must not block on
	// persistence or model connection setup.
	HandleCallEvent(ctx context.Context, ev StreamEvent)

	// AttachCaller hands the session a handle for pushing outbound audio to
	// the caller. The sink does not own the handle's lifetime.
	AttachCaller(callID string, conn OutboundConn)
}

// OutboundConn pushes opaque audio payloads back to the caller. Delivery is
// best-effort; no acknowledgment is awaited.
type OutboundConn interface {
	SendMedia(payload []byte) error
}

// Wire frames for the provider's media-stream websocket. The shapes mirror
// Twilio-style media streams: a start frame with call metadata, then media
// frames carrying base64 payloads, then a stop frame.

type wireFrame struct {
	Event     string      `json:"event"`
	StreamSid string      `json:"streamSid,omitempty"`
	Start     *startFrame `json:"start,omitempty"`
	Media     *mediaFrame `json:"media,omitempty"`
}

type startFrame struct {
	CallSid          string            `json:"callSid"`
	StreamSid        string            `json:"streamSid"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type mediaFrame struct {
	Payload string `json:"payload"` // base64-encoded audio
}
