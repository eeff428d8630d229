// Package speech defines the boundary to realtime conversational speech
// services.
//
// A Provider opens a stateful bidirectional Session that accepts caller audio
// and produces synthesised speech plus transcripts. Everything the service
// sends back is surfaced as a single append-only stream of typed [Event]
// values so that callers can drive an explicit state machine instead of
// registering per-message callbacks.
//
// All implementations must be safe for concurrent use.
package speech

import "context"

// EventKind tags a server-originated event on the session stream.
type EventKind string

const (
	// KindSessionCreated signals that the service accepted the connection and
	// the session is ready for audio.
	KindSessionCreated EventKind = "session_created"

	// KindSessionUpdated acknowledges a configuration update.
	KindSessionUpdated EventKind = "session_updated"

	// KindAudioDelta carries a chunk of synthesised model speech in Event.Audio.
	KindAudioDelta EventKind = "audio_delta"

	// KindInputTranscript carries a completed transcription of caller speech
	// in Event.Text.
	KindInputTranscript EventKind = "input_transcript"

	// KindResponseDelta carries an incremental fragment of the model's spoken
	// response transcript in Event.Text.
	KindResponseDelta EventKind = "response_delta"

	// KindResponseDone signals that the model finished its current response
	// turn.
	KindResponseDone EventKind = "response_done"

	// KindSpeechStarted signals that the service detected the caller starting
	// to speak.
	KindSpeechStarted EventKind = "speech_started"

	// KindSpeechStopped signals that the service detected the caller going
	// silent.
	KindSpeechStopped EventKind = "speech_stopped"

	// KindError carries a non-fatal service error in Event.Err.
	KindError EventKind = "error"
)

// Event is one entry on a session's event stream. Only the fields relevant
// to Kind are populated.
type Event struct {
	Kind  EventKind
	Audio []byte
	Text  string
	Err   error
}

// TurnDetection configures the service-side voice activity detector that
// decides when a caller turn has ended and a response should be generated.
type TurnDetection struct {
	// Type selects the detection mode (e.g. "server_vad").
	Type string

	// Threshold is the activation threshold in [0, 1]. Zero means the
	// provider default.
	Threshold float64

	// SilenceDurationMs is the trailing silence, in milliseconds, that closes
	// a caller turn. Zero means the provider default.
	SilenceDurationMs int
}

// SessionConfig is the one-shot configuration sent when a session is opened.
type SessionConfig struct {
	// Instructions is the system-level prompt governing the model's behaviour
	// for the whole call.
	Instructions string

	// Voice selects the synthesised voice (provider-specific identifier).
	Voice string

	// Modalities lists the response modalities to request (e.g. "text",
	// "audio"). Empty means the provider default.
	Modalities []string

	// InputAudioFormat and OutputAudioFormat name the wire audio encodings.
	// Telephony bridges typically use "g711_ulaw" on both sides. The session
	// never inspects payload bytes; the formats are declared, not enforced.
	InputAudioFormat  string
	OutputAudioFormat string

	// TurnDetection configures service-side end-of-turn detection.
	TurnDetection TurnDetection
}

// Session is an open connection to the speech service.
//
// Sessions sit on the hot audio path: SendAudio must return quickly and
// Events must be drained promptly by exactly one consumer. Unknown or
// unrecognised service messages are dropped silently, never surfaced as
// errors.
//
// Callers own the session and must call Close when done.
type Session interface {
	// SendAudio delivers one opaque encoded audio chunk to the service.
	// Returns an error if the session is closed or the write fails.
	SendAudio(chunk []byte) error

	// SpeakText instructs the model to speak the given text as its next
	// response turn. Used for the opening greeting.
	SpeakText(text string) error

	// Events returns the session's event stream. The channel is closed when
	// the session ends, whether cleanly or due to a connection failure.
	Events() <-chan Event

	// Close terminates the session and releases all resources. Safe to call
	// more than once.
	Close() error
}

// Provider opens sessions against a concrete speech service.
type Provider interface {
	// Connect establishes a new session configured with cfg. The returned
	// Session is ready to accept audio; the service confirms readiness with a
	// [KindSessionCreated] event. The caller owns the Session and must Close
	// it.
	Connect(ctx context.Context, cfg SessionConfig) (Session, error)
}
