// Package call owns per-call state: the session data model, the process-wide
// session store, and the per-call settle timer.
//
// The store is the single source of truth for a live call. All mutation goes
// through [Store.Update], which serialises writers per call while letting
// different calls proceed fully in parallel. Callers must not hold a session
// snapshot across suspension points; re-read instead.
package call

import (
	"strings"

	"github.com/lexline-ai/lexline/internal/extract"
)

// State is a call session's lifecycle phase.
type State string

const (
	StateCreated         State = "created"
	StateModelConnecting State = "model_connecting"
	StateModelReady      State = "model_ready"
	StateActive          State = "active"
	StateSettling        State = "settling"
	StateSaved           State = "saved"
	StateClosed          State = "closed"
)

// Speaker identifies who produced a transcript utterance.
type Speaker string

const (
	SpeakerCaller    Speaker = "caller"
	SpeakerAssistant Speaker = "assistant"
)

// Utterance is one speaker-tagged entry in a call's transcript log.
type Utterance struct {
	Speaker Speaker
	Text    string
}

// ModelConn is the session's handle to the speech-model connection. The
// session owns it: it is created when the model is connected and closed at
// teardown.
type ModelConn interface {
	SendAudio(chunk []byte) error
	Close() error
}

// CallerConn is the session's handle to the telephony-side connection. The
// session does not own it — the transport layer does — so only outbound
// pushes go through it and it may become invalid at any time.
type CallerConn interface {
	SendMedia(payload []byte) error
}

// Session is the mutable state of one live call. Instances live inside the
// [Store]; outside of Update callbacks only value snapshots circulate.
type Session struct {
	CallID       string
	StreamID     string
	CallerNumber string
	State        State

	// Fields maps lead field names to their current best-known values.
	Fields map[string]string

	// Transcript is the append-only log of utterances; cleared at teardown
	// when the session is deleted from the store.
	Transcript []Utterance

	// Saved transitions false→true exactly once, under the store's per-call
	// lock; the persistence trigger fires if and only if that transition
	// happens.
	Saved bool

	Model  ModelConn
	Caller CallerConn
}

// newSession creates a session in StateCreated with the caller-ID phone
// field pre-seeded when the number is known.
func newSession(callID, callerNumber string) *Session {
	s := &Session{
		CallID:       callID,
		CallerNumber: callerNumber,
		State:        StateCreated,
		Fields:       make(map[string]string),
	}
	if callerNumber != "" {
		s.Fields[extract.FieldPhone] = callerNumber
	}
	return s
}

// TranscriptText joins the transcript log into a speaker-prefixed text block
// for persistence.
func (s *Session) TranscriptText() string {
	var b strings.Builder
	for i, u := range s.Transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(u.Speaker))
		b.WriteString(": ")
		b.WriteString(u.Text)
	}
	return b.String()
}

// snapshot returns a deep copy of the session safe to use outside the
// store's lock.
func (s *Session) snapshot() Session {
	cp := *s
	cp.Fields = make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		cp.Fields[k] = v
	}
	cp.Transcript = make([]Utterance, len(s.Transcript))
	copy(cp.Transcript, s.Transcript)
	return cp
}
