// Package mock provides test doubles for the speech package interfaces.
//
// Use Provider to verify Connect calls and hand out controlled sessions.
// Use Session to drive the event stream and inspect which methods the
// orchestrator invoked.
//
// Example:
//
//	sess := mock.NewSession()
//	p := &mock.Provider{Session: sess}
//	sess.Emit(speech.Event{Kind: speech.KindSessionCreated})
package mock

import (
	"context"
	"sync"

	"github.com/lexline-ai/lexline/pkg/speech"
)

// ConnectCall records a single invocation of Provider.Connect.
type ConnectCall struct {
	// Ctx is the context passed to Connect.
	Ctx context.Context
	// Cfg is the SessionConfig passed to Connect.
	Cfg speech.SessionConfig
}

// Provider is a mock implementation of speech.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is the Session returned by Connect. If nil, Connect returns a
	// fresh default Session.
	Session speech.Session

	// ConnectErr, if non-nil, is returned as the error from Connect.
	ConnectErr error

	// ConnectCalls records every call to Connect in order.
	ConnectCalls []ConnectCall
}

// Connect records the call and returns Session, ConnectErr.
func (p *Provider) Connect(ctx context.Context, cfg speech.SessionConfig) (speech.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{Ctx: ctx, Cfg: cfg})
	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	if p.Session != nil {
		return p.Session, nil
	}
	return NewSession(), nil
}

// Calls returns a copy of the recorded Connect calls.
func (p *Provider) Calls() []ConnectCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConnectCall, len(p.ConnectCalls))
	copy(out, p.ConnectCalls)
	return out
}

// Session is a scriptable mock implementation of speech.Session. Tests feed
// events with Emit and observe outbound traffic via SentAudio and Spoken.
type Session struct {
	mu sync.Mutex

	// SendAudioErr, if non-nil, is returned from SendAudio.
	SendAudioErr error

	// SpeakTextErr, if non-nil, is returned from SpeakText.
	SpeakTextErr error

	sentAudio [][]byte
	spoken    []string
	closed    bool

	events    chan speech.Event
	closeOnce sync.Once
}

// NewSession creates a Session with a buffered event stream.
func NewSession() *Session {
	return &Session{events: make(chan speech.Event, 64)}
}

// Emit places ev on the event stream. Emitting after Finish panics, as a real
// session never produces events after its stream closed.
func (s *Session) Emit(ev speech.Event) {
	s.events <- ev
}

// Finish closes the event stream, simulating the service ending the session.
func (s *Session) Finish() {
	s.closeOnce.Do(func() { close(s.events) })
}

// SendAudio records the chunk.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendAudioErr != nil {
		return s.SendAudioErr
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)
	s.sentAudio = append(s.sentAudio, c)
	return nil
}

// SpeakText records the text.
func (s *Session) SpeakText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SpeakTextErr != nil {
		return s.SpeakTextErr
	}
	s.spoken = append(s.spoken, text)
	return nil
}

// Events returns the scripted event stream.
func (s *Session) Events() <-chan speech.Event { return s.events }

// Close marks the session closed and closes the event stream.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Finish()
	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SentAudio returns a copy of all chunks passed to SendAudio.
func (s *Session) SentAudio() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sentAudio))
	copy(out, s.sentAudio)
	return out
}

// Spoken returns a copy of all texts passed to SpeakText.
func (s *Session) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}
