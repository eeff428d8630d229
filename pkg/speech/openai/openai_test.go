package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/lexline-ai/lexline/pkg/speech"
)

// realtimeServer is a scripted stand-in for the Realtime API endpoint. It
// records everything the client sends and lets tests push server events.
type realtimeServer struct {
	t *testing.T

	mu       sync.Mutex
	received []map[string]any
	header   http.Header

	conn  *websocket.Conn
	ready chan struct{}
	srv   *httptest.Server
}

func newRealtimeServer(t *testing.T) *realtimeServer {
	t.Helper()
	rs := &realtimeServer{t: t, ready: make(chan struct{})}
	rs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		rs.header = r.Header.Clone()
		rs.mu.Unlock()

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		rs.mu.Lock()
		rs.conn = conn
		rs.mu.Unlock()
		close(rs.ready)

		ctx := r.Context()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			rs.mu.Lock()
			rs.received = append(rs.received, msg)
			rs.mu.Unlock()
		}
	}))
	t.Cleanup(rs.srv.Close)
	return rs
}

func (rs *realtimeServer) url() string {
	return "ws" + strings.TrimPrefix(rs.srv.URL, "http")
}

// send pushes a raw server event to the connected client.
func (rs *realtimeServer) send(v any) {
	rs.t.Helper()
	select {
	case <-rs.ready:
	case <-time.After(3 * time.Second):
		rs.t.Fatal("client never connected")
	}
	data, err := json.Marshal(v)
	if err != nil {
		rs.t.Fatalf("marshal server event: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rs.conn.Write(ctx, websocket.MessageText, data); err != nil {
		rs.t.Fatalf("server write: %v", err)
	}
}

// waitReceived polls until the client has sent at least n messages.
func (rs *realtimeServer) waitReceived(n int) []map[string]any {
	rs.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		rs.mu.Lock()
		got := len(rs.received)
		rs.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]map[string]any, len(rs.received))
	copy(out, rs.received)
	return out
}

func nextEvent(t *testing.T, events <-chan speech.Event) speech.Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event stream closed unexpectedly")
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("no event before deadline")
	}
	return speech.Event{}
}

func connect(t *testing.T, rs *realtimeServer, cfg speech.SessionConfig) speech.Session {
	t.Helper()
	p := New("sk-test", WithBaseURL(rs.url()), WithModel("test-model"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	sess, err := p.Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestConnect_Handshake(t *testing.T) {
	rs := newRealtimeServer(t)
	connect(t, rs, speech.SessionConfig{
		Instructions: "be helpful",
		Voice:        "alloy",
		TurnDetection: speech.TurnDetection{
			Type:              "server_vad",
			SilenceDurationMs: 500,
		},
	})

	msgs := rs.waitReceived(1)
	if len(msgs) == 0 || msgs[0]["type"] != "session.update" {
		t.Fatalf("first message = %v, want session.update", msgs)
	}

	rs.mu.Lock()
	auth := rs.header.Get("Authorization")
	beta := rs.header.Get("OpenAI-Beta")
	rs.mu.Unlock()
	if auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", auth)
	}
	if beta != "realtime=v1" {
		t.Errorf("OpenAI-Beta = %q", beta)
	}

	sessParams, _ := msgs[0]["session"].(map[string]any)
	if sessParams["instructions"] != "be helpful" || sessParams["voice"] != "alloy" {
		t.Errorf("session params = %v", sessParams)
	}
	// Telephony defaults apply when no audio format is requested.
	if sessParams["input_audio_format"] != "g711_ulaw" || sessParams["output_audio_format"] != "g711_ulaw" {
		t.Errorf("audio formats = %v/%v, want g711_ulaw", sessParams["input_audio_format"], sessParams["output_audio_format"])
	}
	td, _ := sessParams["turn_detection"].(map[string]any)
	if td == nil || td["type"] != "server_vad" {
		t.Errorf("turn_detection = %v", td)
	}
}

func TestSession_ServerEvents(t *testing.T) {
	rs := newRealtimeServer(t)
	sess := connect(t, rs, speech.SessionConfig{})

	tests := []struct {
		name  string
		wire  map[string]any
		check func(t *testing.T, ev speech.Event)
	}{
		{
			name: "session.created",
			wire: map[string]any{"type": "session.created"},
			check: func(t *testing.T, ev speech.Event) {
				if ev.Kind != speech.KindSessionCreated {
					t.Errorf("kind = %q", ev.Kind)
				}
			},
		},
		{
			name: "audio delta is base64-decoded",
			wire: map[string]any{
				"type":  "response.audio.delta",
				"delta": base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03}),
			},
			check: func(t *testing.T, ev speech.Event) {
				if ev.Kind != speech.KindAudioDelta || !bytes.Equal(ev.Audio, []byte{0x01, 0x02, 0x03}) {
					t.Errorf("event = %+v", ev)
				}
			},
		},
		{
			name: "response transcript delta",
			wire: map[string]any{"type": "response.audio_transcript.delta", "delta": "Hel"},
			check: func(t *testing.T, ev speech.Event) {
				if ev.Kind != speech.KindResponseDelta || ev.Text != "Hel" {
					t.Errorf("event = %+v", ev)
				}
			},
		},
		{
			name: "input transcription completed",
			wire: map[string]any{
				"type":       "conversation.item.input_audio_transcription.completed",
				"transcript": "my name is John Smith",
			},
			check: func(t *testing.T, ev speech.Event) {
				if ev.Kind != speech.KindInputTranscript || ev.Text != "my name is John Smith" {
					t.Errorf("event = %+v", ev)
				}
			},
		},
		{
			name: "response done",
			wire: map[string]any{"type": "response.done"},
			check: func(t *testing.T, ev speech.Event) {
				if ev.Kind != speech.KindResponseDone {
					t.Errorf("kind = %q", ev.Kind)
				}
			},
		},
		{
			name: "speech started",
			wire: map[string]any{"type": "input_audio_buffer.speech_started"},
			check: func(t *testing.T, ev speech.Event) {
				if ev.Kind != speech.KindSpeechStarted {
					t.Errorf("kind = %q", ev.Kind)
				}
			},
		},
		{
			name: "error event carries message",
			wire: map[string]any{
				"type":  "error",
				"error": map[string]any{"type": "invalid_request_error", "message": "bad session"},
			},
			check: func(t *testing.T, ev speech.Event) {
				if ev.Kind != speech.KindError || ev.Err == nil || !strings.Contains(ev.Err.Error(), "bad session") {
					t.Errorf("event = %+v", ev)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rs.send(tc.wire)
			tc.check(t, nextEvent(t, sess.Events()))
		})
	}
}

func TestSession_UnknownEventsAreIgnored(t *testing.T) {
	rs := newRealtimeServer(t)
	sess := connect(t, rs, speech.SessionConfig{})

	rs.send(map[string]any{"type": "rate_limits.updated"})
	rs.send(map[string]any{"type": "session.created"})

	// Only the recognised event surfaces.
	ev := nextEvent(t, sess.Events())
	if ev.Kind != speech.KindSessionCreated {
		t.Errorf("kind = %q, want session_created", ev.Kind)
	}
}

func TestSession_SendAudio(t *testing.T) {
	rs := newRealtimeServer(t)
	sess := connect(t, rs, speech.SessionConfig{})

	if err := sess.SendAudio([]byte{0xaa, 0xbb}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}

	msgs := rs.waitReceived(2) // session.update then the audio append
	last := msgs[len(msgs)-1]
	if last["type"] != "input_audio_buffer.append" {
		t.Fatalf("message type = %v", last["type"])
	}
	decoded, err := base64.StdEncoding.DecodeString(last["audio"].(string))
	if err != nil || !bytes.Equal(decoded, []byte{0xaa, 0xbb}) {
		t.Errorf("audio payload = %v, want [170 187]", decoded)
	}
}

func TestSession_SpeakText(t *testing.T) {
	rs := newRealtimeServer(t)
	sess := connect(t, rs, speech.SessionConfig{})

	if err := sess.SpeakText("Thank you for calling."); err != nil {
		t.Fatalf("SpeakText: %v", err)
	}

	msgs := rs.waitReceived(2)
	last := msgs[len(msgs)-1]
	if last["type"] != "response.create" {
		t.Fatalf("message type = %v", last["type"])
	}
	resp, _ := last["response"].(map[string]any)
	if resp["instructions"] != "Thank you for calling." {
		t.Errorf("response params = %v", resp)
	}
}

func TestSession_Close(t *testing.T) {
	rs := newRealtimeServer(t)
	sess := connect(t, rs, speech.SessionConfig{})

	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if err := sess.SendAudio([]byte{0x01}); err == nil {
		t.Error("SendAudio after Close should fail")
	}

	// The event stream drains and closes.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-sess.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event stream not closed after Close")
		}
	}
}

func TestConnect_DialFailure(t *testing.T) {
	p := New("sk-test", WithBaseURL("ws://127.0.0.1:1"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := p.Connect(ctx, speech.SessionConfig{}); err == nil {
		t.Fatal("expected dial error")
	}
}
