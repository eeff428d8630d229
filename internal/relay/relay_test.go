package relay

import (
	"errors"
	"testing"

	"github.com/lexline-ai/lexline/internal/call"
)

type fakeModel struct {
	chunks [][]byte
	err    error
}

func (f *fakeModel) SendAudio(chunk []byte) error {
	if f.err != nil {
		return f.err
	}
	f.chunks = append(f.chunks, chunk)
	return nil
}

func (f *fakeModel) Close() error { return nil }

type fakeCaller struct {
	payloads [][]byte
	err      error
}

func (f *fakeCaller) SendMedia(payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func TestRelay_ToModel(t *testing.T) {
	t.Run("forwards to model connection", func(t *testing.T) {
		st := call.NewStore()
		_ = st.Create("c1", "")
		model := &fakeModel{}
		st.Update("c1", func(s *call.Session) { s.Model = model })

		r := New(st, nil)
		r.ToModel("c1", []byte{0x01, 0x02})

		if len(model.chunks) != 1 || string(model.chunks[0]) != "\x01\x02" {
			t.Errorf("model received %v, want one 2-byte chunk", model.chunks)
		}
	})

	t.Run("absent session is a no-op", func(t *testing.T) {
		r := New(call.NewStore(), nil)
		r.ToModel("nope", []byte{0x01})
	})

	t.Run("session without model connection is a no-op", func(t *testing.T) {
		st := call.NewStore()
		_ = st.Create("c1", "")
		r := New(st, nil)
		r.ToModel("c1", []byte{0x01})
	})

	t.Run("send failure is swallowed", func(t *testing.T) {
		st := call.NewStore()
		_ = st.Create("c1", "")
		st.Update("c1", func(s *call.Session) {
			s.Model = &fakeModel{err: errors.New("connection reset")}
		})

		r := New(st, nil)
		r.ToModel("c1", []byte{0x01})
	})
}

func TestRelay_ToCaller(t *testing.T) {
	t.Run("forwards to caller connection", func(t *testing.T) {
		st := call.NewStore()
		_ = st.Create("c1", "")
		caller := &fakeCaller{}
		st.Update("c1", func(s *call.Session) { s.Caller = caller })

		r := New(st, nil)
		r.ToCaller("c1", []byte{0xaa})

		if len(caller.payloads) != 1 {
			t.Errorf("caller received %d payloads, want 1", len(caller.payloads))
		}
	})

	t.Run("absent destinations never error", func(t *testing.T) {
		st := call.NewStore()
		_ = st.Create("c1", "")
		r := New(st, nil)

		r.ToCaller("nope", []byte{0x01})
		r.ToCaller("c1", []byte{0x01})
		st.Update("c1", func(s *call.Session) {
			s.Caller = &fakeCaller{err: errors.New("websocket closed")}
		})
		r.ToCaller("c1", []byte{0x01})
	})
}
