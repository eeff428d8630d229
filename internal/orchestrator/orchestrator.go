// Package orchestrator drives the lifecycle of a call: it reacts to telephony
// stream events, opens the speech-model session, routes audio and transcripts
// through the relay and accumulator, and decides when a conversation has
// settled and its lead must be persisted.
//
// The orchestrator is the only component that writes session state
// transitions. Every other package either feeds it events or is invoked by
// it; none of them call back into it.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lexline-ai/lexline/internal/call"
	"github.com/lexline-ai/lexline/internal/extract"
	"github.com/lexline-ai/lexline/internal/leadstore"
	"github.com/lexline-ai/lexline/internal/observe"
	"github.com/lexline-ai/lexline/internal/relay"
	"github.com/lexline-ai/lexline/internal/telephony"
	"github.com/lexline-ai/lexline/internal/transcript"
	"github.com/lexline-ai/lexline/pkg/speech"
)

// Settle and teardown reasons, recorded as metric attributes and log fields.
const (
	reasonTimer       = "timer"
	reasonHangup      = "hangup"
	reasonModelClosed = "model_disconnected"
	reasonModelError  = "model_error"
	reasonShutdown    = "shutdown"
)

const (
	// DefaultSettleDelay is the quiet period after the last conversation
	// activity before a call is considered settled.
	DefaultSettleDelay = 2 * time.Second

	// DefaultSaveTimeout bounds a single lead persistence attempt.
	DefaultSaveTimeout = 10 * time.Second
)

// Config carries the per-deployment knobs of the orchestrator.
type Config struct {
	// SettleDelay is the debounce window for the settle timer. Zero selects
	// DefaultSettleDelay.
	SettleDelay time.Duration

	// SaveTimeout bounds each lead persistence attempt. Zero selects
	// DefaultSaveTimeout.
	SaveTimeout time.Duration

	// Greeting, when non-empty, is spoken by the model as soon as its session
	// is ready.
	Greeting string

	// Instructions is the system prompt configured on every model session.
	Instructions string

	// Voice selects the model's synthesised voice.
	Voice string
}

// Orchestrator implements [telephony.EventSink] over a session store, a
// speech provider and a lead saver.
type Orchestrator struct {
	store    *call.Store
	provider speech.Provider
	saver    leadstore.Saver
	relay    *relay.Relay
	acc      *transcript.Accumulator
	settle   *call.SettleTimer
	control  telephony.Controller // optional; nil disables auto-hangup
	metrics  *observe.Metrics
	cfg      Config

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	starts map[string]time.Time
}

var _ telephony.EventSink = (*Orchestrator)(nil)

// New creates an Orchestrator. control may be nil, in which case settled
// calls are left for the caller to hang up.
func New(store *call.Store, provider speech.Provider, saver leadstore.Saver,
	control telephony.Controller, metrics *observe.Metrics, cfg Config) *Orchestrator {

	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = DefaultSaveTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:    store,
		provider: provider,
		saver:    saver,
		relay:    relay.New(store, metrics),
		acc:      transcript.New(store, metrics),
		settle:   call.NewSettleTimer(),
		control:  control,
		metrics:  metrics,
		cfg:      cfg,
		baseCtx:  ctx,
		cancel:   cancel,
		starts:   make(map[string]time.Time),
	}
}

// Accumulator exposes the transcript accumulator so tests can pin its clock.
func (o *Orchestrator) Accumulator() *transcript.Accumulator {
	return o.acc
}

// HandleCallEvent dispatches one telephony stream event.
func (o *Orchestrator) HandleCallEvent(ctx context.Context, ev telephony.StreamEvent) {
	switch ev.Kind {
	case telephony.EventInitiated:
		o.ensureSession(ev.CallID, ev.CallerNumber)
	case telephony.EventAnswered:
		o.handleAnswered(ev)
	case telephony.EventMedia:
		o.handleMedia(ev)
	case telephony.EventStop, telephony.EventHangup:
		o.Teardown(ev.CallID, reasonHangup)
	default:
		slog.Debug("orchestrator: ignoring event", "kind", ev.Kind, "call_id", ev.CallID)
	}
}

// AttachCaller binds the outbound telephony stream to the call's session,
// creating the session first when the media stream beats the status webhook.
func (o *Orchestrator) AttachCaller(callID string, conn telephony.OutboundConn) {
	o.ensureSession(callID, "")
	o.store.Update(callID, func(s *call.Session) {
		s.Caller = conn
	})
}

// ensureSession registers a session for callID if none exists. A duplicate
// is a logged no-op: providers redeliver status webhooks.
func (o *Orchestrator) ensureSession(callID, callerNumber string) {
	err := o.store.Create(callID, callerNumber)
	if errors.Is(err, call.ErrAlreadyExists) {
		slog.Debug("orchestrator: session already registered", "call_id", callID)
		return
	}

	o.mu.Lock()
	o.starts[callID] = time.Now()
	o.mu.Unlock()

	o.metrics.CallStarted(context.Background())
	slog.Info("orchestrator: call registered", "call_id", callID, "caller", callerNumber)
}

func (o *Orchestrator) handleAnswered(ev telephony.StreamEvent) {
	o.ensureSession(ev.CallID, ev.CallerNumber)

	var connect bool
	o.store.Update(ev.CallID, func(s *call.Session) {
		if ev.StreamID != "" {
			s.StreamID = ev.StreamID
		}
		if ev.CallerNumber != "" && s.CallerNumber == "" {
			s.CallerNumber = ev.CallerNumber
			if s.Fields[extract.FieldPhone] == "" {
				s.Fields[extract.FieldPhone] = ev.CallerNumber
			}
		}
		// The answer may be reported twice (status webhook and stream start);
		// only the first transition opens a model session.
		if s.State == call.StateCreated {
			s.State = call.StateModelConnecting
			connect = true
		}
	})
	if !connect {
		return
	}

	o.wg.Add(1)
	go o.openModel(ev.CallID)
}

func (o *Orchestrator) handleMedia(ev telephony.StreamEvent) {
	o.store.Update(ev.CallID, func(s *call.Session) {
		if s.State == call.StateModelReady {
			s.State = call.StateActive
		}
	})
	o.relay.ToModel(ev.CallID, ev.Payload)
}

// openModel connects the speech-model session for callID and starts its
// event loop. Runs on its own goroutine so webhook handling never waits on
// the provider handshake.
func (o *Orchestrator) openModel(callID string) {
	defer o.wg.Done()

	sess, err := o.provider.Connect(o.baseCtx, speech.SessionConfig{
		Instructions:      o.cfg.Instructions,
		Voice:             o.cfg.Voice,
		InputAudioFormat:  "g711_ulaw",
		OutputAudioFormat: "g711_ulaw",
	})
	if err != nil {
		slog.Error("orchestrator: model connect failed", "call_id", callID, "err", err)
		o.Teardown(callID, reasonModelError)
		return
	}

	attached := o.store.Update(callID, func(s *call.Session) {
		s.Model = sess
	})
	if !attached {
		// Call ended while the handshake was in flight.
		_ = sess.Close()
		return
	}

	o.wg.Add(1)
	go o.eventLoop(callID, sess)
}

// eventLoop consumes the model session's event stream until it closes.
// It is the sole writer of assistant transcript text and the sole driver of
// the settle timer.
func (o *Orchestrator) eventLoop(callID string, sess speech.Session) {
	defer o.wg.Done()

	var pending strings.Builder
	for ev := range sess.Events() {
		switch ev.Kind {
		case speech.KindSessionCreated:
			o.store.Update(callID, func(s *call.Session) {
				if s.State == call.StateModelConnecting {
					s.State = call.StateModelReady
				}
			})
			if o.cfg.Greeting != "" {
				if err := sess.SpeakText(o.cfg.Greeting); err != nil {
					slog.Warn("orchestrator: greeting failed", "call_id", callID, "err", err)
				}
			}

		case speech.KindAudioDelta:
			o.relay.ToCaller(callID, ev.Audio)

		case speech.KindInputTranscript:
			o.acc.Record(callID, call.SpeakerCaller, ev.Text)

		case speech.KindResponseDelta:
			// The model is mid-response; the conversation cannot settle
			// until it finishes.
			o.settle.Cancel(callID)
			pending.WriteString(ev.Text)

		case speech.KindResponseDone:
			if text := strings.TrimSpace(pending.String()); text != "" {
				o.acc.Record(callID, call.SpeakerAssistant, text)
			}
			pending.Reset()
			o.armSettle(callID)

		case speech.KindSpeechStarted:
			// The caller is talking again; the conversation has not settled.
			o.settle.Cancel(callID)

		case speech.KindError:
			slog.Warn("orchestrator: model error", "call_id", callID, "err", ev.Err)
		}
	}

	// Stream closed: the model hung up on us or teardown closed the session.
	o.Teardown(callID, reasonModelClosed)
}

// armSettle starts the quiet-period countdown. It is armed only when the
// model completes a response turn: the settle window models silence after
// the assistant stops speaking, not after the caller does.
func (o *Orchestrator) armSettle(callID string) {
	o.settle.Reset(callID, o.cfg.SettleDelay, func() {
		o.settleFire(callID, reasonTimer)
	})
}

// settleFire is the single persistence trigger. Every path that decides the
// conversation is over funnels through it; the Saved flag, flipped under the
// session's lock, guarantees at most one lead per call.
func (o *Orchestrator) settleFire(callID, reason string) {
	var (
		lead leadstore.Lead
		won  bool
	)
	o.store.Update(callID, func(s *call.Session) {
		if s.Saved {
			return
		}
		s.Saved = true
		s.State = call.StateSettling
		won = true

		fields := make(map[string]string, len(s.Fields))
		for k, v := range s.Fields {
			fields[k] = v
		}
		lead = leadstore.Lead{
			CallID:       s.CallID,
			CallerNumber: s.CallerNumber,
			Fields:       fields,
			Transcript:   s.TranscriptText(),
			ReceivedAt:   time.Now(),
		}
	})
	if !won {
		return
	}

	o.metrics.SettleFired(context.Background(), reason)
	slog.Info("orchestrator: conversation settled", "call_id", callID, "reason", reason)

	// The save runs on its own goroutine: its result is logged, never
	// awaited, so storage latency cannot stall signaling or audio handling.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.persist(callID, lead)
	}()

	// A timer settle means the caller is still on the line with nothing left
	// to say; end the call. Fire-and-forget: hangup failure only means the
	// caller hangs up themselves.
	if reason == reasonTimer && o.control != nil {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			ctx, cancel := context.WithTimeout(o.baseCtx, o.cfg.SaveTimeout)
			defer cancel()
			if err := o.control.Hangup(ctx, callID); err != nil {
				slog.Warn("orchestrator: hangup failed", "call_id", callID, "err", err)
			}
		}()
	}
}

func (o *Orchestrator) persist(callID string, lead leadstore.Lead) {
	// Deliberately not derived from baseCtx: a shutdown must not abort the
	// final save of an in-flight lead.
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.SaveTimeout)
	defer cancel()

	if err := o.saver.SaveLead(ctx, lead); err != nil {
		slog.Error("orchestrator: lead save failed", "call_id", callID, "err", err)
		o.metrics.LeadSaved(ctx, "error")
		return
	}

	o.metrics.LeadSaved(ctx, "ok")
	o.store.Update(callID, func(s *call.Session) {
		s.State = call.StateSaved
	})
	slog.Info("orchestrator: lead saved", "call_id", callID)
}

// Teardown ends the call: it forces a final settle if the call reached
// Active or produced any transcript, closes the model session, and removes
// the session from the store. Safe to call from multiple paths; later calls
// no-op.
func (o *Orchestrator) Teardown(callID, reason string) {
	o.settle.Cancel(callID)

	sess, ok := o.store.Get(callID)
	if !ok {
		return
	}

	// Any call that reached Active gets its one save attempt even when the
	// transcript stayed empty.
	if !sess.Saved && (sess.State == call.StateActive || len(sess.Transcript) > 0) {
		o.settleFire(callID, reason)
	}

	// Close whatever model session is attached right now, under the store's
	// lock: a snapshot taken above could miss one attached concurrently by
	// openModel, leaking its connection and event loop.
	o.store.Update(callID, func(s *call.Session) {
		if s.Model != nil {
			_ = s.Model.Close()
		}
		s.State = call.StateClosed
		s.Model = nil
	})
	o.store.Delete(callID)

	o.mu.Lock()
	start, started := o.starts[callID]
	delete(o.starts, callID)
	o.mu.Unlock()
	if started {
		o.metrics.CallEnded(context.Background(), time.Since(start))
		slog.Info("orchestrator: call closed",
			"call_id", callID, "reason", reason, "duration", time.Since(start).Round(time.Millisecond))
	}
}

// Close tears down every live call and waits for all orchestrator goroutines
// to drain. Called once at shutdown.
func (o *Orchestrator) Close() {
	for _, id := range o.store.CallIDs() {
		o.Teardown(id, reasonShutdown)
	}
	o.cancel()
	o.wg.Wait()
}
