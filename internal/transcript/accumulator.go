// Package transcript appends speaker-tagged utterances to call transcripts
// and sweeps caller utterances for extractable lead fields.
//
// The accumulator sits between the model event stream and the session store.
// It must never let an extraction failure escape into the audio or signaling
// path: extractor panics are recovered, logged, and leave prior field values
// intact.
package transcript

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lexline-ai/lexline/internal/call"
	"github.com/lexline-ai/lexline/internal/extract"
	"github.com/lexline-ai/lexline/internal/observe"
)

// Accumulator records utterances against sessions in the store.
type Accumulator struct {
	store   *call.Store
	metrics *observe.Metrics

	// now is injectable so tests can pin the reference date used for
	// relative date extraction.
	now func() time.Time
}

// New creates an Accumulator over the given session store.
func New(store *call.Store, metrics *observe.Metrics) *Accumulator {
	return &Accumulator{store: store, metrics: metrics, now: time.Now}
}

// WithClock overrides the wall clock used as the reference date for relative
// date expressions. Test use only.
func (a *Accumulator) WithClock(now func() time.Time) *Accumulator {
	a.now = now
	return a
}

// Record appends the utterance to the call's transcript log. Caller
// utterances additionally sweep every currently-empty lead field, plus the
// accumulate-only injuries field, applying all updates atomically under the
// session's lock. Empty or whitespace-only text is ignored entirely.
//
// Returns false when no session exists for callID.
func (a *Accumulator) Record(callID string, speaker call.Speaker, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	ref := a.now()
	var extracted []string

	ok := a.store.Update(callID, func(s *call.Session) {
		s.Transcript = append(s.Transcript, call.Utterance{Speaker: speaker, Text: text})
		if speaker != call.SpeakerCaller {
			return
		}
		extracted = sweep(s, text, ref)
	})
	if !ok {
		return false
	}

	if speaker == call.SpeakerCaller {
		a.metrics.UtteranceRecorded(context.Background())
		for _, f := range extracted {
			a.metrics.FieldExtracted(context.Background(), f)
		}
	}
	return true
}

// sweep runs extractors for all unfilled fields against text and applies the
// results to s. It returns the names of the fields it filled or extended.
// Any extractor panic is contained here so the transcript pipeline survives
// malformed input.
func sweep(s *call.Session, text string, ref time.Time) (filled []string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("transcript: extraction panic recovered",
				"call_id", s.CallID, "panic", r)
		}
	}()

	for _, field := range extract.Fields() {
		current := s.Fields[field]

		// Injuries accumulate; every other field is set-once-if-empty.
		if field != extract.FieldInjuries && current != "" {
			continue
		}

		value, ok := extract.ExtractAt(field, text, ref)
		if !ok {
			continue
		}

		if field == extract.FieldInjuries {
			merged := extract.MergeInjuries(current, value)
			if merged == current {
				continue
			}
			s.Fields[field] = merged
		} else {
			s.Fields[field] = value
		}
		filled = append(filled, field)
	}
	return filled
}
