package leadstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakySaver fails until fixed.
type flakySaver struct {
	err   error
	calls int
}

func (f *flakySaver) SaveLead(_ context.Context, _ Lead) error {
	f.calls++
	return f.err
}

func TestGuardedSaver_PassThrough(t *testing.T) {
	inner := &flakySaver{}
	g := NewGuardedSaver(inner, GuardedSaverConfig{})

	if err := g.SaveLead(context.Background(), Lead{CallID: "c1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
}

func TestGuardedSaver_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakySaver{err: errors.New("connection refused")}
	g := NewGuardedSaver(inner, GuardedSaverConfig{MaxFailures: 3, ResetTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		if err := g.SaveLead(context.Background(), Lead{CallID: "c1"}); err == nil {
			t.Fatalf("attempt %d: expected failure", i)
		}
	}

	// Fourth attempt is rejected without reaching the store.
	err := g.SaveLead(context.Background(), Lead{CallID: "c1"})
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
}

func TestGuardedSaver_FailureCountResetsOnSuccess(t *testing.T) {
	inner := &flakySaver{err: errors.New("timeout")}
	g := NewGuardedSaver(inner, GuardedSaverConfig{MaxFailures: 3, ResetTimeout: time.Hour})

	_ = g.SaveLead(context.Background(), Lead{})
	_ = g.SaveLead(context.Background(), Lead{})

	inner.err = nil
	if err := g.SaveLead(context.Background(), Lead{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two more failures must not open the guard; the counter was reset.
	inner.err = errors.New("timeout")
	_ = g.SaveLead(context.Background(), Lead{})
	_ = g.SaveLead(context.Background(), Lead{})
	inner.err = nil
	if err := g.SaveLead(context.Background(), Lead{}); errors.Is(err, ErrStoreUnavailable) {
		t.Fatal("guard opened despite intervening success")
	}
}

func TestGuardedSaver_RecoversThroughProbes(t *testing.T) {
	inner := &flakySaver{err: errors.New("down")}
	g := NewGuardedSaver(inner, GuardedSaverConfig{
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
		ProbeMax:     2,
	})

	// Trip the guard.
	_ = g.SaveLead(context.Background(), Lead{})
	if err := g.SaveLead(context.Background(), Lead{}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}

	// After the reset timeout, successful probes restore service.
	inner.err = nil
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 2; i++ {
		if err := g.SaveLead(context.Background(), Lead{}); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if err := g.SaveLead(context.Background(), Lead{}); err != nil {
		t.Fatalf("post-recovery save: %v", err)
	}
}

func TestGuardedSaver_ProbeFailureReopens(t *testing.T) {
	inner := &flakySaver{err: errors.New("down")}
	g := NewGuardedSaver(inner, GuardedSaverConfig{
		MaxFailures:  1,
		ResetTimeout: 10 * time.Millisecond,
		ProbeMax:     2,
	})

	_ = g.SaveLead(context.Background(), Lead{})
	time.Sleep(20 * time.Millisecond)

	// The probe itself fails: back to rejecting immediately.
	if err := g.SaveLead(context.Background(), Lead{}); err == nil || errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("probe error = %v, want the store's own error", err)
	}
	if err := g.SaveLead(context.Background(), Lead{}); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
}
