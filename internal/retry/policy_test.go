package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	slept []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return nil
}

func TestDoExhausts(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	p := NewExponential(3, time.Second)
	p.Sleep = rec.sleep

	boom := errors.New("boom")
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do() error = %v, want boom", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if diff := cmp.Diff(want, rec.slept); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestDoStopsOnSuccess(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	p := NewExponential(3, time.Second)
	p.Sleep = rec.sleep

	var attempts []int
	err := p.Do(context.Background(), func(attempt int) error {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, attempts); diff != "" {
		t.Errorf("attempts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{time.Second}, rec.slept); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
}

func TestDoHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := NewExponential(3, time.Hour).Do(ctx, func(int) error {
		calls++
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExponential(t *testing.T) {
	t.Parallel()

	b := Exponential(500 * time.Millisecond)
	for attempt, want := range map[int]time.Duration{
		0: 500 * time.Millisecond,
		1: 500 * time.Millisecond,
		2: time.Second,
		4: 4 * time.Second,
	} {
		if got := b(attempt); got != want {
			t.Errorf("Exponential(%d) = %v, want %v", attempt, got, want)
		}
	}
}
