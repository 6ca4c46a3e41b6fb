package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	recur "github.com/xraph/recur"
	"github.com/xraph/recur/charge"
	"github.com/xraph/recur/id"
	"github.com/xraph/recur/offering"
	"github.com/xraph/recur/scheduler"
)

type fakeCharger struct {
	mu    sync.Mutex
	calls []offering.ID
	err   error
}

func (f *fakeCharger) ChargeAll(_ context.Context, offeringID offering.ID, _ ...recur.BatchOption) (*charge.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, offeringID)
	if f.err != nil {
		return nil, f.err
	}
	return &charge.BatchResult{
		ID:         id.NewBatchID(),
		OfferingID: offeringID,
		Succeeded:  1,
		Failed:     1,
		Failures:   []charge.Failure{{Subscriber: "bob", Reason: recur.ErrInsufficientBalance}},
	}, nil
}

func quiet() scheduler.Option {
	return scheduler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   error
		keepsSlot bool
	}{
		{"success", nil, nil, true},
		{"inactive offering", fmt.Errorf("%w: offering 1", recur.ErrOfferingNotActive), recur.ErrOfferingNotActive, true},
		{"missing offering", recur.ErrOfferingNotFound, recur.ErrOfferingNotFound, false},
		{"halted", recur.ErrHalted, recur.ErrHalted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeCharger{err: tt.err}
			s := scheduler.New(fc, quiet())
			if err := s.Add(1, "@hourly"); err != nil {
				t.Fatal(err)
			}

			result, err := s.Run(context.Background(), 1)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && (result == nil || result.Succeeded != 1) {
				t.Errorf("result: got %+v", result)
			}
			if got := len(s.Scheduled()) == 1; got != tt.keepsSlot {
				t.Errorf("schedule kept: got %v, want %v", got, tt.keepsSlot)
			}
		})
	}
}

func TestAddReplacesAndRemove(t *testing.T) {
	s := scheduler.New(&fakeCharger{}, quiet())

	if err := s.Add(1, "not a cron spec"); err == nil {
		t.Fatal("expected invalid spec error")
	}
	if err := s.Add(1, "0 * * * *"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(1, "*/5 * * * *"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(2, "@daily"); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Scheduled()); n != 2 {
		t.Fatalf("scheduled offerings: got %d, want 2", n)
	}

	if !s.Remove(1) {
		t.Error("Remove(1) reported no schedule")
	}
	if s.Remove(1) {
		t.Error("second Remove(1) should report false")
	}

	s.Start()
	<-s.Stop().Done()
}
