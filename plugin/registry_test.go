package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/xraph/recur/event"
	"github.com/xraph/recur/plugin"
)

type chargeWatcher struct {
	mu      sync.Mutex
	charged []*event.SubscriptionCharged
	all     []event.Name
	fail    bool
}

func (w *chargeWatcher) Name() string { return "charge-watcher" }

func (w *chargeWatcher) OnSubscriptionCharged(_ context.Context, e *event.SubscriptionCharged) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.charged = append(w.charged, e)
	if w.fail {
		return errors.New("watcher down")
	}
	return nil
}

func (w *chargeWatcher) HandleEvent(_ context.Context, e event.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.all = append(w.all, e.EventName())
	return nil
}

type slowPlugin struct{ release chan struct{} }

func (s *slowPlugin) Name() string { return "slow" }

func (s *slowPlugin) HandleEvent(context.Context, event.Event) error {
	<-s.release
	return nil
}

type named string

func (n named) Name() string { return string(n) }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRegisterDuplicate(t *testing.T) {
	r := plugin.NewRegistry().WithLogger(quiet())

	if err := r.Register(named("audit")); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(named("audit")); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := r.Register(named("metrics")); err != nil {
		t.Fatal(err)
	}

	if r.Count() != 2 {
		t.Errorf("Count: got %d, want 2", r.Count())
	}
	if r.Get("metrics") == nil {
		t.Error("Get(metrics) returned nil")
	}
	if r.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
	if names := r.List(); names[0].Name() != "audit" {
		t.Errorf("List order: got %s first", names[0].Name())
	}
}

func TestEmitDispatchesTypedAndCatchAll(t *testing.T) {
	r := plugin.NewRegistry().WithLogger(quiet())
	w := &chargeWatcher{fail: true}
	if err := r.Register(w); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	now := time.Now()
	r.Emit(ctx, &event.SubscriptionCharged{Meta: event.NewMeta(now), OfferingID: 1, Subscriber: "alice"})
	r.Emit(ctx, &event.OfferingPaused{Meta: event.NewMeta(now), OfferingID: 1})

	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.charged) != 1 {
		t.Errorf("typed hook calls: got %d, want 1", len(w.charged))
	}
	want := []event.Name{event.NameSubscriptionCharged, event.NameOfferingPaused}
	if len(w.all) != len(want) {
		t.Fatalf("catch-all calls: got %v, want %v", w.all, want)
	}
	for i := range want {
		if w.all[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, w.all[i], want[i])
		}
	}
}

func TestEmitTimesOutSlowPlugin(t *testing.T) {
	r := plugin.NewRegistry().WithLogger(quiet()).WithTimeout(20 * time.Millisecond)
	slow := &slowPlugin{release: make(chan struct{})}
	defer close(slow.release)

	if err := r.Register(slow); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		r.Emit(context.Background(), &event.OfferingUnpaused{Meta: event.NewMeta(time.Now()), OfferingID: 1})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a slow plugin")
	}
}
