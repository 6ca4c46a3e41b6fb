package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/recur/event"
	"github.com/xraph/recur/observability"
	"github.com/xraph/recur/types"
)

func TestMetricsExtensionCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))

	ctx := context.Background()
	meta := event.NewMeta(time.Now())

	for range 3 {
		if err := m.OnSubscriptionCharged(ctx, &event.SubscriptionCharged{Meta: meta, Amount: types.Tokens(2)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.OnBatchChargeCompleted(ctx, &event.BatchChargeCompleted{Meta: meta, SuccessCount: 3, FailCount: 1}); err != nil {
		t.Fatal(err)
	}
	if err := m.OnUserSubscribed(ctx, &event.UserSubscribed{Meta: meta}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		c    observability.Counter
		want float64
	}{
		{"charges", m.SubscriptionCharged, 3},
		{"tokens", m.ChargedTokens, 6},
		{"batches", m.BatchCompleted, 1},
		{"batch charged", m.BatchCharged, 3},
		{"batch failed", m.BatchFailed, 1},
		{"subscribed", m.UserSubscribed, 1},
		{"canceled", m.SubscriptionCanceled, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := testutil.ToFloat64(tt.c.(prometheus.Counter))
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrometheusFactoryNamesAndSharing(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := observability.NewPrometheusFactory(reg)
	b := observability.NewPrometheusFactory(reg)

	a.Counter("recur.offering.created").Inc()
	b.Counter("recur.offering.created").Inc()

	n, err := testutil.GatherAndCount(reg, "recur_offering_created_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("registered series: got %d, want 1", n)
	}
	if got := testutil.ToFloat64(a.Counter("recur.offering.created").(prometheus.Counter)); got != 2 {
		t.Errorf("shared counter: got %v, want 2", got)
	}
}
