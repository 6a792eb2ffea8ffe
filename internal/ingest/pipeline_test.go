package ingest

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/tracefold/internal/aggregate"
	"github.com/torosent/tracefold/internal/classify"
	"github.com/torosent/tracefold/internal/naming"
	"github.com/torosent/tracefold/internal/record"
	"github.com/torosent/tracefold/internal/resolve"
	"github.com/torosent/tracefold/internal/store"
	"github.com/torosent/tracefold/internal/trace"
	"github.com/torosent/tracefold/internal/valuesource"
)

func shopClassifier(t *testing.T) *naming.Classifier {
	t.Helper()
	src, err := valuesource.Parse("uri")
	if err != nil {
		t.Fatal(err)
	}
	return naming.NewClassifier([]naming.Definition{{
		Name: "Shop",
		When: classify.NewExpression(`/shop/.*`, "", src),
	}})
}

func newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return &Pipeline{
		Classifier:   shopClassifier(t),
		Resolver:     resolve.NewStatic(),
		Transactions: store.New[*record.TransactionRecord](aggregate.TransactionAggregator{}),
		Timers:       store.New[*record.TimerRecord](aggregate.TimerAggregator{}),
		Sensors:      store.New[*record.SensorValueRecord](aggregate.SensorValueAggregator{}),
		Workers:      4,
		Log:          zap.NewNop(),
	}
}

func shopTrace(duration, childDuration time.Duration) *trace.Node {
	sensor := record.NewSensorValueRecord(7)
	sensor.Observe(3, time.Now())
	return &trace.Node{
		ID:         "t-1",
		PlatformID: 1,
		MethodID:   42,
		Duration:   duration,
		HTTP:       &trace.HTTPInfo{URI: "/shop/cart"},
		Sensors:    []*record.SensorValueRecord{sensor},
		Children: []*trace.Node{
			{PlatformID: 1, MethodID: 43, Duration: childDuration},
		},
	}
}

func TestPipeline_Run(t *testing.T) {
	p := newPipeline(t)

	traces := []*trace.Node{
		shopTrace(100*time.Millisecond, 40*time.Millisecond),
		shopTrace(200*time.Millisecond, 60*time.Millisecond),
		{ID: "t-other", MethodID: 50, Duration: 30 * time.Millisecond},
	}

	stats, err := p.Run(context.Background(), traces)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Traces != 3 || stats.Errors != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Nodes != 5 {
		t.Errorf("expected 5 processed nodes, got %d", stats.Nodes)
	}

	shop, ok := p.Transactions.Get(aggregate.Key("btx/Shop"))
	if !ok || shop.Count != 2 {
		t.Errorf("unexpected Shop aggregate: %+v ok=%v", shop, ok)
	}
	if shop.Sum != 300*time.Millisecond {
		t.Errorf("expected Shop total 300ms, got %s", shop.Sum)
	}

	other, ok := p.Transactions.Get(aggregate.Key("btx/" + naming.DefaultTransaction))
	if !ok || other.Count != 1 {
		t.Errorf("unclaimed trace must land in %q: %+v ok=%v", naming.DefaultTransaction, other, ok)
	}

	rootTimer, ok := p.Timers.Get(aggregate.Key("timer/1/42"))
	if !ok || rootTimer.Count != 2 {
		t.Fatalf("unexpected root timer: %+v ok=%v", rootTimer, ok)
	}
	// Exclusive time excludes child durations: 60ms and 140ms.
	if rootTimer.ExclusiveSum != 200*time.Millisecond {
		t.Errorf("expected exclusive sum 200ms, got %s", rootTimer.ExclusiveSum)
	}

	childTimer, ok := p.Timers.Get(aggregate.Key("timer/1/43"))
	if !ok || childTimer.Count != 2 || childTimer.Max != 60*time.Millisecond {
		t.Errorf("unexpected child timer: %+v ok=%v", childTimer, ok)
	}

	sensor, ok := p.Sensors.Get(aggregate.Key("sensor/7"))
	if !ok || sensor.Count != 2 || sensor.Sum != 6 {
		t.Errorf("unexpected sensor aggregate: %+v ok=%v", sensor, ok)
	}
}

func TestPipeline_ClassificationErrorFallsBack(t *testing.T) {
	src, err := valuesource.Parse("method")
	if err != nil {
		t.Fatal(err)
	}
	p := newPipeline(t)
	p.Classifier = naming.NewClassifier([]naming.Definition{{
		Name: "ByMethod",
		When: classify.NewExpression(`.*checkout.*`, "", src),
	}})

	// The resolver knows nothing, so classification errors; the trace still
	// counts and lands in the default transaction.
	stats, err := p.Run(context.Background(), []*trace.Node{
		{ID: "t-1", MethodID: 999, Duration: 10 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Traces != 1 || stats.Errors != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if rec, ok := p.Transactions.Get(aggregate.Key("btx/" + naming.DefaultTransaction)); !ok || rec.Count != 1 {
		t.Errorf("expected the failed trace in %q, got %+v ok=%v", naming.DefaultTransaction, rec, ok)
	}
}

func TestPipeline_ContextCancellation(t *testing.T) {
	p := newPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	traces := make([]*trace.Node, 100)
	for i := range traces {
		traces[i] = shopTrace(time.Millisecond, 0)
	}

	stats, err := p.Run(ctx, traces)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stats.Traces >= int64(len(traces)) {
		t.Error("cancellation must stop the feed before all traces dispatch")
	}
}

func TestPipeline_NilStoresSkipped(t *testing.T) {
	p := newPipeline(t)
	p.Timers = nil
	p.Sensors = nil

	stats, err := p.Run(context.Background(), []*trace.Node{shopTrace(time.Millisecond, 0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Traces != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if p.Transactions.Len() != 1 {
		t.Errorf("transactions still fold when other stores are disabled, len=%d", p.Transactions.Len())
	}
}
