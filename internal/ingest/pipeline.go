package ingest

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/torosent/tracefold/internal/naming"
	"github.com/torosent/tracefold/internal/record"
	"github.com/torosent/tracefold/internal/resolve"
	"github.com/torosent/tracefold/internal/store"
	"github.com/torosent/tracefold/internal/trace"
)

// Pipeline classifies traces into business transactions and folds their
// measurement records into the configured stores.
type Pipeline struct {
	Classifier   *naming.Classifier
	Resolver     resolve.Resolver
	Transactions *store.Store[*record.TransactionRecord]
	Timers       *store.Store[*record.TimerRecord]
	Sensors      *store.Store[*record.SensorValueRecord]

	// Workers bounds the classification fan-out; 0 means GOMAXPROCS.
	Workers int

	// Limiter paces trace replay; nil means unpaced.
	Limiter *rate.Limiter

	Log *zap.Logger
}

// Stats summarizes one pipeline run.
type Stats struct {
	Traces int64
	Nodes  int64
	Errors int64
}

// Run feeds the traces through classification and aggregation. Classification
// failures are logged and counted, not fatal; the returned error reflects
// context cancellation only.
func (p *Pipeline) Run(ctx context.Context, traces []*trace.Node) (Stats, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var stats Stats
	work := make(chan *trace.Node)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for root := range work {
				p.process(root, &stats, log)
			}
		}()
	}

	var runErr error
feed:
	for _, root := range traces {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				runErr = err
				break feed
			}
		}
		select {
		case work <- root:
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		}
	}
	close(work)
	wg.Wait()

	return stats, runErr
}

func (p *Pipeline) process(root *trace.Node, stats *Stats, log *zap.Logger) {
	atomic.AddInt64(&stats.Traces, 1)

	name, err := p.Classifier.Classify(root, p.Resolver)
	if err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		log.Warn("classification failed",
			zap.String("trace", root.ID),
			zap.Error(err))
		name = naming.DefaultTransaction
	}

	if p.Transactions != nil {
		txn := record.NewTransactionRecord(name)
		txn.Observe(root.Duration, exclusiveDuration(root))
		p.Transactions.Fold(txn)
	}

	root.Walk(func(n *trace.Node) bool {
		atomic.AddInt64(&stats.Nodes, 1)

		if p.Timers != nil && n.MethodID != 0 {
			timer := record.NewTimerRecord(n.PlatformID, n.MethodID)
			timer.Observe(n.Duration, exclusiveDuration(n))
			p.Timers.Fold(timer)
		}
		if p.Sensors != nil {
			for _, sensor := range n.Sensors {
				p.Sensors.Fold(sensor)
			}
		}
		return true
	})
}

// exclusiveDuration is the node's own time: total duration minus the time
// spent in children, clamped at zero for clock-skewed captures.
func exclusiveDuration(n *trace.Node) time.Duration {
	d := n.Duration
	for _, child := range n.Children {
		d -= child.Duration
	}
	if d < 0 {
		d = 0
	}
	return d
}
