// Package output renders and exports the aggregated classification results.
package output

import (
	"sort"
	"time"

	"github.com/torosent/tracefold/internal/aggregate"
	"github.com/torosent/tracefold/internal/record"
	"github.com/torosent/tracefold/internal/resolve"
)

// TransactionSummary is the reportable view of one business transaction
// aggregate.
type TransactionSummary struct {
	Name  string `json:"name" yaml:"name"`
	Count int64  `json:"count" yaml:"count"`

	MinMs  float64 `json:"min_ms" yaml:"min_ms"`
	MaxMs  float64 `json:"max_ms" yaml:"max_ms"`
	MeanMs float64 `json:"mean_ms" yaml:"mean_ms"`
	P50Ms  float64 `json:"p50_ms" yaml:"p50_ms"`
	P90Ms  float64 `json:"p90_ms" yaml:"p90_ms"`
	P99Ms  float64 `json:"p99_ms" yaml:"p99_ms"`
}

// MethodSummary is the reportable view of one method timer aggregate.
type MethodSummary struct {
	Method string `json:"method" yaml:"method"`
	Host   string `json:"host,omitempty" yaml:"host,omitempty"`
	Count  int64  `json:"count" yaml:"count"`

	MeanMs          float64 `json:"mean_ms" yaml:"mean_ms"`
	MaxMs           float64 `json:"max_ms" yaml:"max_ms"`
	ExclusiveMeanMs float64 `json:"exclusive_mean_ms" yaml:"exclusive_mean_ms"`
}

// SensorSummary is the reportable view of one sensor value aggregate.
type SensorSummary struct {
	DefinitionID uint64  `json:"definition_id" yaml:"definition_id"`
	Count        int64   `json:"count" yaml:"count"`
	Min          float64 `json:"min" yaml:"min"`
	Max          float64 `json:"max" yaml:"max"`
	Average      float64 `json:"average" yaml:"average"`
}

// Summary is the full aggregate report.
type Summary struct {
	GeneratedAt  time.Time            `json:"generated_at" yaml:"generated_at"`
	Traces       int64                `json:"traces" yaml:"traces"`
	Nodes        int64                `json:"nodes" yaml:"nodes"`
	Errors       int64                `json:"errors,omitempty" yaml:"errors,omitempty"`
	Transactions []TransactionSummary `json:"transactions" yaml:"transactions"`
	Methods      []MethodSummary      `json:"methods,omitempty" yaml:"methods,omitempty"`
	Sensors      []SensorSummary      `json:"sensors,omitempty" yaml:"sensors,omitempty"`
}

// BuildSummary assembles a report from store snapshots, resolving method and
// platform idents to names where the resolver knows them.
func BuildSummary(
	transactions map[aggregate.Key]*record.TransactionRecord,
	timers map[aggregate.Key]*record.TimerRecord,
	sensors map[aggregate.Key]*record.SensorValueRecord,
	r resolve.Resolver,
) Summary {
	s := Summary{GeneratedAt: time.Now()}

	for _, rec := range transactions {
		s.Transactions = append(s.Transactions, TransactionSummary{
			Name:   rec.Name,
			Count:  rec.Count,
			MinMs:  ms(rec.Min),
			MaxMs:  ms(rec.Max),
			MeanMs: ms(rec.Mean()),
			P50Ms:  ms(rec.Percentile(50)),
			P90Ms:  ms(rec.Percentile(90)),
			P99Ms:  ms(rec.Percentile(99)),
		})
		s.Traces += rec.Count
	}
	sort.Slice(s.Transactions, func(i, j int) bool {
		if s.Transactions[i].Count == s.Transactions[j].Count {
			return s.Transactions[i].Name < s.Transactions[j].Name
		}
		return s.Transactions[i].Count > s.Transactions[j].Count
	})

	for _, rec := range timers {
		m := MethodSummary{
			Count:           rec.Count,
			MeanMs:          ms(rec.Mean()),
			MaxMs:           ms(rec.Max),
			ExclusiveMeanMs: ms(exclusiveMean(rec)),
		}
		if sig, err := r.MethodSignature(rec.MethodID); err == nil {
			m.Method = sig
		}
		if host, err := r.HostName(rec.PlatformID); err == nil {
			m.Host = host
		}
		s.Methods = append(s.Methods, m)
		s.Nodes += rec.Count
	}
	sort.Slice(s.Methods, func(i, j int) bool {
		if s.Methods[i].Count == s.Methods[j].Count {
			return s.Methods[i].Method < s.Methods[j].Method
		}
		return s.Methods[i].Count > s.Methods[j].Count
	})

	for _, rec := range sensors {
		s.Sensors = append(s.Sensors, SensorSummary{
			DefinitionID: rec.DefinitionID,
			Count:        rec.Count,
			Min:          rec.Min,
			Max:          rec.Max,
			Average:      rec.Average(),
		})
	}
	sort.Slice(s.Sensors, func(i, j int) bool {
		return s.Sensors[i].DefinitionID < s.Sensors[j].DefinitionID
	})

	return s
}

func exclusiveMean(rec *record.TimerRecord) time.Duration {
	if rec.ExclusiveCount == 0 {
		return 0
	}
	return time.Duration(int64(rec.ExclusiveSum) / rec.ExclusiveCount)
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
