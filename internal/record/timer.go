package record

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram bounds: 1µs to 60s with 3 significant figures.
const (
	histogramMin    = 1
	histogramMax    = 60_000_000
	histogramSigFig = 3
)

// TimerRecord captures timing measurements for one method on one platform.
// A freshly observed record holds a single measurement; merged records
// accumulate counts, bounds, sums, and the latency distribution.
type TimerRecord struct {
	PlatformID uint64
	MethodID   uint64

	Count int64
	Min   time.Duration
	Max   time.Duration
	Sum   time.Duration

	ExclusiveCount int64
	ExclusiveMin   time.Duration
	ExclusiveMax   time.Duration
	ExclusiveSum   time.Duration

	hist *hdrhistogram.Histogram
}

// NewTimerRecord creates an empty timer record for the given idents.
func NewTimerRecord(platformID, methodID uint64) *TimerRecord {
	return &TimerRecord{
		PlatformID: platformID,
		MethodID:   methodID,
		hist:       hdrhistogram.New(histogramMin, histogramMax, histogramSigFig),
	}
}

// Observe records a single invocation's total and exclusive duration.
func (r *TimerRecord) Observe(total, exclusive time.Duration) {
	if r.Count == 0 || total < r.Min {
		r.Min = total
	}
	if total > r.Max {
		r.Max = total
	}
	r.Count++
	r.Sum += total

	if r.ExclusiveCount == 0 || exclusive < r.ExclusiveMin {
		r.ExclusiveMin = exclusive
	}
	if exclusive > r.ExclusiveMax {
		r.ExclusiveMax = exclusive
	}
	r.ExclusiveCount++
	r.ExclusiveSum += exclusive

	r.recordHist(total)
}

func (r *TimerRecord) recordHist(d time.Duration) {
	if r.hist == nil {
		r.hist = hdrhistogram.New(histogramMin, histogramMax, histogramSigFig)
	}
	us := d.Microseconds()
	if us < r.hist.LowestTrackableValue() {
		us = r.hist.LowestTrackableValue()
	}
	if us > r.hist.HighestTrackableValue() {
		us = r.hist.HighestTrackableValue()
	}
	_ = r.hist.RecordValue(us)
}

// Merge folds other into r in place. The caller guarantees both records share
// an aggregation key; other is not modified.
func (r *TimerRecord) Merge(other *TimerRecord) {
	if other == nil || other.Count == 0 {
		return
	}
	if r.Count == 0 || other.Min < r.Min {
		r.Min = other.Min
	}
	if other.Max > r.Max {
		r.Max = other.Max
	}
	r.Count += other.Count
	r.Sum += other.Sum

	if other.ExclusiveCount > 0 {
		if r.ExclusiveCount == 0 || other.ExclusiveMin < r.ExclusiveMin {
			r.ExclusiveMin = other.ExclusiveMin
		}
		if other.ExclusiveMax > r.ExclusiveMax {
			r.ExclusiveMax = other.ExclusiveMax
		}
		r.ExclusiveCount += other.ExclusiveCount
		r.ExclusiveSum += other.ExclusiveSum
	}

	if other.hist != nil {
		if r.hist == nil {
			r.hist = hdrhistogram.New(histogramMin, histogramMax, histogramSigFig)
		}
		r.hist.Merge(other.hist)
	}
}

// Clone returns a deep copy of r. Merging into the clone never mutates r.
func (r *TimerRecord) Clone() *TimerRecord {
	clone := *r
	clone.hist = hdrhistogram.New(histogramMin, histogramMax, histogramSigFig)
	if r.hist != nil {
		clone.hist.Merge(r.hist)
	}
	return &clone
}

// Mean returns the average total duration, or 0 for an empty record.
func (r *TimerRecord) Mean() time.Duration {
	if r.Count == 0 {
		return 0
	}
	return time.Duration(int64(r.Sum) / r.Count)
}

// Percentile returns the duration at quantile q (0-100) from the latency
// distribution, or 0 when no measurements were recorded.
func (r *TimerRecord) Percentile(q float64) time.Duration {
	if r.hist == nil || r.hist.TotalCount() == 0 {
		return 0
	}
	return time.Duration(r.hist.ValueAtQuantile(q)) * time.Microsecond
}

// Equal reports domain equality: same idents, counts, bounds, and sums.
// Histogram internals are excluded.
func (r *TimerRecord) Equal(other *TimerRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.PlatformID == other.PlatformID &&
		r.MethodID == other.MethodID &&
		r.Count == other.Count &&
		r.Min == other.Min &&
		r.Max == other.Max &&
		r.Sum == other.Sum &&
		r.ExclusiveCount == other.ExclusiveCount &&
		r.ExclusiveMin == other.ExclusiveMin &&
		r.ExclusiveMax == other.ExclusiveMax &&
		r.ExclusiveSum == other.ExclusiveSum
}
