package record

import "time"

// SensorValueRecord captures sampled values for one sensor definition, e.g. a
// JVM heap gauge or a connection pool size. The definition id groups records
// of the same logical metric.
type SensorValueRecord struct {
	DefinitionID uint64

	Count int64
	Min   float64
	Max   float64
	Sum   float64

	First time.Time
	Last  time.Time
}

// NewSensorValueRecord creates an empty record for the given definition.
func NewSensorValueRecord(definitionID uint64) *SensorValueRecord {
	return &SensorValueRecord{DefinitionID: definitionID}
}

// Observe records a single sampled value at the given time.
func (r *SensorValueRecord) Observe(value float64, at time.Time) {
	if r.Count == 0 || value < r.Min {
		r.Min = value
	}
	if r.Count == 0 || value > r.Max {
		r.Max = value
	}
	r.Count++
	r.Sum += value

	if r.First.IsZero() || at.Before(r.First) {
		r.First = at
	}
	if at.After(r.Last) {
		r.Last = at
	}
}

// Merge folds other into r in place; other is not modified.
func (r *SensorValueRecord) Merge(other *SensorValueRecord) {
	if other == nil || other.Count == 0 {
		return
	}
	if r.Count == 0 || other.Min < r.Min {
		r.Min = other.Min
	}
	if r.Count == 0 || other.Max > r.Max {
		r.Max = other.Max
	}
	r.Count += other.Count
	r.Sum += other.Sum

	if !other.First.IsZero() && (r.First.IsZero() || other.First.Before(r.First)) {
		r.First = other.First
	}
	if other.Last.After(r.Last) {
		r.Last = other.Last
	}
}

// Clone returns a copy of r that can be merged into without mutating r.
func (r *SensorValueRecord) Clone() *SensorValueRecord {
	clone := *r
	return &clone
}

// Average returns the mean sampled value, or 0 for an empty record.
func (r *SensorValueRecord) Average() float64 {
	if r.Count == 0 {
		return 0
	}
	return r.Sum / float64(r.Count)
}

// Equal reports domain equality between two sensor value records.
func (r *SensorValueRecord) Equal(other *SensorValueRecord) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.DefinitionID == other.DefinitionID &&
		r.Count == other.Count &&
		r.Min == other.Min &&
		r.Max == other.Max &&
		r.Sum == other.Sum &&
		r.First.Equal(other.First) &&
		r.Last.Equal(other.Last)
}
