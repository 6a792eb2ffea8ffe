// Package aggregate defines the contract for folding measurement records into
// per-key accumulators, and the concrete aggregators for each record kind.
//
// Aggregator implementations are stateless empty structs. Their identity is
// their concrete type alone: two instances of the same aggregator compare
// equal and hash identically as map keys, which lets the storage layer reuse
// instances as cache keys. TypeTag exposes the same discriminant as a stable
// string for serialized cache indexes.
package aggregate

import (
	"fmt"

	"github.com/torosent/tracefold/internal/record"
)

// Key groups records destined for the same accumulator. Keys are opaque,
// equality-stable strings; domain-equal records yield equal keys.
type Key string

// Aggregator defines merge, clone, and key derivation for one record type.
//
// Aggregate merges incoming into accumulator in place. The observable result
// is independent of merge order; the surrounding storage layer guarantees at
// most one in-flight Aggregate or Clone call per accumulator. Merging a
// record whose key differs from the accumulator's is a caller contract
// violation and is not detected here.
type Aggregator[T any] interface {
	// Aggregate merges incoming into accumulator in place.
	Aggregate(accumulator, incoming T)

	// Clone returns a copy of rec deep enough to seed an accumulator that
	// later merges never mutate rec through.
	Clone(rec T) T

	// Key derives the aggregation key for rec. Pure and deterministic.
	Key(rec T) Key

	// TypeTag returns the stable type discriminant of this aggregator.
	TypeTag() string
}

// TimerAggregator aggregates timer records per platform and method.
type TimerAggregator struct{}

// Aggregate implements Aggregator.
func (TimerAggregator) Aggregate(accumulator, incoming *record.TimerRecord) {
	accumulator.Merge(incoming)
}

// Clone implements Aggregator.
func (TimerAggregator) Clone(rec *record.TimerRecord) *record.TimerRecord {
	return rec.Clone()
}

// Key implements Aggregator.
func (TimerAggregator) Key(rec *record.TimerRecord) Key {
	return Key(fmt.Sprintf("timer/%d/%d", rec.PlatformID, rec.MethodID))
}

// TypeTag implements Aggregator.
func (TimerAggregator) TypeTag() string { return "timer" }

// SensorValueAggregator aggregates sensor value records per definition id.
type SensorValueAggregator struct{}

// Aggregate implements Aggregator.
func (SensorValueAggregator) Aggregate(accumulator, incoming *record.SensorValueRecord) {
	accumulator.Merge(incoming)
}

// Clone implements Aggregator.
func (SensorValueAggregator) Clone(rec *record.SensorValueRecord) *record.SensorValueRecord {
	return rec.Clone()
}

// Key implements Aggregator.
func (SensorValueAggregator) Key(rec *record.SensorValueRecord) Key {
	return Key(fmt.Sprintf("sensor/%d", rec.DefinitionID))
}

// TypeTag implements Aggregator.
func (SensorValueAggregator) TypeTag() string { return "sensor" }

// TransactionAggregator aggregates transaction records per business
// transaction name.
type TransactionAggregator struct{}

// Aggregate implements Aggregator.
func (TransactionAggregator) Aggregate(accumulator, incoming *record.TransactionRecord) {
	accumulator.Merge(incoming)
}

// Clone implements Aggregator.
func (TransactionAggregator) Clone(rec *record.TransactionRecord) *record.TransactionRecord {
	return rec.Clone()
}

// Key implements Aggregator.
func (TransactionAggregator) Key(rec *record.TransactionRecord) Key {
	return Key("btx/" + rec.Name)
}

// TypeTag implements Aggregator.
func (TransactionAggregator) TypeTag() string { return "transaction" }
