// Package record defines the measurement value objects produced by
// instrumentation and consumed by the aggregation framework.
//
// Every record type carries its own merge and clone semantics:
//
//	acc := r.Clone()     // seed an accumulator, isolated from r
//	acc.Merge(other)     // fold another record in place
//
// Merging is order-independent for records sharing an aggregation key: any
// permutation of Merge calls over one Clone seed yields the same counts,
// bounds, and sums. Latency distributions are tracked with HdrHistogram,
// whose merge operation is likewise commutative.
package record
