// Package threshold evaluates performance assertions against folded business
// transaction aggregates, e.g. "checkout:p99 < 250".
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/torosent/tracefold/internal/record"
)

// Threshold represents a performance assertion over one business transaction.
type Threshold struct {
	Transaction string  // business transaction name, or "*" for all traffic combined
	Aggregate   string  // e.g., "p50", "p90", "p99", "avg", "min", "max", "count"
	Operator    string  // e.g., "<", "<=", ">", ">=", "=="
	Value       float64 // the threshold value; latencies in milliseconds
	Raw         string  // original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against transaction aggregates.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the snapshot of transaction
// aggregates, keyed by transaction name.
func (e *Evaluator) Evaluate(snapshot map[string]*record.TransactionRecord) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, e.evaluateOne(t, snapshot))
	}
	return results
}

func (e *Evaluator) evaluateOne(t Threshold, snapshot map[string]*record.TransactionRecord) Result {
	actual, err := extractValue(t, snapshot)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "checkout:p99 < 250"   (transaction p99 latency in ms)
//   - "checkout:avg < 100"   (transaction average latency in ms)
//   - "*:max < 2000"         (max latency across all transactions)
//   - "checkout:count > 10"  (number of classified traces)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	// Pattern: transaction:aggregate operator value
	pattern := regexp.MustCompile(`^(.+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected transaction:aggregate operator value, e.g. 'checkout:p99 < 250')", s)
	}

	txn := strings.TrimSpace(matches[1])
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p99, avg, min, max, count)", aggregate)
	}

	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Transaction: txn,
		Aggregate:   aggregate,
		Operator:    operator,
		Value:       value,
		Raw:         s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p90", "p99", "avg", "mean", "min", "max", "count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractValue(t Threshold, snapshot map[string]*record.TransactionRecord) (float64, error) {
	rec, err := selectRecord(t.Transaction, snapshot)
	if err != nil {
		return 0, err
	}

	switch t.Aggregate {
	case "p50":
		return ms(rec.Percentile(50)), nil
	case "p90":
		return ms(rec.Percentile(90)), nil
	case "p99":
		return ms(rec.Percentile(99)), nil
	case "avg", "mean":
		return ms(rec.Mean()), nil
	case "min":
		return ms(rec.Min), nil
	case "max":
		return ms(rec.Max), nil
	case "count":
		return float64(rec.Count), nil
	default:
		return 0, fmt.Errorf("unknown aggregate: %s", t.Aggregate)
	}
}

// selectRecord picks the record for a transaction name, folding the whole
// snapshot together for the "*" wildcard.
func selectRecord(txn string, snapshot map[string]*record.TransactionRecord) (*record.TransactionRecord, error) {
	if txn != "*" {
		rec, ok := snapshot[txn]
		if !ok {
			return nil, fmt.Errorf("no traffic for transaction %q", txn)
		}
		return rec, nil
	}

	if len(snapshot) == 0 {
		return nil, fmt.Errorf("no traffic recorded")
	}
	all := record.NewTransactionRecord("*")
	for _, rec := range snapshot {
		all.TimerRecord.Merge(rec.TimerRecord)
	}
	return all, nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
