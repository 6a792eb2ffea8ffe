package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/torosent/tracefold/internal/threshold"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, s Summary) {
	fmt.Fprintln(w, "\n--- Business Transactions ---")
	fmt.Fprintf(w, "Traces:            %d\n", s.Traces)
	fmt.Fprintf(w, "Invocations:       %d\n", s.Nodes)
	if s.Errors > 0 {
		fmt.Fprintf(w, "Errors:            %d\n", s.Errors)
	}

	for _, txn := range s.Transactions {
		share := 0.0
		if s.Traces > 0 {
			share = (float64(txn.Count) / float64(s.Traces)) * 100
		}
		fmt.Fprintf(
			w,
			"  - %s: count=%d (%.1f%%), mean=%.2fms, p50=%.2fms, p90=%.2fms, p99=%.2fms, max=%.2fms\n",
			txn.Name,
			txn.Count,
			share,
			txn.MeanMs,
			txn.P50Ms,
			txn.P90Ms,
			txn.P99Ms,
			txn.MaxMs,
		)
	}

	if len(s.Methods) > 0 {
		fmt.Fprintln(w, "\nMethod Breakdown:")
		for _, m := range s.Methods {
			name := m.Method
			if name == "" {
				name = "(unresolved)"
			}
			fmt.Fprintf(
				w,
				"  - %s: count=%d, mean=%.2fms, exclusive=%.2fms, max=%.2fms\n",
				name,
				m.Count,
				m.MeanMs,
				m.ExclusiveMeanMs,
				m.MaxMs,
			)
		}
	}

	if len(s.Sensors) > 0 {
		fmt.Fprintln(w, "\nSensor Values:")
		for _, sv := range s.Sensors {
			fmt.Fprintf(
				w,
				"  - definition %d: count=%d, min=%.2f, avg=%.2f, max=%.2f\n",
				sv.DefinitionID,
				sv.Count,
				sv.Min,
				sv.Average,
				sv.Max,
			)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// PrintThresholdResults outputs threshold evaluation results and reports
// whether all thresholds passed.
func PrintThresholdResults(w io.Writer, results []threshold.Result) bool {
	if len(results) == 0 {
		return true
	}

	fmt.Fprintln(w, "\nThresholds:")
	allPass := true
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
		if !r.Pass {
			allPass = false
		}
	}
	return allPass
}
