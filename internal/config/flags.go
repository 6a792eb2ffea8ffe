package config

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tracefold",
		Short:         "Classify traces into business transactions and fold their measurements",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Input flags
	flags.StringSliceP("input", "i", nil, "Trace JSON file to process (repeatable)")
	flags.String("idents", "", "Path to the ident registry file (method signatures, hosts)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Processing flags
	flags.IntP("workers", "w", 0, "Number of classification workers (0 = GOMAXPROCS)")
	flags.Float64P("rate", "r", 0, "Trace replay rate per second (0 means unpaced)")

	// Assertion flags
	flags.StringSlice("threshold", nil, "Performance assertion, e.g. 'checkout:p99 < 250' (repeatable)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted summary to stdout")
	flags.String("export-json", "", "Write the aggregate summary to a JSON file")
	flags.String("export-yaml", "", "Write the aggregate summary to a YAML file")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}

// displayHelp prints usage information for the command.
func displayHelp(cmd *cobra.Command) {
	_ = cmd.Help()
}
