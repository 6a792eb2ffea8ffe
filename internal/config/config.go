// Package config loads and validates the tracefold configuration: business
// transaction definitions, ingestion settings, thresholds, and the tracing
// and output surfaces. Rule definitions are resolved into engine objects at
// load time, so a bad pattern source or depth fails fast.
package config

import (
	"fmt"
	"strings"

	"github.com/torosent/tracefold/internal/classify"
	"github.com/torosent/tracefold/internal/naming"
	"github.com/torosent/tracefold/internal/trace"
	"github.com/torosent/tracefold/internal/valuesource"
)

// Config is the root configuration.
type Config struct {
	Input       []string     `mapstructure:"input"`
	Definitions []Definition `mapstructure:"definitions"`
	Idents      IdentsConfig `mapstructure:"idents"`

	Workers int     `mapstructure:"workers"`
	Rate    float64 `mapstructure:"rate"`

	Thresholds []string `mapstructure:"thresholds"`

	JSONOutput bool   `mapstructure:"json_output"`
	ExportJSON string `mapstructure:"export_json"`
	ExportYAML string `mapstructure:"export_yaml"`
	Verbose    bool   `mapstructure:"verbose"`

	Tracing TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// Definition configures one business transaction definition.
type Definition struct {
	Name           string            `mapstructure:"name"`
	When           *ExpressionConfig `mapstructure:"when"`
	NameExtraction *ExpressionConfig `mapstructure:"name_extraction"`
}

// ExpressionConfig configures one name-extraction expression.
type ExpressionConfig struct {
	Pattern        string `mapstructure:"pattern"`
	Template       string `mapstructure:"template"`
	MaxSearchDepth *int   `mapstructure:"max_search_depth"`
	SearchInTrace  bool   `mapstructure:"search_in_trace"`
	Source         string `mapstructure:"source"`
}

// IdentsConfig points at the ident registry feeding the name resolver.
type IdentsConfig struct {
	Path string `mapstructure:"path"`
}

// TracingConfig configures the OTLP exporter for self-instrumentation.
type TracingConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	var issues []string

	if len(c.Input) == 0 {
		issues = append(issues, "input: at least one trace file is required (use --help for usage information)")
	}
	if c.Workers < 0 {
		issues = append(issues, "workers: must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate: must be >= 0")
	}

	for i, def := range c.Definitions {
		prefix := fmt.Sprintf("definitions[%d]", i)
		if strings.TrimSpace(def.Name) == "" {
			issues = append(issues, prefix+": name is required")
		}
		if def.When != nil {
			issues = append(issues, validateExpression(prefix+".when", *def.When)...)
		}
		if def.NameExtraction != nil {
			issues = append(issues, validateExpression(prefix+".name_extraction", *def.NameExtraction)...)
		}
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		issues = append(issues, fmt.Sprintf("tracing.sample_rate: must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}

	if len(issues) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(issues, "\n  - "))
	}
	return nil
}

func validateExpression(prefix string, e ExpressionConfig) []string {
	var issues []string
	if strings.TrimSpace(e.Source) == "" {
		issues = append(issues, prefix+".source: value source binding is required")
	} else if _, err := valuesource.Parse(e.Source); err != nil {
		issues = append(issues, fmt.Sprintf("%s.source: %v", prefix, err))
	}
	if e.MaxSearchDepth != nil && *e.MaxSearchDepth < trace.UnlimitedDepth {
		issues = append(issues, fmt.Sprintf("%s.max_search_depth: must be >= -1, got %d", prefix, *e.MaxSearchDepth))
	}
	return issues
}

// BuildDefinitions materializes the configured definitions into engine
// objects. Call after Validate.
func (c Config) BuildDefinitions() ([]naming.Definition, error) {
	defs := make([]naming.Definition, 0, len(c.Definitions))
	for i, dc := range c.Definitions {
		def := naming.Definition{Name: dc.Name}

		if dc.When != nil {
			expr, err := buildExpression(*dc.When)
			if err != nil {
				return nil, fmt.Errorf("definitions[%d].when: %w", i, err)
			}
			def.When = expr
		}
		if dc.NameExtraction != nil {
			expr, err := buildExpression(*dc.NameExtraction)
			if err != nil {
				return nil, fmt.Errorf("definitions[%d].name_extraction: %w", i, err)
			}
			def.NameExtraction = expr
		}

		defs = append(defs, def)
	}
	return defs, nil
}

func buildExpression(ec ExpressionConfig) (*classify.Expression, error) {
	source, err := valuesource.Parse(ec.Source)
	if err != nil {
		return nil, err
	}

	expr := classify.NewExpression(ec.Pattern, ec.Template, source)
	expr.SearchInTrace = ec.SearchInTrace
	if ec.MaxSearchDepth != nil {
		expr.MaxSearchDepth = *ec.MaxSearchDepth
	}
	return expr, nil
}
