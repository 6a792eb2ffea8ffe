package config

import (
	"strings"
	"testing"

	"github.com/torosent/tracefold/internal/trace"
	"github.com/torosent/tracefold/internal/valuesource"
)

func intPtr(i int) *int { return &i }

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid minimal config",
			cfg:  Config{Input: []string{"traces.json"}},
		},
		{
			name: "valid config with definitions",
			cfg: Config{
				Input: []string{"traces.json"},
				Definitions: []Definition{{
					Name: "Shop",
					When: &ExpressionConfig{Pattern: `/shop/.*`, Source: "uri"},
					NameExtraction: &ExpressionConfig{
						Pattern:        `/shop/([a-z]+)`,
						Template:       "Shop (1)",
						Source:         "uri",
						MaxSearchDepth: intPtr(2),
					},
				}},
			},
		},
		{
			name:    "missing input",
			cfg:     Config{},
			wantErr: "input",
		},
		{
			name:    "negative workers",
			cfg:     Config{Input: []string{"t.json"}, Workers: -1},
			wantErr: "workers",
		},
		{
			name:    "negative rate",
			cfg:     Config{Input: []string{"t.json"}, Rate: -0.5},
			wantErr: "rate",
		},
		{
			name: "definition without name",
			cfg: Config{
				Input:       []string{"t.json"},
				Definitions: []Definition{{}},
			},
			wantErr: "definitions[0]: name",
		},
		{
			name: "expression without source",
			cfg: Config{
				Input: []string{"t.json"},
				Definitions: []Definition{{
					Name: "Shop",
					When: &ExpressionConfig{Pattern: ".*"},
				}},
			},
			wantErr: "when.source",
		},
		{
			name: "expression with bad source binding",
			cfg: Config{
				Input: []string{"t.json"},
				Definitions: []Definition{{
					Name: "Shop",
					When: &ExpressionConfig{Pattern: ".*", Source: "bogus"},
				}},
			},
			wantErr: "when.source",
		},
		{
			name: "depth below sentinel",
			cfg: Config{
				Input: []string{"t.json"},
				Definitions: []Definition{{
					Name: "Shop",
					When: &ExpressionConfig{Pattern: ".*", Source: "uri", MaxSearchDepth: intPtr(-2)},
				}},
			},
			wantErr: "max_search_depth",
		},
		{
			name:    "sample rate out of range",
			cfg:     Config{Input: []string{"t.json"}, Tracing: TracingConfig{SampleRate: 1.5}},
			wantErr: "sample_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuildDefinitions(t *testing.T) {
	cfg := Config{
		Input: []string{"t.json"},
		Definitions: []Definition{
			{
				Name: "Shop",
				When: &ExpressionConfig{Pattern: `/shop/.*`, Source: "uri"},
				NameExtraction: &ExpressionConfig{
					Pattern:        `/shop/([a-z]+)`,
					Template:       "Shop (1)",
					Source:         "uri",
					MaxSearchDepth: intPtr(3),
					SearchInTrace:  true,
				},
			},
			{Name: "CatchAll"},
		},
	}

	defs, err := cfg.BuildDefinitions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	shop := defs[0]
	if shop.Name != "Shop" || shop.When == nil || shop.NameExtraction == nil {
		t.Fatalf("unexpected definition: %+v", shop)
	}
	if shop.When.MaxSearchDepth != trace.UnlimitedDepth {
		t.Errorf("depth must default to unlimited, got %d", shop.When.MaxSearchDepth)
	}
	if shop.NameExtraction.MaxSearchDepth != 3 || !shop.NameExtraction.SearchInTrace {
		t.Errorf("extraction settings lost: %+v", shop.NameExtraction)
	}
	if _, ok := shop.When.Source.(valuesource.URISource); !ok {
		t.Errorf("expected a URI source, got %T", shop.When.Source)
	}

	catchAll := defs[1]
	if catchAll.When != nil || catchAll.NameExtraction != nil {
		t.Errorf("bare definition must have no expressions: %+v", catchAll)
	}

	bad := Config{Definitions: []Definition{{
		Name: "Broken",
		When: &ExpressionConfig{Pattern: ".*", Source: "bogus"},
	}}}
	if _, err := bad.BuildDefinitions(); err == nil {
		t.Error("expected error for an unresolvable source binding")
	}
}
