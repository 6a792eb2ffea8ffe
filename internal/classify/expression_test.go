package classify

import (
	"errors"
	"sync"
	"testing"

	"github.com/torosent/tracefold/internal/resolve"
	"github.com/torosent/tracefold/internal/trace"
	"github.com/torosent/tracefold/internal/valuesource"
)

// stubSource returns fixed candidates per node id.
type stubSource struct {
	values map[string][]string
}

func (s stubSource) StringValues(n *trace.Node, _ resolve.Resolver) ([]string, error) {
	return s.values[n.ID], nil
}

// failingSource simulates a broken collaborator.
type failingSource struct {
	err error
}

func (s failingSource) StringValues(*trace.Node, resolve.Resolver) ([]string, error) {
	return nil, s.err
}

func TestExtractName_FirstMatchingCandidateWins(t *testing.T) {
	node := &trace.Node{ID: "root"}
	expr := NewExpression(`/user/(\d+)`, "user-(1)", stubSource{values: map[string][]string{
		"root": {"/x", "/user/42", "/user/99"},
	}})

	name, matched, err := expr.ExtractName(node, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched {
		t.Fatal("expected a match")
	}
	if name != "user-42" {
		t.Errorf("expected 'user-42', got %q", name)
	}
}

func TestExtractName_FullStringMatchNotSubstring(t *testing.T) {
	node := &trace.Node{ID: "root"}
	expr := NewExpression(`/user/(\d+)`, "user-(1)", stubSource{values: map[string][]string{
		"root": {"/api/user/42/details"},
	}})

	_, matched, err := expr.ExtractName(node, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Error("substring match must not classify, pattern requires the full candidate")
	}
}

func TestExtractName_MalformedPatternIsSoftNoMatch(t *testing.T) {
	node := &trace.Node{ID: "root"}
	expr := NewExpression(`([unclosed`, "x", stubSource{values: map[string][]string{
		"root": {"anything"},
	}})

	name, matched, err := expr.ExtractName(node, nil)
	if err != nil {
		t.Fatalf("malformed pattern must not surface an error, got: %v", err)
	}
	if matched || name != "" {
		t.Errorf("expected no match, got (%q, %v)", name, matched)
	}
}

func TestExtractName_EmptyMatchDistinctFromNoMatch(t *testing.T) {
	node := &trace.Node{ID: "root"}

	empty := NewExpression(`.*`, "", stubSource{values: map[string][]string{
		"root": {""},
	}})
	name, matched, err := empty.ExtractName(node, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched {
		t.Fatal("empty candidate matching an empty-capable pattern is a successful classification")
	}
	if name != "" {
		t.Errorf("expected empty name, got %q", name)
	}

	miss := NewExpression(`\d+`, "n", stubSource{values: map[string][]string{
		"root": {"letters"},
	}})
	_, matched, err = miss.ExtractName(node, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matched {
		t.Error("expected no match")
	}
}

func TestExtractName_SubstitutionAscendingIndexFirstOccurrence(t *testing.T) {
	node := &trace.Node{ID: "root"}

	tests := []struct {
		name     string
		pattern  string
		template string
		value    string
		want     string
	}{
		{
			name:     "groups in order",
			pattern:  `(\w+)/(\w+)`,
			template: "(1)-(2)",
			value:    "a/b",
			want:     "a-b",
		},
		{
			name:     "out of order placeholders keep scan order",
			pattern:  `(\w+)/(\w+)`,
			template: "(2)-(1)",
			value:    "a/b",
			want:     "b-a",
		},
		{
			name:     "injected group value is consumed by the later index",
			pattern:  `(.*)/(\w+)`,
			template: "(1)-(2)",
			value:    "(2)/b",
			// The replace for index 1 injects "(2)" at the front of the
			// evolving text, and the scan for index 2 consumes that injected
			// occurrence, leaving the original placeholder untouched.
			want: "b-(2)",
		},
		{
			name:     "repeated placeholder replaced once",
			pattern:  `(\w+)`,
			template: "(1) and (1)",
			value:    "x",
			want:     "x and (1)",
		},
		{
			name:     "unreferenced groups ignored",
			pattern:  `(\w+)/(\w+)`,
			template: "(1)",
			value:    "a/b",
			want:     "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := NewExpression(tt.pattern, tt.template, stubSource{values: map[string][]string{
				"root": {tt.value},
			}})
			name, matched, err := expr.ExtractName(node, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !matched {
				t.Fatal("expected a match")
			}
			if name != tt.want {
				t.Errorf("expected %q, got %q", tt.want, name)
			}
		})
	}
}

func TestExtractName_SearchDepthBounds(t *testing.T) {
	// root -> child -> grandchild; only the grandchild carries a match.
	grandchild := &trace.Node{ID: "grandchild"}
	child := &trace.Node{ID: "child", Children: []*trace.Node{grandchild}}
	root := &trace.Node{ID: "root", Children: []*trace.Node{child}}

	source := stubSource{values: map[string][]string{
		"root":       {"/nope"},
		"child":      {"/also-nope"},
		"grandchild": {"/user/7"},
	}}

	tests := []struct {
		name      string
		depth     int
		inTrace   bool
		wantMatch bool
	}{
		{name: "root only flag ignores subtree", depth: trace.UnlimitedDepth, inTrace: false, wantMatch: false},
		{name: "depth zero equals root only", depth: 0, inTrace: true, wantMatch: false},
		{name: "depth one stops before grandchild", depth: 1, inTrace: true, wantMatch: false},
		{name: "depth two reaches grandchild", depth: 2, inTrace: true, wantMatch: true},
		{name: "unlimited reaches everything", depth: trace.UnlimitedDepth, inTrace: true, wantMatch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := NewExpression(`/user/(\d+)`, "user-(1)", source)
			expr.SearchInTrace = tt.inTrace
			expr.MaxSearchDepth = tt.depth

			_, matched, err := expr.ExtractName(root, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if matched != tt.wantMatch {
				t.Errorf("expected match=%v, got %v", tt.wantMatch, matched)
			}
		})
	}
}

func TestExtractName_SubtreeSearchIsPreOrder(t *testing.T) {
	// Both children match; pre-order means the first child wins over the
	// second, and a matching root wins over both.
	second := &trace.Node{ID: "second"}
	first := &trace.Node{ID: "first"}
	root := &trace.Node{ID: "root", Children: []*trace.Node{first, second}}

	expr := NewExpression(`/user/(\d+)`, "user-(1)", stubSource{values: map[string][]string{
		"root":   {"/nope"},
		"first":  {"/user/1"},
		"second": {"/user/2"},
	}})
	expr.SearchInTrace = true

	name, matched, err := expr.ExtractName(root, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched || name != "user-1" {
		t.Errorf("expected 'user-1' from pre-order traversal, got (%q, %v)", name, matched)
	}
}

func TestExtractName_SourceErrorPropagates(t *testing.T) {
	sentinel := errors.New("resolver down")
	node := &trace.Node{ID: "root"}
	expr := NewExpression(`.*`, "x", failingSource{err: sentinel})

	_, _, err := expr.ExtractName(node, nil)
	if !errors.Is(err, sentinel) {
		t.Errorf("expected the source error unmodified, got: %v", err)
	}
}

func TestExtractName_ConcurrentFirstUse(t *testing.T) {
	node := &trace.Node{ID: "root"}
	expr := NewExpression(`/user/(\d+)`, "user-(1)", stubSource{values: map[string][]string{
		"root": {"/user/42"},
	}})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, matched, err := expr.ExtractName(node, nil)
			if err != nil || !matched || name != "user-42" {
				t.Errorf("concurrent extraction: got (%q, %v, %v)", name, matched, err)
			}
		}()
	}
	wg.Wait()
}

func TestRegexCompiledOncePerText(t *testing.T) {
	expr := NewExpression(`a+`, "x", stubSource{})

	first := expr.regex()
	if first == nil {
		t.Fatal("expected a compiled pattern")
	}
	if second := expr.regex(); second != first {
		t.Error("expected the cached pattern instance on repeat use")
	}

	expr.Pattern = `b+`
	third := expr.regex()
	if third == nil {
		t.Fatal("expected a compiled pattern after text change")
	}
	if third == first {
		t.Error("expected recompilation after the pattern text changed")
	}
	if !third.MatchString("bbb") {
		t.Error("recompiled pattern must reflect the new text")
	}
}

func TestVariousSourcesViaRegistry(t *testing.T) {
	// End-to-end with a real source: classify by HTTP URI.
	source, err := valuesource.Parse("uri")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	node := &trace.Node{
		ID:   "root",
		HTTP: &trace.HTTPInfo{URI: "/checkout/cart-7"},
	}
	expr := NewExpression(`/checkout/cart-(\d+)`, "Checkout ((1))", source)

	name, matched, err := expr.ExtractName(node, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !matched || name != "Checkout (7)" {
		t.Errorf("expected 'Checkout (7)', got (%q, %v)", name, matched)
	}
}
