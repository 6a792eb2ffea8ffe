// Package classify implements the rule-evaluation engine that names business
// transactions from trace content. An Expression tests candidate strings
// supplied by a value source against a regular expression and, on match,
// synthesizes a name by substituting capture groups into a target template.
package classify

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/torosent/tracefold/internal/resolve"
	"github.com/torosent/tracefold/internal/trace"
	"github.com/torosent/tracefold/internal/valuesource"
)

// Suffixes applied by the naming pipeline to transactions whose dynamic name
// could not be extracted, or was extracted as the empty string.
const (
	UnmappedSuffix = " (unmapped)"
	EmptySuffix    = " (empty)"
)

// Expression is a dynamic name-extraction rule. Fields are set at
// configuration time and must not change afterwards; the compiled pattern is
// cached on first use.
type Expression struct {
	// Pattern is the regular expression tested against candidate strings.
	// Matching is full-string, not substring.
	Pattern string

	// Template is the target name. Literal placeholders "(1)".."(N)" are
	// replaced with the corresponding capture groups of the match.
	Template string

	// MaxSearchDepth bounds the subtree search when SearchInTrace is set.
	// 0 considers only the root node, trace.UnlimitedDepth the whole tree.
	MaxSearchDepth int

	// SearchInTrace extends candidate collection from the root node to its
	// descendants, pre-order, bounded by MaxSearchDepth.
	SearchInTrace bool

	// Source supplies the candidate strings per node.
	Source valuesource.Source

	mu          sync.Mutex
	compiled    *regexp.Regexp
	compiledFor string
	compiledSet bool
}

// NewExpression creates an expression with an unlimited search depth.
func NewExpression(pattern, template string, source valuesource.Source) *Expression {
	return &Expression{
		Pattern:        pattern,
		Template:       template,
		MaxSearchDepth: trace.UnlimitedDepth,
		Source:         source,
	}
}

// ExtractName evaluates the expression against the trace rooted at n.
//
// It returns the synthesized name and matched=true when some candidate fully
// matches the pattern; the name may legitimately be "" when the pattern
// matches the empty string. A pattern that fails to compile yields a soft
// no-match, never an error. Value-source failures propagate unmodified.
func (e *Expression) ExtractName(n *trace.Node, r resolve.Resolver) (name string, matched bool, err error) {
	re := e.regex()
	if re == nil {
		return "", false, nil
	}

	nodes := []*trace.Node{n}
	if e.SearchInTrace {
		nodes = n.Collect(e.MaxSearchDepth)
	}

	for _, node := range nodes {
		values, err := e.Source.StringValues(node, r)
		if err != nil {
			return "", false, err
		}
		for _, value := range values {
			groups := re.FindStringSubmatch(value)
			if groups == nil {
				continue
			}
			return e.substitute(groups), true, nil
		}
	}

	return "", false, nil
}

// substitute replaces placeholders in the template with capture groups, in
// ascending group order, each via a first-remaining-occurrence replace. The
// scan runs over the evolving text, so a template with out-of-order
// placeholders still consumes "(1)" before "(2)".
func (e *Expression) substitute(groups []string) string {
	name := e.Template
	for i := 1; i < len(groups); i++ {
		name = strings.Replace(name, "("+strconv.Itoa(i)+")", groups[i], 1)
	}
	return name
}

// regex returns the compiled pattern, compiling it on first use. The result
// is nil for a malformed pattern. Compilation is serialized and happens at
// most once per pattern text.
func (e *Expression) regex() *regexp.Regexp {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.compiledSet || e.compiledFor != e.Pattern {
		e.compiledSet = true
		e.compiledFor = e.Pattern
		// Anchor with a non-capturing group so group indices are unchanged
		// and alternations cannot escape the full-string requirement.
		re, err := regexp.Compile(`\A(?:` + e.Pattern + `)\z`)
		if err != nil {
			e.compiled = nil
		} else {
			e.compiled = re
		}
	}
	return e.compiled
}
