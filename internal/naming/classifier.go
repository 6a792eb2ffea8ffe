// Package naming maps classified traces to business transaction names. It is
// the downstream policy layer over the classification engine: definitions are
// evaluated in configuration order, and the first applicable one names the
// trace, with marker suffixes when a dynamic name could not be extracted.
package naming

import (
	"fmt"

	"github.com/torosent/tracefold/internal/classify"
	"github.com/torosent/tracefold/internal/resolve"
	"github.com/torosent/tracefold/internal/trace"
)

// DefaultTransaction names traces no definition claimed.
const DefaultTransaction = "Unclassified"

// Definition is one business transaction definition.
type Definition struct {
	// Name is the fixed transaction name, and the base for the unmapped and
	// empty marker suffixes when NameExtraction is set.
	Name string

	// When, if non-nil, gates the definition: it applies only to traces the
	// expression matches. A nil When applies to every trace.
	When *classify.Expression

	// NameExtraction, if non-nil, derives the transaction name dynamically
	// from trace content instead of using Name verbatim.
	NameExtraction *classify.Expression
}

// Classifier assigns business transaction names by evaluating definitions in
// order. Safe for concurrent use once built.
type Classifier struct {
	defs []Definition
}

// NewClassifier creates a classifier over the given definitions.
func NewClassifier(defs []Definition) *Classifier {
	return &Classifier{defs: defs}
}

// Classify returns the business transaction name for the trace rooted at n.
//
// The first definition whose When expression matches (or is absent) wins. For
// a dynamic definition, the extracted name is returned on match; a no-match
// yields the fixed name with the unmapped suffix, and an empty extracted name
// yields the fixed name with the empty suffix. Traces claimed by no
// definition fall back to DefaultTransaction.
func (c *Classifier) Classify(n *trace.Node, r resolve.Resolver) (string, error) {
	for _, def := range c.defs {
		if def.When != nil {
			_, applies, err := def.When.ExtractName(n, r)
			if err != nil {
				return "", fmt.Errorf("definition %q: %w", def.Name, err)
			}
			if !applies {
				continue
			}
		}

		if def.NameExtraction == nil {
			return def.Name, nil
		}

		name, matched, err := def.NameExtraction.ExtractName(n, r)
		if err != nil {
			return "", fmt.Errorf("definition %q: %w", def.Name, err)
		}
		switch {
		case !matched:
			return def.Name + classify.UnmappedSuffix, nil
		case name == "":
			return def.Name + classify.EmptySuffix, nil
		default:
			return name, nil
		}
	}
	return DefaultTransaction, nil
}
