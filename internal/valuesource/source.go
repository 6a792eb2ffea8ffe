// Package valuesource supplies candidate strings from trace nodes for pattern
// matching. A Source is a pluggable strategy bound to a classification
// expression at configuration time; the engine assumes nothing about it
// beyond "zero or more strings, order determines first-match-wins".
package valuesource

import (
	"fmt"
	"strings"

	"github.com/torosent/tracefold/internal/resolve"
	"github.com/torosent/tracefold/internal/trace"
)

// Source extracts an ordered sequence of candidate strings from a trace node.
type Source interface {
	StringValues(n *trace.Node, r resolve.Resolver) ([]string, error)
}

// Kind identifies a concrete Source implementation in configuration.
type Kind string

const (
	KindMethod    Kind = "method"
	KindURI       Kind = "uri"
	KindHost      Kind = "host"
	KindTag       Kind = "tag"
	KindParameter Kind = "param"
)

// factories maps each kind to its constructor. Kinds taking an argument
// (tag, param) receive it from the configuration binding.
var factories = map[Kind]func(arg string) (Source, error){
	KindMethod: func(arg string) (Source, error) {
		if arg != "" {
			return nil, fmt.Errorf("source %q takes no argument", KindMethod)
		}
		return MethodSource{}, nil
	},
	KindURI: func(arg string) (Source, error) {
		if arg != "" {
			return nil, fmt.Errorf("source %q takes no argument", KindURI)
		}
		return URISource{}, nil
	},
	KindHost: func(arg string) (Source, error) {
		if arg != "" {
			return nil, fmt.Errorf("source %q takes no argument", KindHost)
		}
		return HostSource{}, nil
	},
	KindTag: func(arg string) (Source, error) {
		if arg == "" {
			return nil, fmt.Errorf("source %q requires a tag name, e.g. %q", KindTag, "tag:route")
		}
		return TagSource{Name: arg}, nil
	},
	KindParameter: func(arg string) (Source, error) {
		if arg == "" {
			return nil, fmt.Errorf("source %q requires a parameter name, e.g. %q", KindParameter, "param:id")
		}
		return ParameterSource{Name: arg}, nil
	},
}

// New constructs the Source for a kind and optional argument.
func New(kind Kind, arg string) (Source, error) {
	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown value source kind %q", kind)
	}
	return factory(arg)
}

// Parse resolves a configuration binding like "method", "tag:route", or
// "param:id" into a Source.
func Parse(binding string) (Source, error) {
	binding = strings.TrimSpace(binding)
	if binding == "" {
		return nil, fmt.Errorf("empty value source binding")
	}
	kind, arg, _ := strings.Cut(binding, ":")
	return New(Kind(kind), arg)
}

// MethodSource yields the fully-qualified signature of the node's method.
type MethodSource struct{}

// StringValues implements Source. Nodes without a method ident yield no
// candidates; resolver failures propagate.
func (MethodSource) StringValues(n *trace.Node, r resolve.Resolver) ([]string, error) {
	if n.MethodID == 0 {
		return nil, nil
	}
	sig, err := r.MethodSignature(n.MethodID)
	if err != nil {
		return nil, err
	}
	return []string{sig}, nil
}

// URISource yields the HTTP URI captured on the node, if any.
type URISource struct{}

// StringValues implements Source.
func (URISource) StringValues(n *trace.Node, _ resolve.Resolver) ([]string, error) {
	if n.HTTP == nil || n.HTTP.URI == "" {
		return nil, nil
	}
	return []string{n.HTTP.URI}, nil
}

// HostSource yields the host name of the node's platform.
type HostSource struct{}

// StringValues implements Source.
func (HostSource) StringValues(n *trace.Node, r resolve.Resolver) ([]string, error) {
	if n.PlatformID == 0 {
		return nil, nil
	}
	host, err := r.HostName(n.PlatformID)
	if err != nil {
		return nil, err
	}
	return []string{host}, nil
}

// TagSource yields the value of a named tag attached to the node.
type TagSource struct {
	Name string
}

// StringValues implements Source.
func (s TagSource) StringValues(n *trace.Node, _ resolve.Resolver) ([]string, error) {
	value := n.Tag(s.Name)
	if value == "" {
		return nil, nil
	}
	return []string{value}, nil
}

// ParameterSource yields all values of a named HTTP request parameter, in
// capture order.
type ParameterSource struct {
	Name string
}

// StringValues implements Source.
func (s ParameterSource) StringValues(n *trace.Node, _ resolve.Resolver) ([]string, error) {
	if n.HTTP == nil || len(n.HTTP.Parameters) == 0 {
		return nil, nil
	}
	values := n.HTTP.Parameters[s.Name]
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out, nil
}
