// Package trace defines the read-only invocation tree model that classification
// and aggregation operate on. Trees are produced by the ingestion layer and are
// never mutated after construction.
package trace

import (
	"time"

	"github.com/torosent/tracefold/internal/record"
)

// UnlimitedDepth disables the depth bound on subtree traversal.
const UnlimitedDepth = -1

// HTTPInfo carries the HTTP request data captured on an invocation node.
type HTTPInfo struct {
	URI        string
	Method     string
	Parameters map[string][]string
}

// Node is a single invocation in a captured call tree. Children are ordered
// by invocation time and are navigated pre-order.
type Node struct {
	ID         string
	PlatformID uint64
	MethodID   uint64
	Start      time.Time
	Duration   time.Duration

	HTTP    *HTTPInfo
	Tags    map[string]string
	Sensors []*record.SensorValueRecord

	Children []*Node
}

// Tag returns the value of a named tag, or "" if not present.
func (n *Node) Tag(name string) string {
	if n == nil || n.Tags == nil {
		return ""
	}
	return n.Tags[name]
}

// Collect returns the node and its descendants in pre-order, stopping past
// maxDepth levels below the node. maxDepth 0 yields only the node itself,
// UnlimitedDepth yields the whole subtree.
func (n *Node) Collect(maxDepth int) []*Node {
	if n == nil {
		return nil
	}
	nodes := make([]*Node, 0, 1+len(n.Children))
	n.collect(maxDepth, &nodes)
	return nodes
}

func (n *Node) collect(remaining int, out *[]*Node) {
	*out = append(*out, n)
	if remaining == 0 {
		return
	}
	next := remaining
	if next > 0 {
		next--
	}
	for _, child := range n.Children {
		child.collect(next, out)
	}
}

// Walk calls fn for the node and every descendant in pre-order. Traversal
// stops early when fn returns false.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	n.walk(fn)
}

func (n *Node) walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.walk(fn) {
			return false
		}
	}
	return true
}

// Size returns the number of nodes in the subtree rooted at n.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	size := 1
	for _, child := range n.Children {
		size += child.Size()
	}
	return size
}
