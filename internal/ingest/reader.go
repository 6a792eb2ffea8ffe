// Package ingest reads captured trace documents into invocation trees and
// drives them through classification and aggregation.
package ingest

import (
	"fmt"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tidwall/gjson"

	"github.com/torosent/tracefold/internal/record"
	"github.com/torosent/tracefold/internal/resolve"
	"github.com/torosent/tracefold/internal/trace"
)

// ReadFile parses a trace JSON file into invocation trees. The document is
// either a single trace object, an array of traces, or an object with a
// top-level "traces" array. Traces without an id are assigned a ULID.
func ReadFile(path string) ([]*trace.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	traces, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return traces, nil
}

// Parse parses trace JSON into invocation trees.
func Parse(data []byte) ([]*trace.Node, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid trace JSON")
	}
	doc := gjson.ParseBytes(data)

	var items []gjson.Result
	switch {
	case doc.IsArray():
		items = doc.Array()
	case doc.Get("traces").IsArray():
		items = doc.Get("traces").Array()
	case doc.IsObject():
		items = []gjson.Result{doc}
	default:
		return nil, fmt.Errorf("trace document must be an object or array")
	}

	traces := make([]*trace.Node, 0, len(items))
	for i, item := range items {
		node, err := parseNode(item)
		if err != nil {
			return nil, fmt.Errorf("trace[%d]: %w", i, err)
		}
		if node.ID == "" {
			node.ID = ulid.Make().String()
		}
		traces = append(traces, node)
	}
	return traces, nil
}

func parseNode(g gjson.Result) (*trace.Node, error) {
	if !g.IsObject() {
		return nil, fmt.Errorf("invocation node must be an object")
	}

	n := &trace.Node{
		ID:         g.Get("id").String(),
		PlatformID: g.Get("platformId").Uint(),
		MethodID:   g.Get("methodId").Uint(),
		Duration:   time.Duration(g.Get("duration_ms").Float() * float64(time.Millisecond)),
	}

	if start := g.Get("start"); start.Exists() {
		t, err := time.Parse(time.RFC3339, start.String())
		if err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
		n.Start = t
	}

	if http := g.Get("http"); http.IsObject() {
		info := &trace.HTTPInfo{
			URI:    http.Get("uri").String(),
			Method: http.Get("method").String(),
		}
		if params := http.Get("params"); params.IsObject() {
			info.Parameters = make(map[string][]string)
			params.ForEach(func(key, value gjson.Result) bool {
				if value.IsArray() {
					for _, v := range value.Array() {
						info.Parameters[key.String()] = append(info.Parameters[key.String()], v.String())
					}
				} else {
					info.Parameters[key.String()] = []string{value.String()}
				}
				return true
			})
		}
		n.HTTP = info
	}

	if tags := g.Get("tags"); tags.IsObject() {
		n.Tags = make(map[string]string)
		tags.ForEach(func(key, value gjson.Result) bool {
			n.Tags[key.String()] = value.String()
			return true
		})
	}

	if sensors := g.Get("sensors"); sensors.IsArray() {
		for _, s := range sensors.Array() {
			rec := record.NewSensorValueRecord(s.Get("definitionId").Uint())
			at := n.Start
			if ts := s.Get("time"); ts.Exists() {
				parsed, err := time.Parse(time.RFC3339, ts.String())
				if err != nil {
					return nil, fmt.Errorf("sensor time: %w", err)
				}
				at = parsed
			}
			rec.Observe(s.Get("value").Float(), at)
			n.Sensors = append(n.Sensors, rec)
		}
	}

	if children := g.Get("children"); children.IsArray() {
		for i, c := range children.Array() {
			child, err := parseNode(c)
			if err != nil {
				return nil, fmt.Errorf("children[%d]: %w", i, err)
			}
			n.Children = append(n.Children, child)
		}
	}

	return n, nil
}

// ReadIdents parses an ident registry file mapping method and platform ids to
// names, and returns a static resolver over it. Expected shape:
//
//	{"methods": {"42": "com.shop.CartService.addItem()"}, "hosts": {"1": "web-01"}}
func ReadIdents(path string) (*resolve.Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: invalid ident registry JSON", path)
	}

	reg := resolve.NewStatic()
	var parseErr error
	gjson.GetBytes(data, "methods").ForEach(func(key, value gjson.Result) bool {
		id, err := parseIdent(key.String())
		if err != nil {
			parseErr = fmt.Errorf("%s: methods: %w", path, err)
			return false
		}
		reg.AddMethod(id, value.String())
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	gjson.GetBytes(data, "hosts").ForEach(func(key, value gjson.Result) bool {
		id, err := parseIdent(key.String())
		if err != nil {
			parseErr = fmt.Errorf("%s: hosts: %w", path, err)
			return false
		}
		reg.AddHost(id, value.String())
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return reg, nil
}

func parseIdent(s string) (uint64, error) {
	var id uint64
	_, err := fmt.Sscanf(s, "%d", &id)
	if err != nil {
		return 0, fmt.Errorf("ident %q: %w", s, err)
	}
	return id, nil
}
