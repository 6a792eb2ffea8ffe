// Command sampletraces generates a synthetic trace document plus a matching
// ident registry for exercising tracefold by hand:
//
//	go run ./scripts/sampletraces -traces 200 -out /tmp/traces.json -idents /tmp/idents.json
//	tracefold -i /tmp/traces.json --idents /tmp/idents.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"
)

type node struct {
	ID         string            `json:"id,omitempty"`
	PlatformID uint64            `json:"platformId,omitempty"`
	MethodID   uint64            `json:"methodId,omitempty"`
	Start      string            `json:"start,omitempty"`
	DurationMs float64           `json:"duration_ms"`
	HTTP       *httpInfo         `json:"http,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
	Sensors    []sensor          `json:"sensors,omitempty"`
	Children   []node            `json:"children,omitempty"`
}

type httpInfo struct {
	URI    string              `json:"uri"`
	Method string              `json:"method"`
	Params map[string][]string `json:"params,omitempty"`
}

type sensor struct {
	DefinitionID uint64  `json:"definitionId"`
	Value        float64 `json:"value"`
	Time         string  `json:"time,omitempty"`
}

var routes = []struct {
	uri      string
	methodID uint64
}{
	{"/shop/cart", 100},
	{"/shop/checkout", 101},
	{"/shop/search", 102},
	{"/account/login", 103},
	{"/health", 104},
}

func main() {
	count := flag.Int("traces", 100, "Number of traces to generate")
	out := flag.String("out", "traces.json", "Output path for the trace document")
	identsOut := flag.String("idents", "", "Optional output path for the ident registry")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	if *count <= 0 {
		log.Fatalf("traces must be > 0")
	}
	rng := rand.New(rand.NewSource(*seed))

	doc := struct {
		Traces []node `json:"traces"`
	}{Traces: make([]node, 0, *count)}

	start := time.Now().Add(-time.Hour)
	for i := 0; i < *count; i++ {
		doc.Traces = append(doc.Traces, randomTrace(rng, start.Add(time.Duration(i)*time.Second)))
	}

	if err := writeJSON(*out, doc); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %d traces to %s", *count, *out)

	if *identsOut != "" {
		if err := writeJSON(*identsOut, identRegistry()); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote ident registry to %s", *identsOut)
	}
}

func randomTrace(rng *rand.Rand, start time.Time) node {
	route := routes[rng.Intn(len(routes))]
	total := 20 + rng.Float64()*480

	root := node{
		PlatformID: 1,
		MethodID:   route.methodID,
		Start:      start.UTC().Format(time.RFC3339),
		DurationMs: total,
		HTTP: &httpInfo{
			URI:    route.uri,
			Method: "GET",
		},
		Tags: map[string]string{"env": "staging"},
	}

	if rng.Intn(4) == 0 {
		root.Sensors = []sensor{{
			DefinitionID: 7,
			Value:        50 + rng.Float64()*200,
			Time:         start.UTC().Format(time.RFC3339),
		}}
	}

	remaining := total * 0.8
	for depth := 0; depth < 1+rng.Intn(3); depth++ {
		child := node{
			PlatformID: 1,
			MethodID:   200 + uint64(rng.Intn(5)),
			DurationMs: remaining * (0.3 + rng.Float64()*0.4),
		}
		remaining -= child.DurationMs
		if remaining < 0 {
			break
		}
		root.Children = append(root.Children, child)
	}
	return root
}

func identRegistry() any {
	methods := map[string]string{
		"100": "com.shop.web.CartController.view()",
		"101": "com.shop.web.CheckoutController.submit()",
		"102": "com.shop.web.SearchController.query()",
		"103": "com.shop.auth.LoginController.login()",
		"104": "com.shop.ops.HealthCheck.ping()",
	}
	for i := 0; i < 5; i++ {
		methods[fmt.Sprintf("%d", 200+i)] = fmt.Sprintf("com.shop.service.Backend.call%d()", i)
	}
	return map[string]any{
		"methods": methods,
		"hosts":   map[string]string{"1": "web-01"},
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
