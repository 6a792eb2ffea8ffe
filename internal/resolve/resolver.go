// Package resolve provides name resolution for the opaque idents carried on
// trace nodes. Value sources use a Resolver to turn method and platform ids
// into human-readable strings for candidate construction.
package resolve

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownIdent is returned when an ident has no registered name.
var ErrUnknownIdent = errors.New("unknown ident")

// Resolver resolves opaque idents on a trace node to human-readable strings.
type Resolver interface {
	// MethodSignature returns the fully-qualified signature for a method ident.
	MethodSignature(methodID uint64) (string, error)

	// HostName returns the host name of the platform (agent) ident.
	HostName(platformID uint64) (string, error)
}

// Static is a map-backed Resolver populated up front, e.g. from an ingested
// ident registry. The zero value is empty; use NewStatic.
type Static struct {
	methods map[uint64]string
	hosts   map[uint64]string
}

// NewStatic creates an empty static resolver.
func NewStatic() *Static {
	return &Static{
		methods: make(map[uint64]string),
		hosts:   make(map[uint64]string),
	}
}

// AddMethod registers a method signature for an ident.
func (s *Static) AddMethod(methodID uint64, signature string) {
	s.methods[methodID] = signature
}

// AddHost registers a host name for a platform ident.
func (s *Static) AddHost(platformID uint64, host string) {
	s.hosts[platformID] = host
}

// MethodSignature implements Resolver.
func (s *Static) MethodSignature(methodID uint64) (string, error) {
	sig, ok := s.methods[methodID]
	if !ok {
		return "", fmt.Errorf("method %d: %w", methodID, ErrUnknownIdent)
	}
	return sig, nil
}

// HostName implements Resolver.
func (s *Static) HostName(platformID uint64) (string, error) {
	host, ok := s.hosts[platformID]
	if !ok {
		return "", fmt.Errorf("platform %d: %w", platformID, ErrUnknownIdent)
	}
	return host, nil
}

// Cached decorates a Resolver with an in-memory lookup cache. Safe for
// concurrent use. Failed lookups are not cached, so a backing service that
// learns idents later is picked up on retry.
type Cached struct {
	next Resolver

	mu      sync.RWMutex
	methods map[uint64]string
	hosts   map[uint64]string
}

// NewCached wraps next with a lookup cache.
func NewCached(next Resolver) *Cached {
	return &Cached{
		next:    next,
		methods: make(map[uint64]string),
		hosts:   make(map[uint64]string),
	}
}

// MethodSignature implements Resolver.
func (c *Cached) MethodSignature(methodID uint64) (string, error) {
	c.mu.RLock()
	sig, ok := c.methods[methodID]
	c.mu.RUnlock()
	if ok {
		return sig, nil
	}

	sig, err := c.next.MethodSignature(methodID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.methods[methodID] = sig
	c.mu.Unlock()
	return sig, nil
}

// HostName implements Resolver.
func (c *Cached) HostName(platformID uint64) (string, error) {
	c.mu.RLock()
	host, ok := c.hosts[platformID]
	c.mu.RUnlock()
	if ok {
		return host, nil
	}

	host, err := c.next.HostName(platformID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.hosts[platformID] = host
	c.mu.Unlock()
	return host, nil
}
