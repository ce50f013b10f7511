// Package overlay tracks the product detail overlay per session.
//
// Each scope is in one of two states: closed, or open on exactly one product. Opening
// always tears down the current overlay first, so a Transition names both the product
// whose overlay and card highlight must be removed and the one now shown.
package overlay

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// State is the overlay state of one scope. The zero value is closed.
type State struct {
	productID string
}

// IsOpen reports whether an overlay is showing.
func (s State) IsOpen() bool { return s.productID != "" }

// ProductID returns the product shown, or "" when closed.
func (s State) ProductID() string { return s.productID }

// Transition describes a state change.
type Transition struct {
	// Previous is the product whose overlay was torn down, or "" if none was open.
	Previous string
	// Current is the product now shown, or "" after a close.
	Current string
}

// TornDown reports whether an existing overlay was removed.
func (t Transition) TornDown() bool { return t.Previous != "" }

// Open moves s to open(productID). A blank id behaves like Close.
func (s *State) Open(productID string) Transition {
	productID = strings.TrimSpace(productID)
	t := Transition{Previous: s.productID, Current: productID}
	s.productID = productID
	return t
}

// Close moves s to closed.
func (s *State) Close() Transition {
	t := Transition{Previous: s.productID}
	s.productID = ""
	return t
}

const (
	defaultCapacity = 10000
	defaultIdleTTL  = 2 * time.Hour
)

// Option customises a Registry.
type Option func(*options)

type options struct {
	capacity int
	ttl      time.Duration
}

// WithCapacity bounds how many open overlays are tracked. Non-positive values keep the
// default.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithIdleTTL sets how long an untouched overlay stays open. Non-positive values keep the
// default.
func WithIdleTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// Registry holds the State of scopes with an open overlay. Closed scopes are not stored.
// When full, the least recently touched overlay is dropped, which reads as closed.
type Registry struct {
	mu     sync.Mutex
	states *expirable.LRU[string, State]
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	o := options{capacity: defaultCapacity, ttl: defaultIdleTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{states: expirable.NewLRU[string, State](o.capacity, nil, o.ttl)}
}

// Open opens the overlay for productID in scope, closing any overlay already open there.
func (r *Registry) Open(scope, productID string) Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, _ := r.states.Get(scope)
	t := st.Open(productID)
	if st.IsOpen() {
		r.states.Add(scope, st)
	} else {
		r.states.Remove(scope)
	}
	return t
}

// Close closes the scope's overlay.
func (r *Registry) Close(scope string) Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states.Get(scope)
	if !ok {
		return Transition{}
	}
	r.states.Remove(scope)
	return st.Close()
}

// Current returns the scope's state.
func (r *Registry) Current(scope string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, _ := r.states.Get(scope)
	return st
}

// Len returns the number of open overlays tracked.
func (r *Registry) Len() int {
	return r.states.Len()
}
