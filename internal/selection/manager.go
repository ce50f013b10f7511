package selection

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// Manager restores and persists selections. Storage is best-effort: read failures and
// malformed data restore as an empty selection, write failures are logged and dropped.
type Manager struct {
	store  Store
	logger *zap.Logger
}

// NewManager binds a Store to a logger.
func NewManager(store Store, logger *zap.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, logger: logger}
}

// Restore reads the stored selection for scope.
func (m *Manager) Restore(ctx context.Context, scope string) *Set {
	raw, err := m.store.Load(ctx, scope, StorageKey)
	if err != nil {
		m.logger.Warn("selection restore failed",
			zap.Error(&StorageError{Op: "load", Scope: scope, Key: StorageKey, Err: err}))
		return NewSet()
	}
	if len(raw) == 0 {
		return NewSet()
	}
	var ids []any
	if err := json.Unmarshal(raw, &ids); err != nil {
		m.logger.Debug("ignoring malformed stored selection", zap.String("scope", scope), zap.Error(err))
		return NewSet()
	}
	out := NewSet()
	for _, v := range ids {
		switch id := v.(type) {
		case string:
			out.Add(id)
		case float64:
			out.Add(strconv.FormatFloat(id, 'f', -1, 64))
		}
	}
	return out
}

// Persist writes the full selection for scope as a JSON array of strings.
func (m *Manager) Persist(ctx context.Context, scope string, set *Set) {
	ids := set.IDs()
	raw, err := json.Marshal(ids)
	if err != nil {
		m.logger.Error("selection encode failed", zap.String("scope", scope), zap.Error(err))
		return
	}
	if err := m.store.Save(ctx, scope, StorageKey, raw); err != nil {
		m.logger.Warn("selection persist failed",
			zap.Error(&StorageError{Op: "save", Scope: scope, Key: StorageKey, Err: err}),
			zap.Int("count", len(ids)),
		)
	}
}

const (
	defaultRegistryCapacity = 10000
	defaultRegistryTTL      = 2 * time.Hour
)

// RegistryOption customises a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	capacity int
	ttl      time.Duration
}

// WithCapacity bounds how many scopes stay hydrated. Non-positive values keep the default.
func WithCapacity(n int) RegistryOption {
	return func(o *registryOptions) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithIdleTTL sets how long an untouched scope stays hydrated. Non-positive values keep
// the default.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		if d > 0 {
			o.ttl = d
		}
	}
}

type entry struct {
	mu  sync.Mutex
	set *Set
}

// Registry keeps hydrated Sets for recently used scopes. The least recently used scope is
// dropped once capacity is reached, and idle scopes expire; either way the next access
// restores the scope from the Store.
type Registry struct {
	manager *Manager

	mu      sync.Mutex
	entries *expirable.LRU[string, *entry]
}

// NewRegistry returns a Registry backed by manager.
func NewRegistry(manager *Manager, opts ...RegistryOption) *Registry {
	o := registryOptions{capacity: defaultRegistryCapacity, ttl: defaultRegistryTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		manager: manager,
		entries: expirable.NewLRU[string, *entry](o.capacity, nil, o.ttl),
	}
}

func (r *Registry) entry(ctx context.Context, scope string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries.Get(scope)
	if !ok {
		e = &entry{set: r.manager.Restore(ctx, scope)}
	}
	// re-adding refreshes the idle deadline
	r.entries.Add(scope, e)
	return e
}

// Get returns the scope's Set, restoring it from storage when it is not hydrated.
func (r *Registry) Get(ctx context.Context, scope string) *Set {
	return r.entry(ctx, scope).set
}

// Update applies fn to the scope's Set and persists the result. Updates to one scope are
// serialized from mutation through Save, so the stored value always matches the last
// mutation applied.
func (r *Registry) Update(ctx context.Context, scope string, fn func(*Set) bool) *Set {
	e := r.entry(ctx, scope)
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn(e.set) {
		r.manager.Persist(ctx, scope, e.set)
	}
	return e.set
}

// Len returns the number of hydrated scopes.
func (r *Registry) Len() int {
	return r.entries.Len()
}
