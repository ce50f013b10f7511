package selection

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// StorageKey is the key under which a scope's selection is stored.
const StorageKey = "selectedProductIds"

// Store is durable key-value storage partitioned by scope (one scope per browser session).
// Load returns (nil, nil) when nothing is stored.
type Store interface {
	Load(ctx context.Context, scope, key string) ([]byte, error)
	Save(ctx context.Context, scope, key string, value []byte) error
}

// StorageError wraps a failed read or write. It is logged and never surfaced to users.
type StorageError struct {
	Op    string
	Scope string
	Key   string
	Err   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("selection: %s %s/%s: %v", e.Op, e.Scope, e.Key, e.Err)
}

// Unwrap exposes the underlying error.
func (e *StorageError) Unwrap() error { return e.Err }

const defaultMemoryCapacity = 100000

// MemoryStore keeps values in process memory. Once full, the least recently used value
// is dropped.
type MemoryStore struct {
	values *lru.Cache[string, []byte]
}

// NewMemoryStore returns an empty MemoryStore with the default capacity.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreSize(defaultMemoryCapacity)
}

// NewMemoryStoreSize returns an empty MemoryStore holding at most n values.
func NewMemoryStoreSize(n int) *MemoryStore {
	if n <= 0 {
		n = defaultMemoryCapacity
	}
	values, err := lru.New[string, []byte](n)
	if err != nil {
		panic("selection: memory store: " + err.Error())
	}
	return &MemoryStore{values: values}
}

func memoryKey(scope, key string) string { return scope + "\x00" + key }

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, scope, key string) ([]byte, error) {
	v, ok := m.values.Get(memoryKey(scope, key))
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, scope, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.values.Add(memoryKey(scope, key), cp)
	return nil
}

// Len returns the number of stored values.
func (m *MemoryStore) Len() int { return m.values.Len() }
