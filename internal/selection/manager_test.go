package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingStore struct{ err error }

func (f failingStore) Load(context.Context, string, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Save(context.Context, string, string, []byte) error   { return f.err }

func TestPersistRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, nil)

	m.Persist(ctx, "sess-1", NewSet("1", "serum-b", "Balm#2"))

	raw, err := store.Load(ctx, "sess-1", StorageKey)
	require.NoError(t, err)
	require.JSONEq(t, `["1","serum-b","Balm#2"]`, string(raw))

	restored := NewManager(store, nil).Restore(ctx, "sess-1")
	require.Equal(t, []string{"1", "serum-b", "Balm#2"}, restored.IDs())

	require.Zero(t, m.Restore(ctx, "other").Len(), "scopes are isolated")
}

func TestRestoreIgnoresMalformedData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(store, nil)

	for _, raw := range []string{`not json`, `{"a":1}`, `"x"`, ``} {
		require.NoError(t, store.Save(ctx, "s", StorageKey, []byte(raw)))
		require.Zero(t, m.Restore(ctx, "s").Len(), "payload %q", raw)
	}

	require.NoError(t, store.Save(ctx, "s", StorageKey, []byte(`[1, "2", null, true]`)))
	require.Equal(t, []string{"1", "2"}, m.Restore(ctx, "s").IDs())
}

func TestStorageFailuresAreLoggedNotReturned(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	m := NewManager(failingStore{err: errors.New("disk full")}, zap.New(core))

	set := m.Restore(context.Background(), "s")
	require.NotNil(t, set)
	require.Zero(t, set.Len())

	m.Persist(context.Background(), "s", NewSet("1"))

	require.Equal(t, 1, logs.FilterMessage("selection restore failed").Len())
	entries := logs.FilterMessage("selection persist failed").All()
	require.Len(t, entries, 1)
	errField, ok := entries[0].ContextMap()["error"].(string)
	require.True(t, ok)
	require.Contains(t, errField, "disk full")
}

func TestRegistryHydratesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "s", StorageKey, []byte(`["a"]`)))
	reg := NewRegistry(NewManager(store, nil))

	first := reg.Get(ctx, "s")
	require.True(t, first.Contains("a"))

	require.NoError(t, store.Save(ctx, "s", StorageKey, []byte(`["b"]`)))
	second := reg.Get(ctx, "s")
	require.Same(t, first, second)
	require.False(t, second.Contains("b"))

	updated := reg.Update(ctx, "s", func(s *Set) bool { return s.Toggle("c") })
	require.Same(t, first, updated)
	raw, err := store.Load(ctx, "s", StorageKey)
	require.NoError(t, err)
	require.JSONEq(t, `["a","c"]`, string(raw))

	// an unchanged set is not written
	require.NoError(t, store.Save(ctx, "s", StorageKey, []byte(`["z"]`)))
	reg.Update(ctx, "s", func(s *Set) bool { return s.Remove("missing") })
	raw, err = store.Load(ctx, "s", StorageKey)
	require.NoError(t, err)
	require.JSONEq(t, `["z"]`, string(raw))
}

func TestRegistryStaysBounded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	reg := NewRegistry(NewManager(store, nil), WithCapacity(8))

	reg.Update(ctx, "keep", func(s *Set) bool { return s.Toggle("1") })
	for i := 0; i < 100; i++ {
		reg.Get(ctx, fmt.Sprintf("scope-%d", i))
		require.LessOrEqual(t, reg.Len(), 8)
	}

	// the evicted scope comes back from the store
	restored := reg.Get(ctx, "keep")
	require.Equal(t, []string{"1"}, restored.IDs())
}

func TestMemoryStoreDropsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStoreSize(2)
	require.NoError(t, store.Save(ctx, "a", StorageKey, []byte(`["1"]`)))
	require.NoError(t, store.Save(ctx, "b", StorageKey, []byte(`["2"]`)))
	_, err := store.Load(ctx, "a", StorageKey)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "c", StorageKey, []byte(`["3"]`)))

	require.Equal(t, 2, store.Len())
	raw, err := store.Load(ctx, "b", StorageKey)
	require.NoError(t, err)
	require.Nil(t, raw)
	raw, err = store.Load(ctx, "a", StorageKey)
	require.NoError(t, err)
	require.JSONEq(t, `["1"]`, string(raw))
}

func TestRegistryIdleScopesExpire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg := NewRegistry(NewManager(NewMemoryStore(), nil), WithIdleTTL(20*time.Millisecond))
	first := reg.Get(ctx, "s")
	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 10*time.Millisecond)
	require.NotSame(t, first, reg.Get(ctx, "s"))
}

// recordingStore delays every write and remembers the last value written.
type recordingStore struct {
	*MemoryStore
	mu   sync.Mutex
	last []byte
}

func (s *recordingStore) Save(ctx context.Context, scope, key string, value []byte) error {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	s.last = append([]byte(nil), value...)
	s.mu.Unlock()
	return s.MemoryStore.Save(ctx, scope, key, value)
}

func TestRegistryConcurrentUpdatesStoreFinalSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &recordingStore{MemoryStore: NewMemoryStore()}
	reg := NewRegistry(NewManager(store, nil))

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			reg.Update(ctx, "s", func(s *Set) bool { return s.Toggle(id) })
		}(strconv.Itoa(i))
	}
	wg.Wait()

	final := reg.Get(ctx, "s")
	require.Equal(t, 40, final.Len())
	want, err := json.Marshal(final.IDs())
	require.NoError(t, err)
	store.mu.Lock()
	defer store.mu.Unlock()
	require.JSONEq(t, string(want), string(store.last))
	require.Equal(t, final.IDs(), NewManager(store.MemoryStore, nil).Restore(ctx, "s").IDs())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "selections.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	raw, err := store.Load(ctx, "s", StorageKey)
	require.NoError(t, err)
	require.Nil(t, raw)

	m := NewManager(store, nil)
	m.Persist(ctx, "s", NewSet("1", "2"))
	m.Persist(ctx, "s", NewSet("2", "3"))
	require.Equal(t, []string{"2", "3"}, m.Restore(ctx, "s").IDs())

	require.NoError(t, store.Close())
	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.Equal(t, []string{"2", "3"}, NewManager(reopened, nil).Restore(ctx, "s").IDs())
}
