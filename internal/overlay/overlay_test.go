package overlay

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpenReplacesExistingOverlay(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	first := r.Open("s", "Y")
	require.False(t, first.TornDown())
	require.Equal(t, "Y", first.Current)

	second := r.Open("s", "X")
	require.True(t, second.TornDown())
	require.Equal(t, Transition{Previous: "Y", Current: "X"}, second)

	cur := r.Current("s")
	require.True(t, cur.IsOpen())
	require.Equal(t, "X", cur.ProductID())
}

func TestCloseClearsState(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.Equal(t, Transition{}, r.Close("s"), "closing a closed overlay is a no-op")

	r.Open("s", "X")
	require.Equal(t, Transition{Previous: "X"}, r.Close("s"))
	require.False(t, r.Current("s").IsOpen())
}

func TestScopesAreIndependent(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Open("a", "1")
	r.Open("b", "2")
	require.Equal(t, "1", r.Current("a").ProductID())
	require.Equal(t, "2", r.Current("b").ProductID())
}

func TestConcurrentOpensLeaveExactlyOne(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var wg sync.WaitGroup
	ids := []string{"a", "b", "c", "d"}
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.Open("s", id)
		}(id)
	}
	wg.Wait()
	require.Contains(t, ids, r.Current("s").ProductID())
}

func TestStateBlankOpenActsAsClose(t *testing.T) {
	t.Parallel()

	var s State
	s.Open("X")
	tr := s.Open("  ")
	require.Equal(t, "X", tr.Previous)
	require.False(t, s.IsOpen())
}

func TestRegistryStaysBounded(t *testing.T) {
	t.Parallel()

	r := NewRegistry(WithCapacity(4))
	for i := 0; i < 50; i++ {
		r.Open(fmt.Sprintf("scope-%d", i), "X")
		require.LessOrEqual(t, r.Len(), 4)
	}
	require.False(t, r.Current("scope-0").IsOpen(), "the oldest overlay was dropped")
	require.Equal(t, "X", r.Current("scope-49").ProductID())

	r.Close("scope-49")
	r.Open("blank", " ")
	require.Equal(t, 3, r.Len(), "closed scopes are not stored")
}

func TestIdleOverlaysExpire(t *testing.T) {
	t.Parallel()

	r := NewRegistry(WithIdleTTL(20 * time.Millisecond))
	r.Open("s", "X")
	require.Eventually(t, func() bool { return !r.Current("s").IsOpen() }, time.Second, 10*time.Millisecond)
	require.Zero(t, r.Len())
}
