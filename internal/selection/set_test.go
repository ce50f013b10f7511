package selection

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToggleTwiceRestoresMembership(t *testing.T) {
	t.Parallel()

	s := NewSet("a")
	for _, id := range []string{"a", "b"} {
		before := s.Contains(id)
		s.Toggle(id)
		require.NotEqual(t, before, s.Contains(id))
		s.Toggle(id)
		require.Equal(t, before, s.Contains(id), "id %q", id)
	}
	require.Equal(t, []string{"a"}, s.IDs())
}

func TestToggleReturnsNewState(t *testing.T) {
	t.Parallel()

	s := NewSet()
	require.True(t, s.Toggle("1"))
	require.False(t, s.Toggle("1"))
	require.False(t, s.Toggle("   "), "blank ids are ignored")
	require.Zero(t, s.Len())
}

func TestSetNormalizesIdentifiers(t *testing.T) {
	t.Parallel()

	s := NewSet(" 42 ", "42", "")
	require.Equal(t, 1, s.Len())
	require.True(t, s.Contains("42"))
	require.True(t, s.Remove(" 42"))
	require.False(t, s.Remove("42"))
}

func TestIDsKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	s := NewSet()
	for _, id := range []string{"c", "a", "b"} {
		s.Add(id)
	}
	s.Remove("a")
	s.Add("a")
	require.Equal(t, []string{"c", "b", "a"}, s.IDs())

	s.Clear()
	require.Empty(t, s.IDs())
	require.False(t, s.Contains("c"))
}
