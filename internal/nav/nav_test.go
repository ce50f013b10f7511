package nav

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildMarksActiveItem(t *testing.T) {
	items := Build("/pages/safety")
	require.Len(t, items, len(Main))
	require.False(t, items[0].Active)
	require.True(t, items[1].Active)

	items = Build("")
	require.True(t, items[0].Active)
	require.False(t, items[1].Active)
}

func TestBreadcrumbs(t *testing.T) {
	crumbs := Breadcrumbs("/pages/safety")
	require.Len(t, crumbs, 2)
	require.Equal(t, "nav.catalog", crumbs[0].LabelKey)
	require.False(t, crumbs[0].Active)
	require.Equal(t, "/pages/safety", crumbs[1].Href)
	require.Equal(t, "nav.safety", crumbs[1].LabelKey)
	require.True(t, crumbs[1].Active)

	crumbs = Breadcrumbs("/pages/patch-testing")
	require.Equal(t, "", crumbs[1].LabelKey)
	require.Equal(t, "Patch testing", crumbs[1].Label)

	require.Len(t, Breadcrumbs("/"), 1)
}
