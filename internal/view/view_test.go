package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/routine-web/internal/catalog"
	"finitefield.org/routine-web/internal/selection"
)

func TestGridMarksSelectionAndHighlight(t *testing.T) {
	t.Parallel()

	products := []catalog.Product{
		{ID: "1", Name: "A", Category: "Cleanser"},
		{ID: "2", Name: "B", Category: "Cleanser"},
	}
	res := catalog.Filter(products, "cleanser", "")
	g := NewRenderer().Grid(res, selection.NewSet("2"), "1")

	require.False(t, g.Placeholder())
	require.Len(t, g.Cards, 2)
	require.False(t, g.Cards[0].Selected)
	require.True(t, g.Cards[0].Highlighted)
	require.True(t, g.Cards[1].Selected)
	require.False(t, g.Cards[1].Highlighted)
	for _, c := range g.Cards {
		require.False(t, c.Expanded, "detail panels start collapsed")
	}
	require.Equal(t, "/selection/1/toggle", g.Cards[0].TogglePath)
}

func TestGridPlaceholderAndNoMatches(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	products := []catalog.Product{{ID: "1", Name: "A", Category: "Cleanser"}}

	g := r.Grid(catalog.Filter(products, "", ""), selection.NewSet(), "")
	require.True(t, g.Placeholder())
	require.Empty(t, g.Cards)

	g = r.Grid(catalog.Filter(products, "toner", ""), selection.NewSet(), "")
	require.True(t, g.NoMatches())
	require.Empty(t, g.Cards)
}

func TestCardKeepsTrustedMarkupButDropsScripts(t *testing.T) {
	t.Parallel()

	c := NewRenderer().Card(catalog.Product{
		Name:        "Glow <em>Serum</em>",
		Brand:       "Acme & Co",
		Description: `Brightens<script>alert(1)</script> skin`,
	}, nil, "")

	require.Equal(t, "Glow <em>Serum</em>", string(c.Name))
	require.Equal(t, "Acme &amp; Co", string(c.Brand))
	require.NotContains(t, string(c.Description), "<script>")
	require.True(t, strings.HasPrefix(string(c.Description), "Brightens"))
	require.Equal(t, "Glow <em>Serum</em>", c.ID, "name is the identifier when id is absent")
	require.Equal(t, "/selection/Glow%20%3Cem%3ESerum%3C%2Fem%3E/toggle", c.TogglePath)
}

func TestCardDescriptionFollowsUGCPolicy(t *testing.T) {
	t.Parallel()

	c := NewRenderer().Card(catalog.Product{
		Name:        "Balm",
		Description: `<strong>rich</strong> <span style="color:red">balm</span><iframe src="x"></iframe>`,
	}, nil, "")

	desc := string(c.Description)
	require.Contains(t, desc, "<strong>rich</strong>")
	require.Contains(t, desc, "balm")
	require.NotContains(t, desc, "style=")
	require.NotContains(t, desc, "<iframe")
}

type mapResolver map[string]catalog.Product

func (m mapResolver) Lookup(key string) (catalog.Product, bool) {
	p, ok := m[key]
	return p, ok
}

func TestSummaryResolvesNamesWithFallback(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	sel := selection.NewSet("1", "ghost")

	s := r.Summary(sel, mapResolver{"1": {ID: "1", Name: "<b>A</b>"}})
	require.True(t, s.ClearVisible)
	require.Len(t, s.Items, 2)
	require.Equal(t, "<b>A</b>", s.Items[0].Name, "summary names stay plain text for the template to escape")
	require.Equal(t, "ghost", s.Items[1].Name)
	require.Equal(t, "/selection/ghost/remove", s.Items[1].RemovePath)

	unloaded := r.Summary(sel, nil)
	require.Equal(t, "1", unloaded.Items[0].Name)

	empty := r.Summary(selection.NewSet(), nil)
	require.False(t, empty.ClearVisible)
	require.Empty(t, empty.Items)
}

func TestOverlayCarriesDirectionAndHighlight(t *testing.T) {
	t.Parallel()

	o := NewRenderer().Overlay(catalog.Product{ID: "9", Name: "Z"}, selection.NewSet(), "ar", "rtl")
	require.Equal(t, "rtl", o.Dir)
	require.True(t, o.Card.Highlighted)
	require.True(t, o.Card.Expanded)
	require.Equal(t, DOMID("9"), o.Card.DOMID)
}
