package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleProducts() []Product {
	return []Product{
		{ID: "1", Name: "A", Brand: "Acme", Category: "Cleanser", Description: "Gentle foam"},
		{ID: "2", Name: "B", Brand: "Bloom", Category: "Serum", Description: "Vitamin C"},
		{ID: "3", Name: "C", Brand: "Acme", Category: " serum ", Description: "Niacinamide"},
		{ID: "4", Name: "D", Brand: "Dew", Category: "Sunscreen"},
	}
}

func names(ps []Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func TestFilterCategoryScenario(t *testing.T) {
	t.Parallel()

	catalog := []Product{
		{ID: "1", Name: "A", Category: "Cleanser"},
		{ID: "2", Name: "B", Category: "Serum"},
	}
	res := Filter(catalog, "cleanser", "")
	require.Equal(t, StateMatches, res.State)
	require.Equal(t, []string{"A"}, names(res.Products))
}

func TestFilterCategoryIgnoresCaseAndSpacing(t *testing.T) {
	t.Parallel()

	want := []string{"B", "C"}
	for _, term := range []string{"serum", "SERUM", "  Serum  ", "sErUm\t"} {
		res := Filter(sampleProducts(), term, "")
		require.Equal(t, want, names(res.Products), "term %q", term)
	}
}

func TestFilterEmptyTermsYieldPlaceholder(t *testing.T) {
	t.Parallel()

	res := Filter(sampleProducts(), "", "")
	require.Equal(t, StatePlaceholder, res.State)
	require.Nil(t, res.Products)

	res = Filter(sampleProducts(), "   ", "")
	require.Equal(t, StatePlaceholder, res.State)
}

func TestFilterSearchMatchesAllFields(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"acme":      {"A", "C"},
		"VITAMIN":   {"B"},
		"sunscreen": {"D"},
		"foam":      {"A"},
		"retinol":   nil,
	}
	for term, want := range cases {
		res := Filter(sampleProducts(), "", term)
		if want == nil {
			require.Equal(t, StateNoMatches, res.State, "term %q", term)
			continue
		}
		require.Equal(t, want, names(res.Products), "term %q", term)
	}
}

func TestFilterCombinesCategoryAndSearchInCatalogOrder(t *testing.T) {
	t.Parallel()

	res := Filter(sampleProducts(), "serum", "acme")
	require.Equal(t, StateMatches, res.State)
	require.Equal(t, []string{"C"}, names(res.Products))
}

func TestFilterFoldsFullWidthInput(t *testing.T) {
	t.Parallel()

	res := Filter(sampleProducts(), "ＳＥＲＵＭ", "")
	require.Equal(t, []string{"B", "C"}, names(res.Products))
}

func TestFilterNoMatchesSuggestsCategories(t *testing.T) {
	t.Parallel()

	res := Filter(sampleProducts(), "", "srum")
	require.Equal(t, StateNoMatches, res.State)
	require.Empty(t, res.Products)
	require.Contains(t, res.Suggestions, "serum")
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := sampleProducts()
	_ = Filter(in, "serum", "c")
	require.Equal(t, sampleProducts(), in)
}
