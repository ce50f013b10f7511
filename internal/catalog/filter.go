package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// State describes what the caller should render for a filter outcome.
type State int

const (
	// StatePlaceholder means no filter term was given; nothing is shown yet.
	StatePlaceholder State = iota
	// StateNoMatches means at least one term was given and nothing matched.
	StateNoMatches
	// StateMatches means Products holds at least one product.
	StateMatches
)

func (s State) String() string {
	switch s {
	case StatePlaceholder:
		return "placeholder"
	case StateNoMatches:
		return "no-matches"
	case StateMatches:
		return "matches"
	default:
		return "unknown"
	}
}

const maxSuggestions = 3

// FilterResult is the output of Filter.
type FilterResult struct {
	State        State
	Products     []Product
	CategoryTerm string
	SearchTerm   string
	// Suggestions holds close category names when nothing matched.
	Suggestions []string
}

// Normalize folds a term for comparison: NFKC width folding, trimming, lower-casing.
func Normalize(s string) string {
	return lower(strings.TrimSpace(norm.NFKC.String(s)))
}

func lower(s string) string {
	// cases.Caser is stateful; one per call.
	return cases.Lower(language.Und).String(s)
}

// Filter narrows the catalog by category and free-text search. Both filters keep catalog
// order. With both terms empty the result is a placeholder, never the full catalog.
func Filter(products []Product, categoryTerm, searchTerm string) FilterResult {
	res := FilterResult{CategoryTerm: categoryTerm, SearchTerm: searchTerm}
	category := Normalize(categoryTerm)
	search := lower(norm.NFKC.String(searchTerm))
	if category == "" && search == "" {
		res.State = StatePlaceholder
		return res
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && Normalize(p.Category) != category {
			continue
		}
		if search != "" && !strings.Contains(haystack(p), search) {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		res.State = StateNoMatches
		term := search
		if strings.TrimSpace(term) == "" {
			term = category
		}
		res.Suggestions = suggestCategories(products, strings.TrimSpace(term))
		return res
	}
	res.State = StateMatches
	res.Products = out
	return res
}

func haystack(p Product) string {
	joined := strings.Join([]string{p.Name, p.Brand, p.Description, p.Category}, " ")
	return lower(norm.NFKC.String(joined))
}

func suggestCategories(products []Product, term string) []string {
	if term == "" {
		return nil
	}
	var targets []string
	seen := map[string]struct{}{}
	for _, p := range products {
		c := Normalize(p.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		targets = append(targets, c)
	}
	ranks := fuzzy.RankFindNormalizedFold(term, targets)
	sort.Sort(ranks)
	out := make([]string, 0, maxSuggestions)
	for _, r := range ranks {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, r.Target)
	}
	return out
}
