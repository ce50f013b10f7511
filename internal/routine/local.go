package routine

import (
	"fmt"
	"strings"

	"finitefield.org/routine-web/internal/catalog"
)

// Fixed user-facing copy.
const (
	EmptySelectionMessage = "Please select at least one product to build a routine."
	PrecautionLine        = "Patch test new products and use sunscreen daily."
	NoResponseMessage     = "No response from the routine service."
)

// priority is the application order for known categories.
var priority = []string{
	"cleanser",
	"exfoliant",
	"toner",
	"essence",
	"serum",
	"eye",
	"moisturizer",
	"oil",
	"sunscreen",
}

var reasons = map[string]string{
	"cleanser":    "removes dirt and oil so later steps can absorb",
	"exfoliant":   "clears dead skin; use a few times a week, not daily",
	"toner":       "rebalances the skin after cleansing",
	"essence":     "adds a light first layer of hydration",
	"serum":       "delivers concentrated actives before heavier layers",
	"eye":         "treats the delicate eye area with a lighter formula",
	"moisturizer": "locks in hydration from the previous steps",
	"oil":         "seals everything in; apply after water-based products",
	"sunscreen":   "protects against UV damage; always the last morning step",
}

const defaultReason = "apply after the core steps, following the label directions"

// Step is one line of a generated routine.
type Step struct {
	Category    string
	ProductName string
	Brand       string
	Reason      string
}

// LocalSteps orders products by the fixed category priority. Products keep their selection
// order within a category; categories outside the priority list follow in first-seen order.
func LocalSteps(products []catalog.Product) []Step {
	buckets := make(map[string][]catalog.Product)
	var order []string
	for _, p := range products {
		c := catalog.Normalize(p.Category)
		if _, ok := buckets[c]; !ok {
			order = append(order, c)
		}
		buckets[c] = append(buckets[c], p)
	}

	steps := make([]Step, 0, len(products))
	emit := func(category string) {
		for _, p := range buckets[category] {
			steps = append(steps, newStep(category, p))
		}
		delete(buckets, category)
	}
	for _, c := range priority {
		if len(buckets[c]) > 0 {
			emit(c)
		}
	}
	for _, c := range order {
		if _, ok := buckets[c]; ok {
			emit(c)
		}
	}
	return steps
}

func newStep(category string, p catalog.Product) Step {
	reason, ok := reasons[category]
	if !ok {
		reason = defaultReason
	}
	return Step{
		Category:    category,
		ProductName: p.Name,
		Brand:       p.Brand,
		Reason:      reason,
	}
}

// FormatSteps renders numbered plain-text lines followed by the precaution line.
func FormatSteps(steps []Step) string {
	var b strings.Builder
	for i, s := range steps {
		fmt.Fprintf(&b, "%d. %s", i+1, s.ProductName)
		if strings.TrimSpace(s.Brand) != "" {
			fmt.Fprintf(&b, " (%s)", s.Brand)
		}
		label := s.Category
		if label == "" {
			label = "other"
		}
		fmt.Fprintf(&b, " [%s]: %s\n", label, s.Reason)
	}
	b.WriteString("\n")
	b.WriteString(PrecautionLine)
	return b.String()
}
