// Package view projects catalog, selection, and overlay state into template view models.
package view

import (
	"encoding/hex"
	"html/template"
	"net/url"

	"github.com/microcosm-cc/bluemonday"

	"finitefield.org/routine-web/internal/catalog"
)

// Membership is the read side of a selection.
type Membership interface {
	Contains(id string) bool
	IDs() []string
}

// Resolver maps an identifier to its catalog product when the catalog is loaded.
type Resolver interface {
	Lookup(key string) (catalog.Product, bool)
}

// Card is one product entry in the grid.
type Card struct {
	ID    string
	DOMID string
	// Name, Brand and Description come from the trusted catalog and keep their markup,
	// filtered through the bluemonday UGC policy. Markup outside that policy is dropped,
	// so Description is not always the catalog text verbatim. The overlay reuses it.
	Name        template.HTML
	Brand       template.HTML
	Description template.HTML
	Category    string
	Image       string
	Selected    bool
	Highlighted bool
	// Expanded is the initial state of the detail panel.
	Expanded bool

	TogglePath  string
	OverlayPath string
}

// Grid is the rendered product list.
type Grid struct {
	State        catalog.State
	Cards        []Card
	CategoryTerm string
	SearchTerm   string
	Suggestions  []string
	Seq          int64
}

// Placeholder reports that no filter has been chosen yet.
func (g Grid) Placeholder() bool { return g.State == catalog.StatePlaceholder }

// NoMatches reports that a filter was chosen and nothing matched.
func (g Grid) NoMatches() bool { return g.State == catalog.StateNoMatches }

// SummaryItem is one selected product in the summary list. Name is plain text.
type SummaryItem struct {
	ID         string
	Name       string
	RemovePath string
	DOMID      string
}

// Summary lists the current selection.
type Summary struct {
	Items        []SummaryItem
	ClearVisible bool
}

// Overlay is the detail overlay view model.
type Overlay struct {
	Card Card
	Dir  string
	Lang string
}

// Renderer builds view models. Catalog markup passes through policy before it is trusted.
type Renderer struct {
	policy *bluemonday.Policy
}

// NewRenderer returns a Renderer using bluemonday's UGC policy for catalog markup.
func NewRenderer() *Renderer {
	return &Renderer{policy: bluemonday.UGCPolicy()}
}

func (r *Renderer) markup(s string) template.HTML {
	return template.HTML(r.policy.Sanitize(s))
}

// DOMID returns a stable element id for a product key.
func DOMID(key string) string {
	return "product-" + hex.EncodeToString([]byte(key))
}

// Card builds the card for p.
func (r *Renderer) Card(p catalog.Product, sel Membership, highlighted string) Card {
	key := p.Key()
	return Card{
		ID:          key,
		DOMID:       DOMID(key),
		Name:        r.markup(p.Name),
		Brand:       r.markup(p.Brand),
		Description: r.markup(p.Description),
		Category:    p.Category,
		Image:       p.Image,
		Selected:    sel != nil && sel.Contains(key),
		Highlighted: highlighted != "" && highlighted == key,
		TogglePath:  "/selection/" + url.PathEscape(key) + "/toggle",
		OverlayPath: "/products/" + url.PathEscape(key) + "/overlay",
	}
}

// Grid builds the grid for a filter result.
func (r *Renderer) Grid(res catalog.FilterResult, sel Membership, highlighted string) Grid {
	g := Grid{
		State:        res.State,
		CategoryTerm: res.CategoryTerm,
		SearchTerm:   res.SearchTerm,
		Suggestions:  res.Suggestions,
	}
	if res.State != catalog.StateMatches {
		return g
	}
	g.Cards = make([]Card, 0, len(res.Products))
	for _, p := range res.Products {
		g.Cards = append(g.Cards, r.Card(p, sel, highlighted))
	}
	return g
}

// Summary lists every selected id, resolving names through res and falling back to the id.
func (r *Renderer) Summary(sel Membership, res Resolver) Summary {
	ids := sel.IDs()
	s := Summary{Items: make([]SummaryItem, 0, len(ids)), ClearVisible: len(ids) > 0}
	for _, id := range ids {
		name := id
		if res != nil {
			if p, ok := res.Lookup(id); ok && p.Name != "" {
				name = p.Name
			}
		}
		s.Items = append(s.Items, SummaryItem{
			ID:         id,
			Name:       name,
			RemovePath: "/selection/" + url.PathEscape(id) + "/remove",
			DOMID:      "selected-" + hex.EncodeToString([]byte(id)),
		})
	}
	return s
}

// Overlay builds the overlay view model for p.
func (r *Renderer) Overlay(p catalog.Product, sel Membership, lang, dir string) Overlay {
	card := r.Card(p, sel, p.Key())
	card.Expanded = true
	return Overlay{Card: card, Dir: dir, Lang: lang}
}
