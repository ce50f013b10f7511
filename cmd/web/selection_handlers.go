package main

import (
	"net/http"

	"finitefield.org/routine-web/internal/i18n"
	mw "finitefield.org/routine-web/internal/middleware"
	"finitefield.org/routine-web/internal/overlay"
	"finitefield.org/routine-web/internal/selection"
)

// toggleFrag is the toggle response: the toggled card replaces itself, everything else is
// swapped out of band.
type toggleFrag struct {
	Card    cardFrag
	Summary summaryFrag
	Overlay overlayFrag
	Others  []cardFrag
}

// summaryUpdateFrag is a summary swap plus out-of-band card refreshes.
type summaryUpdateFrag struct {
	Summary summaryFrag
	Cards   []cardFrag
}

// SelectionToggle flips membership of a product, persists the selection and opens the
// product's detail overlay.
func (a *App) SelectionToggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := mw.Lang(r)
	scope := mw.SessionID(r)

	if _, err := a.loadCatalog(ctx); err != nil {
		mw.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	p, ok := a.catalog.Lookup(productParam(r))
	if !ok {
		mw.WriteError(w, r, http.StatusNotFound, "product not found")
		return
	}
	key := p.Key()

	sel := a.selections.Update(ctx, scope, func(s *selection.Set) bool {
		s.Toggle(key)
		return true
	})
	a.metrics.SelectionChanged("toggle")

	tr := a.overlays.Open(scope, key)
	triggerOverlay(w, tr)

	data := toggleFrag{
		Card:    cardFrag{Lang: lang, Card: a.renderer.Card(p, sel, key)},
		Summary: summaryFrag{Lang: lang, Summary: a.renderer.Summary(sel, a.catalog), OOB: true},
		Overlay: overlayFrag{Lang: lang, Overlay: a.renderer.Overlay(p, sel, lang, i18n.Direction(lang)), OOB: true},
	}
	if tr.TornDown() && tr.Previous != key {
		if prev, ok := a.cardFor(tr.Previous, sel, key, lang); ok {
			data.Others = append(data.Others, prev)
		}
	}
	a.renderTemplate(w, r, "frag_toggle", data)
}

// SelectionRemove drops an identifier from the selection whether or not it is selected or
// still in the catalog.
func (a *App) SelectionRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := mw.Lang(r)
	scope := mw.SessionID(r)
	id := selection.Normalize(productParam(r))

	removed := false
	sel := a.selections.Update(ctx, scope, func(s *selection.Set) bool {
		removed = s.Remove(id)
		return removed
	})
	if removed {
		a.metrics.SelectionChanged("remove")
	}

	// names in the summary fall back to ids if the catalog cannot load
	_, _ = a.loadCatalog(ctx)
	data := summaryUpdateFrag{Summary: summaryFrag{Lang: lang, Summary: a.renderer.Summary(sel, a.catalog)}}
	if card, ok := a.cardFor(id, sel, a.overlays.Current(scope).ProductID(), lang); ok {
		data.Cards = append(data.Cards, card)
	}
	a.renderTemplate(w, r, "frag_summary_update", data)
}

// SelectionClear empties the selection and asks the grid to redraw.
func (a *App) SelectionClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := mw.Lang(r)
	scope := mw.SessionID(r)

	sel := a.selections.Update(ctx, scope, func(s *selection.Set) bool {
		s.Clear()
		return true
	})
	a.metrics.SelectionChanged("clear")

	mw.TriggerEvents(w, map[string]any{"selection:cleared": true})
	a.renderTemplate(w, r, "frag_summary_update", summaryUpdateFrag{
		Summary: summaryFrag{Lang: lang, Summary: a.renderer.Summary(sel, a.catalog)},
	})
}

// SelectionSummaryFrag renders the summary list.
func (a *App) SelectionSummaryFrag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel := a.selections.Get(ctx, mw.SessionID(r))
	_, _ = a.loadCatalog(ctx)
	a.renderTemplate(w, r, "frag_summary", summaryFrag{
		Lang:    mw.Lang(r),
		Summary: a.renderer.Summary(sel, a.catalog),
	})
}

// cardFor builds an out-of-band card for key when the catalog knows it.
func (a *App) cardFor(key string, sel *selection.Set, highlighted, lang string) (cardFrag, bool) {
	p, ok := a.catalog.Lookup(key)
	if !ok {
		return cardFrag{}, false
	}
	return cardFrag{Lang: lang, Card: a.renderer.Card(p, sel, highlighted), OOB: true}, true
}

// triggerOverlay announces a transition. Keys are emitted sorted, so overlay:closed fires
// before overlay:opened.
func triggerOverlay(w http.ResponseWriter, tr overlay.Transition) {
	events := map[string]any{}
	if tr.TornDown() {
		events["overlay:closed"] = map[string]string{"id": tr.Previous}
	}
	if tr.Current != "" {
		events["overlay:opened"] = map[string]string{"id": tr.Current}
	}
	mw.TriggerEvents(w, events)
}
