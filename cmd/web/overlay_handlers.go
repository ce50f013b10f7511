package main

import (
	"net/http"

	"finitefield.org/routine-web/internal/i18n"
	mw "finitefield.org/routine-web/internal/middleware"
	"finitefield.org/routine-web/internal/view"
)

type overlayFrag struct {
	Lang    string
	Overlay view.Overlay
	OOB     bool
}

// overlaySwapFrag fills #overlay-root and refreshes the affected cards out of band.
type overlaySwapFrag struct {
	Overlay *overlayFrag
	Cards   []cardFrag
}

// OverlayOpen shows the detail overlay for a product, tearing down the one already open.
func (a *App) OverlayOpen(w http.ResponseWriter, r *http.Request) {
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
	sel := a.selections.Get(ctx, scope)

	tr := a.overlays.Open(scope, key)
	triggerOverlay(w, tr)

	data := overlaySwapFrag{
		Overlay: &overlayFrag{Lang: lang, Overlay: a.renderer.Overlay(p, sel, lang, i18n.Direction(lang))},
	}
	if tr.TornDown() && tr.Previous != key {
		if prev, ok := a.cardFor(tr.Previous, sel, key, lang); ok {
			data.Cards = append(data.Cards, prev)
		}
	}
	data.Cards = append(data.Cards, cardFrag{Lang: lang, Card: a.renderer.Card(p, sel, key), OOB: true})
	a.renderTemplate(w, r, "frag_overlay_swap", data)
}

// OverlayClose removes the overlay and the card highlight.
func (a *App) OverlayClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	scope := mw.SessionID(r)

	tr := a.overlays.Close(scope)
	triggerOverlay(w, tr)

	var data overlaySwapFrag
	if tr.TornDown() {
		sel := a.selections.Get(ctx, scope)
		if card, ok := a.cardFor(tr.Previous, sel, "", mw.Lang(r)); ok {
			data.Cards = append(data.Cards, card)
		}
	}
	a.renderTemplate(w, r, "frag_overlay_swap", data)
}
