package main

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/routine-web/internal/content"
	mw "finitefield.org/routine-web/internal/middleware"
	"finitefield.org/routine-web/internal/observability"
)

// ContentPage renders a markdown page in the request language.
func (a *App) ContentPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	page, err := a.content.Page(ctx, slug, mw.Lang(r))
	if errors.Is(err, content.ErrNotFound) {
		mw.WriteError(w, r, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		observability.FromContext(ctx).Error("content page failed", zap.String("slug", slug), zap.Error(err))
		mw.WriteError(w, r, http.StatusInternalServerError, "page unavailable")
		return
	}

	pd := a.basePageData(r, page.Title)
	desc := page.Description
	if desc == "" {
		desc = page.Summary
	}
	pd.SEO.Description = desc
	pd.SEO.OG.Description = desc
	pd.SEO.OG.Type = "article"
	pd.Content = page
	a.renderPage(w, r, "content", pd)
}
