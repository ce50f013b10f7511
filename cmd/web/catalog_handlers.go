package main

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/routine-web/internal/catalog"
	"finitefield.org/routine-web/internal/handlers"
	"finitefield.org/routine-web/internal/i18n"
	mw "finitefield.org/routine-web/internal/middleware"
	"finitefield.org/routine-web/internal/nav"
	"finitefield.org/routine-web/internal/observability"
	"finitefield.org/routine-web/internal/view"
)

// catalogView is the payload of the catalog page.
type catalogView struct {
	Category   string
	Query      string
	Categories []categoryOption
	Grid       gridFrag
	Summary    summaryFrag
	Overlay    *overlayFrag
	LoadError  bool
}

type categoryOption struct {
	Value    string
	Selected bool
}

type gridFrag struct {
	Lang      string
	Grid      view.Grid
	LoadError bool
}

type summaryFrag struct {
	Lang    string
	Summary view.Summary
	OOB     bool
}

type cardFrag struct {
	Lang string
	Card view.Card
	OOB  bool
}

// CatalogPage renders the full catalog page for the current filters.
func (a *App) CatalogPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := mw.Lang(r)
	scope := mw.SessionID(r)
	q := r.URL.Query()

	pd := a.basePageData(r, a.bundle.T(lang, "catalog.title"))
	pd.SEO.Description = a.bundle.T(lang, "catalog.description")
	pd.SEO.OG.Description = pd.SEO.Description

	sel := a.selections.Get(ctx, scope)
	vm := catalogView{
		Category: q.Get("category"),
		Query:    q.Get("q"),
		Grid:     gridFrag{Lang: lang},
		Summary:  summaryFrag{Lang: lang},
	}

	products, err := a.loadCatalog(ctx)
	if err != nil {
		vm.LoadError = true
		vm.Grid.LoadError = true
		vm.Summary.Summary = a.renderer.Summary(sel, a.catalog)
		pd.Catalog = vm
		a.renderPageStatus(w, r, http.StatusServiceUnavailable, "catalog", pd)
		return
	}
	categories, _ := a.catalog.Categories(ctx)
	chosen := catalog.Normalize(vm.Category)
	for _, c := range categories {
		vm.Categories = append(vm.Categories, categoryOption{Value: c, Selected: chosen != "" && catalog.Normalize(c) == chosen})
	}

	current := a.overlays.Current(scope)
	res := catalog.Filter(products, vm.Category, vm.Query)
	vm.Grid.Grid = a.renderer.Grid(res, sel, current.ProductID())
	vm.Summary.Summary = a.renderer.Summary(sel, a.catalog)
	if current.IsOpen() {
		if p, ok := a.catalog.Lookup(current.ProductID()); ok {
			vm.Overlay = &overlayFrag{Lang: lang, Overlay: a.renderer.Overlay(p, sel, lang, i18n.Direction(lang))}
		}
	}
	pd.Catalog = vm
	a.renderPage(w, r, "catalog", pd)
}

// ProductsFrag renders the grid fragment for the category and q params. The seq param is
// echoed back so the client can discard responses that arrive out of order.
func (a *App) ProductsFrag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := mw.Lang(r)
	scope := mw.SessionID(r)
	q := r.URL.Query()
	category, search := q.Get("category"), q.Get("q")

	seq, _ := strconv.ParseInt(q.Get("seq"), 10, 64)
	if seq < 0 {
		seq = 0
	}
	w.Header().Set("X-Grid-Seq", strconv.FormatInt(seq, 10))
	if mw.IsHTMX(ctx) {
		mw.PushURL(w, catalogURL(category, search))
	}

	data := gridFrag{Lang: lang}
	products, err := a.loadCatalog(ctx)
	if err != nil {
		data.LoadError = true
		data.Grid.Seq = seq
		a.renderTemplate(w, r, "frag_grid", data)
		return
	}
	sel := a.selections.Get(ctx, scope)
	data.Grid = a.renderer.Grid(catalog.Filter(products, category, search), sel, a.overlays.Current(scope).ProductID())
	data.Grid.Seq = seq
	a.renderTemplate(w, r, "frag_grid", data)
}

// loadCatalog loads the catalog, counting only attempts that actually read the source.
func (a *App) loadCatalog(ctx context.Context) ([]catalog.Product, error) {
	cold := !a.catalog.Loaded()
	products, err := a.catalog.Load(ctx)
	if cold {
		a.metrics.CatalogLoaded(err)
	}
	if err != nil {
		observability.FromContext(ctx).Error("catalog load failed",
			zap.String("source", a.catalog.Source()),
			zap.Error(err),
		)
	}
	return products, err
}

// basePageData fills the layout fields shared by every page.
func (a *App) basePageData(r *http.Request, title string) handlers.PageData {
	lang := mw.Lang(r)
	pd := handlers.PageData{
		Title:       title,
		Lang:        lang,
		Dir:         i18n.Direction(lang),
		CSRFToken:   mw.CSRFToken(r),
		Path:        r.URL.Path,
		Nav:         nav.Build(r.URL.Path),
		Breadcrumbs: nav.Breadcrumbs(r.URL.Path),
	}
	canonical := absoluteURL(r, r.URL.Path)
	pd.SetSEO(a.bundle.T(lang, "brand"), title, "", canonical)
	for _, code := range a.bundle.Supported() {
		pd.Languages = append(pd.Languages, handlers.LanguageOption{
			Code:   code,
			Href:   r.URL.Path + "?hl=" + code,
			Active: code == lang,
		})
		pd.SEO.Alternates = append(pd.SEO.Alternates, handlers.Alternate{
			Href:     canonical + "?hl=" + code,
			Hreflang: code,
		})
	}
	return pd
}

func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}

// catalogURL is the shareable page URL for a filter state.
func catalogURL(category, search string) string {
	v := url.Values{}
	if strings.TrimSpace(category) != "" {
		v.Set("category", category)
	}
	if strings.TrimSpace(search) != "" {
		v.Set("q", search)
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}

// productParam returns the decoded {productID} path value.
func productParam(r *http.Request) string {
	raw := chi.URLParam(r, "productID")
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(raw); err == nil {
			raw = decoded
		}
	}
	return strings.TrimSpace(raw)
}
