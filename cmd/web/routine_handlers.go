package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"finitefield.org/routine-web/internal/catalog"
	mw "finitefield.org/routine-web/internal/middleware"
	"finitefield.org/routine-web/internal/observability"
)

type routineFrag struct {
	Lang string
	Mode string
	Text string
	Err  string
}

type chatFrag struct {
	Lang    string
	Message string
}

// RoutineBuild materializes the selection against the catalog and builds a routine. Failures
// are rendered in the result area; the response is always 200.
func (a *App) RoutineBuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := mw.Lang(r)
	logger := observability.FromContext(ctx)
	data := routineFrag{Lang: lang}

	sel := a.selections.Get(ctx, mw.SessionID(r))
	var products []catalog.Product
	if sel.Len() > 0 {
		if _, err := a.loadCatalog(ctx); err != nil {
			data.Err = a.bundle.T(lang, "routine.catalog_error")
			a.renderTemplate(w, r, "frag_routine", data)
			return
		}
		for _, id := range sel.IDs() {
			p, ok := a.catalog.Lookup(id)
			if !ok {
				logger.Debug("selected id not in catalog", zap.String("id", id))
				continue
			}
			products = append(products, p)
		}
	}

	start := time.Now()
	res := a.routines.Build(ctx, products)
	took := time.Since(start)
	a.metrics.RoutineBuilt(string(res.Mode), res.Outcome(), took)
	logger.Info("routine built",
		zap.String("mode", string(res.Mode)),
		zap.String("outcome", res.Outcome()),
		zap.Int("products", len(products)),
		zap.Float64("took_ms", float64(took.Microseconds())/1000),
	)

	data.Mode = string(res.Mode)
	if res.Failed() {
		data.Err = res.Err
	} else {
		data.Text = res.Text
	}
	a.renderTemplate(w, r, "frag_routine", data)
}

// ChatSubmit answers every chat message with a fixed notice; chat is not implemented.
func (a *App) ChatSubmit(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	a.renderTemplate(w, r, "frag_chat", chatFrag{
		Lang:    lang,
		Message: a.bundle.T(lang, "chat.unavailable"),
	})
}
