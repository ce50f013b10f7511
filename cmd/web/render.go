package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/routine-web/internal/i18n"
	mw "finitefield.org/routine-web/internal/middleware"
	"finitefield.org/routine-web/internal/observability"
	"finitefield.org/routine-web/internal/view"
)

// templateSet holds the shared layout and partials plus one clone per page. Pages live
// under pages/ and each defines "content"; everything else is shared.
type templateSet struct {
	dir    string
	dev    bool
	bundle *i18n.Bundle

	shared *template.Template
	pages  map[string]*template.Template
}

func newTemplateSet(dir string, dev bool, bundle *i18n.Bundle) (*templateSet, error) {
	ts := &templateSet{dir: dir, dev: dev, bundle: bundle}
	shared, pages, err := ts.parse()
	if err != nil {
		return nil, err
	}
	ts.shared, ts.pages = shared, pages
	return ts, nil
}

func (ts *templateSet) funcs() template.FuncMap {
	return template.FuncMap{
		"t": func(lang, key string) string {
			return ts.bundle.T(lang, key)
		},
		"cardView": func(lang string, card view.Card, oob bool) cardFrag {
			return cardFrag{Lang: lang, Card: card, OOB: oob}
		},
	}
}

func (ts *templateSet) parse() (*template.Template, map[string]*template.Template, error) {
	var sharedFiles, pageFiles []string
	err := filepath.WalkDir(ts.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "pages" {
			pageFiles = append(pageFiles, path)
		} else {
			sharedFiles = append(sharedFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(sharedFiles) == 0 {
		return nil, nil, fmt.Errorf("no templates found under %s", ts.dir)
	}

	shared, err := template.New("_root").Funcs(ts.funcs()).ParseFiles(sharedFiles...)
	if err != nil {
		return nil, nil, err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		clone, err := shared.Clone()
		if err != nil {
			return nil, nil, err
		}
		if _, err := clone.ParseFiles(file); err != nil {
			return nil, nil, err
		}
		pages[strings.TrimSuffix(filepath.Base(file), ".tmpl")] = clone
	}
	return shared, pages, nil
}

// current returns the parsed templates, reparsing on every call in dev mode.
func (ts *templateSet) current() (*template.Template, map[string]*template.Template, error) {
	if ts.dev {
		return ts.parse()
	}
	return ts.shared, ts.pages, nil
}

// renderPage executes the base layout for the named page with a 200 status.
func (a *App) renderPage(w http.ResponseWriter, r *http.Request, page string, data any) {
	a.renderPageStatus(w, r, http.StatusOK, page, data)
}

func (a *App) renderPageStatus(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	_, pages, err := a.templates.current()
	if err != nil {
		a.templateError(w, r, "parse", page, err)
		return
	}
	t, ok := pages[page]
	if !ok {
		a.templateError(w, r, "lookup", page, fmt.Errorf("page %q not found", page))
		return
	}
	a.execute(w, r, status, t, "base", data)
}

// renderTemplate executes a named fragment.
func (a *App) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	shared, _, err := a.templates.current()
	if err != nil {
		a.templateError(w, r, "parse", name, err)
		return
	}
	a.execute(w, r, http.StatusOK, shared, name, data)
}

func (a *App) execute(w http.ResponseWriter, r *http.Request, status int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		a.templateError(w, r, "exec", name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (a *App) templateError(w http.ResponseWriter, r *http.Request, stage, name string, err error) {
	observability.FromContext(r.Context()).Error("template "+stage+" failed",
		zap.String("template", name),
		zap.Error(err),
	)
	mw.WriteError(w, r, http.StatusInternalServerError, "template error")
}
