package handlers

import (
	"finitefield.org/routine-web/internal/nav"
)

// PageData is a generic view model for pages using the shared layout.
type PageData struct {
	Title     string
	Lang      string
	Dir       string
	CSRFToken string
	SEO       SEOData

	Path        string
	Nav         []nav.RenderedItem
	Breadcrumbs []nav.Crumb
	Languages   []LanguageOption

	// Optional per-page view model payloads
	Catalog any
	Content any
}

// SEOData holds head metadata.
type SEOData struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          struct {
		Title       string
		Description string
		Type        string
		URL         string
		SiteName    string
	}
	Alternates []Alternate
}

// Alternate is one hreflang link.
type Alternate struct {
	Href     string
	Hreflang string
}

// LanguageOption is one entry of the language switcher.
type LanguageOption struct {
	Code   string
	Href   string
	Active bool
}

// SetSEO fills title, description and Open Graph fields from one set of values.
func (p *PageData) SetSEO(brand, title, description, canonical string) {
	full := title
	if brand != "" && title != brand {
		full = title + " | " + brand
	}
	p.SEO.Title = full
	p.SEO.Description = description
	p.SEO.Canonical = canonical
	p.SEO.OG.Title = full
	p.SEO.OG.Description = description
	p.SEO.OG.Type = "website"
	p.SEO.OG.URL = canonical
	p.SEO.OG.SiteName = brand
}
