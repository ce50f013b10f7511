// Package content serves localized static pages written as markdown with YAML front matter.
package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no language variant of a page exists.
var ErrNotFound = errors.New("content: not found")

const (
	defaultTTL      = 5 * time.Minute
	defaultFallback = "en"
	formatMarkdown  = "markdown"
	formatHTML      = "html"
)

// Page is a rendered content page. Body is sanitized HTML.
type Page struct {
	Slug        string
	Lang        string
	Title       string
	Summary     string
	Body        template.HTML
	UpdatedAt   time.Time
	Banner      *Banner
	Description string
}

// Banner is an optional notice shown above the body.
type Banner struct {
	Variant string
	Message string
}

type frontMatter struct {
	Title       string `yaml:"title"`
	Summary     string `yaml:"summary"`
	Lang        string `yaml:"lang"`
	Format      string `yaml:"format"`
	UpdatedAt   string `yaml:"updated_at"`
	Description string `yaml:"description"`
	Banner      *struct {
		Variant string `yaml:"variant"`
		Message string `yaml:"message"`
	} `yaml:"banner"`
}

// Option configures a Source.
type Option func(*Source)

// WithTTL overrides how long rendered pages stay cached.
func WithTTL(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithFallbackLang sets the language tried when the requested one has no page.
func WithFallbackLang(lang string) Option {
	return func(s *Source) {
		if lang = strings.TrimSpace(strings.ToLower(lang)); lang != "" {
			s.fallback = lang
		}
	}
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

// Source reads pages from <dir>/pages/<lang>/<slug>.md.
type Source struct {
	dir      string
	ttl      time.Duration
	fallback string
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	now      func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewSource returns a Source rooted at dir.
func NewSource(dir string, opts ...Option) *Source {
	s := &Source{
		dir:      strings.TrimSpace(dir),
		ttl:      defaultTTL,
		fallback: defaultFallback,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
		),
		policy: newPagePolicy(),
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newPagePolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("figure", "figcaption")
	policy.AllowAttrs("class").OnElements("figure", "figcaption", "p", "span")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// Page returns slug in lang, falling back to the configured language.
func (s *Source) Page(ctx context.Context, slug, lang string) (Page, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	lang = strings.TrimSpace(strings.ToLower(lang))
	key := lang + "|" + slug
	if page, ok := s.cached(key); ok {
		return page, nil
	}

	priority := []string{lang}
	if lang != s.fallback {
		priority = append(priority, s.fallback)
	}
	for _, candidate := range priority {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		if candidate == "" {
			continue
		}
		page, err := s.read(slug, candidate)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Page{}, err
		}
		s.store(key, page)
		return page, nil
	}
	return Page{}, ErrNotFound
}

func (s *Source) read(slug, lang string) (Page, error) {
	file := filepath.Join(s.dir, "pages", lang, slug+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, fmt.Errorf("content: read %s: %w", file, err)
	}

	fm, body := splitFrontMatter(string(data))
	var front frontMatter
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", file, err)
		}
	}

	html := body
	if format := strings.ToLower(strings.TrimSpace(front.Format)); format == "" || format == formatMarkdown {
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(body), &buf); err != nil {
			return Page{}, fmt.Errorf("content: render %s: %w", file, err)
		}
		html = buf.String()
	}

	page := Page{
		Slug:        slug,
		Lang:        firstNonEmpty(strings.TrimSpace(front.Lang), lang),
		Title:       strings.TrimSpace(front.Title),
		Summary:     strings.TrimSpace(front.Summary),
		Description: strings.TrimSpace(front.Description),
		Body:        template.HTML(strings.TrimSpace(s.policy.Sanitize(html))),
		UpdatedAt:   parseDate(front.UpdatedAt),
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	if page.UpdatedAt.IsZero() {
		if info, err := os.Stat(file); err == nil {
			page.UpdatedAt = info.ModTime()
		}
	}
	if front.Banner != nil && strings.TrimSpace(front.Banner.Message) != "" {
		page.Banner = &Banner{
			Variant: firstNonEmpty(strings.TrimSpace(front.Banner.Variant), "info"),
			Message: strings.TrimSpace(front.Banner.Message),
		}
	}
	return page, nil
}

func (s *Source) cached(key string) (Page, bool) {
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expires) {
		return Page{}, false
	}
	return clonePage(entry.page), true
}

func (s *Source) store(key string, page Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = cacheEntry{page: clonePage(page), expires: s.now().Add(s.ttl)}
}

func clonePage(src Page) Page {
	cp := src
	if src.Banner != nil {
		b := *src.Banner
		cp.Banner = &b
	}
	return cp
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\ufeff")
	lines := strings.Split(input, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func parseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func sanitizeSlug(slug string) string {
	slug = strings.Trim(strings.TrimSpace(strings.ToLower(slug)), "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsAny(slug, `/\`) {
		return ""
	}
	return slug
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
