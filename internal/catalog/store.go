package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxPayloadBytes     = 8 << 20
)

// Collision records a product whose natural key was already taken by an earlier product.
// The later product is served under AssignedKey ("<key>#<n>").
type Collision struct {
	Key         string
	AssignedKey string
	Index       int
}

// Store loads the product catalog once and serves the cached slice afterwards.
// A failed load is not cached; the next call tries again.
type Store struct {
	source string
	http   *http.Client
	logger *zap.Logger

	mu         sync.Mutex
	loaded     bool
	products   []Product
	index      map[string]int
	collisions []Collision
	categories []string
}

// Option customises a Store.
type Option func(*Store)

// WithHTTPClient overrides the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) {
		if c != nil {
			s.http = c
		}
	}
}

// WithLogger attaches a logger used for collision warnings.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore constructs a Store reading from a file path or an http(s) URL.
func NewStore(source string, opts ...Option) *Store {
	s := &Store{
		source: strings.TrimSpace(source),
		http:   &http.Client{Timeout: defaultFetchTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStaticStore returns an already-loaded Store over the given products.
func NewStaticStore(products []Product, opts ...Option) *Store {
	s := NewStore("static", opts...)
	s.install(products)
	return s
}

// Source returns the configured catalog location.
func (s *Store) Source() string { return s.source }

// Load returns the catalog, reading the source on first use. Callers share the returned
// slice and must not mutate it.
func (s *Store) Load(ctx context.Context) ([]Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.products, nil
	}
	raw, format, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	var p payload
	switch format {
	case "yaml":
		err = yaml.Unmarshal(raw, &p)
	default:
		err = json.Unmarshal(raw, &p)
	}
	if err != nil {
		return nil, &ParseError{Source: s.source, Err: err}
	}
	s.install(p.Products)
	s.logger.Info("catalog loaded",
		zap.String("source", s.source),
		zap.Int("products", len(s.products)),
		zap.Int("collisions", len(s.collisions)),
	)
	return s.products, nil
}

// Loaded reports whether the catalog is cached.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Lookup resolves a product by key. It never triggers a load: before the catalog is
// cached every lookup misses.
func (s *Store) Lookup(key string) (Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Product{}, false
	}
	i, ok := s.index[strings.TrimSpace(key)]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// Collisions lists products that were re-keyed because their natural key was taken.
func (s *Store) Collisions() []Collision {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Collision, len(s.collisions))
	copy(out, s.collisions)
	return out
}

// Categories returns the distinct categories in first-seen order, compared after normalization.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	if _, err := s.Load(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

// install assigns keys and builds the lookup index. Must be called with s.mu held
// (or before the store is shared).
func (s *Store) install(products []Product) {
	index := make(map[string]int, len(products))
	seen := make(map[string]int, len(products))
	var collisions []Collision
	var categories []string
	catSeen := map[string]struct{}{}
	for i := range products {
		natural := naturalKey(products[i])
		key := natural
		if key != "" {
			if _, taken := index[key]; taken {
				n := seen[natural]
				if n < 1 {
					n = 1
				}
				n++
				for {
					candidate := fmt.Sprintf("%s#%d", natural, n)
					if _, dup := index[candidate]; !dup {
						key = candidate
						break
					}
					n++
				}
				seen[natural] = n
				collisions = append(collisions, Collision{Key: natural, AssignedKey: key, Index: i})
				s.logger.Warn("catalog key collision",
					zap.String("key", natural),
					zap.String("assigned", key),
					zap.Int("index", i),
				)
			} else {
				seen[natural] = 1
			}
			index[key] = i
		}
		products[i].key = key
		if c := Normalize(products[i].Category); c != "" {
			if _, ok := catSeen[c]; !ok {
				catSeen[c] = struct{}{}
				categories = append(categories, strings.TrimSpace(products[i].Category))
			}
		}
	}
	s.products = products
	s.index = index
	s.collisions = collisions
	s.categories = categories
	s.loaded = true
}

func (s *Store) read(ctx context.Context) ([]byte, string, error) {
	if s.source == "" {
		return nil, "", &FetchError{Source: s.source, Err: errors.New("no catalog source configured")}
	}
	if u, err := url.Parse(s.source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return s.readHTTP(ctx, u)
	}
	raw, err := os.ReadFile(s.source)
	if err != nil {
		return nil, "", &FetchError{Source: s.source, Err: err}
	}
	return raw, formatFromPath(s.source), nil
}

func (s *Store) readHTTP(ctx context.Context, u *url.URL) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", &FetchError{Source: s.source, Err: err}
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9")
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", &FetchError{Source: s.source, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", &FetchError{Source: s.source, Status: resp.StatusCode}
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, "", &FetchError{Source: s.source, Err: err}
	}
	format := formatFromPath(u.Path)
	if ct := strings.ToLower(resp.Header.Get("Content-Type")); strings.Contains(ct, "yaml") {
		format = "yaml"
	}
	return raw, format, nil
}

func formatFromPath(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
