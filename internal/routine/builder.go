// Package routine turns a set of selected products into an ordered usage routine, either
// through a remote text-generation endpoint or a deterministic local heuristic.
package routine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/routine-web/internal/catalog"
)

// Mode identifies how a routine was produced.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
	// ModeNone is reported when nothing was built (empty selection).
	ModeNone Mode = "none"
)

// Config selects and tunes the builder. An empty APIKey selects local mode.
type Config struct {
	Endpoint      string
	APIKey        string
	Model         string
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
	RatePerMinute int
}

func (c Config) withDefaults() Config {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		c.Endpoint = defaultEndpoint
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
	if strings.TrimSpace(c.Model) == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.Temperature < 0 {
		c.Temperature = defaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = defaultRatePerMin
	}
	return c
}

// Result is what the caller displays. Exactly one of Text and Err is set.
type Result struct {
	Mode   Mode
	Text   string
	Err    string
	Status int
	Steps  []Step
}

// Failed reports whether Err should be shown instead of Text.
func (r Result) Failed() bool { return r.Err != "" }

// Outcome is a short label for metrics and logs.
func (r Result) Outcome() string {
	switch {
	case r.Mode == ModeNone:
		return "empty"
	case r.Failed():
		return "error"
	case r.Text == NoResponseMessage:
		return "no_response"
	default:
		return "ok"
	}
}

// Builder produces routines. Build never returns an error: failures become Result.Err.
type Builder struct {
	remote *Client
	logger *zap.Logger
}

// NewBuilder returns a Builder; the remote client exists only when cfg carries a credential.
func NewBuilder(cfg Config, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{logger: logger}
	if strings.TrimSpace(cfg.APIKey) != "" {
		b.remote = NewClient(cfg)
	}
	return b
}

// Mode reports which mode non-empty selections use.
func (b *Builder) Mode() Mode {
	if b.remote != nil {
		return ModeRemote
	}
	return ModeLocal
}

// Build produces a routine for products in selection order.
func (b *Builder) Build(ctx context.Context, products []catalog.Product) Result {
	if len(products) == 0 {
		return Result{Mode: ModeNone, Text: EmptySelectionMessage}
	}
	if b.remote == nil {
		steps := LocalSteps(products)
		return Result{Mode: ModeLocal, Text: FormatSteps(steps), Steps: steps}
	}

	text, err := b.remote.Generate(ctx, products)
	if err != nil {
		b.logger.Warn("routine generation failed", zap.Error(err), zap.Int("products", len(products)))
		return failure(err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{Mode: ModeRemote, Text: NoResponseMessage}
	}
	return Result{Mode: ModeRemote, Text: text}
}

func failure(err error) Result {
	res := Result{Mode: ModeRemote}
	var fetchErr *FetchError
	var parseErr *ParseError
	switch {
	case errors.As(err, &fetchErr) && fetchErr.Status > 0:
		res.Status = fetchErr.Status
		res.Err = fmt.Sprintf("Request failed (status %d): %s", fetchErr.Status, fetchErr.Body)
	case errors.As(err, &parseErr):
		res.Err = "Could not read the routine service response: " + parseErr.Err.Error()
	default:
		res.Err = "Could not reach the routine service: " + err.Error()
	}
	return res
}
