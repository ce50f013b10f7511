package routine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"finitefield.org/routine-web/internal/catalog"
)

const (
	defaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 600
	defaultTemperature = 0.7
	defaultTimeout     = 30 * time.Second
	defaultRatePerMin  = 30
	maxErrorBody       = 2048

	instruction = "You are a skincare assistant. Using only the products provided, write a clear " +
		"step-by-step routine (morning and evening where relevant). Number the steps, explain " +
		"briefly why each product goes where it does, and end with a short safety reminder."
)

// FetchError reports a transport failure or a non-success status from the generation endpoint.
type FetchError struct {
	Status int
	Body   string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("routine: endpoint status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("routine: request failed: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a response body that could not be decoded.
type ParseError struct {
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string { return fmt.Sprintf("routine: decode response: %v", e.Err) }

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	http        *http.Client
	limiter     *rate.Limiter
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// productPayload is the shape of each selected product sent to the endpoint.
type productPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// NewClient builds a Client from cfg, filling defaults for unset fields.
func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	perMin := cfg.RatePerMinute
	return &Client{
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		http:        &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
	}
}

// BuildRequest shapes the outbound payload for products.
func (c *Client) BuildRequest(products []catalog.Product) ([]byte, error) {
	items := make([]productPayload, 0, len(products))
	for _, p := range products {
		items = append(items, productPayload{
			ID:          p.Key(),
			Name:        p.Name,
			Brand:       p.Brand,
			Category:    p.Category,
			Description: p.Description,
		})
	}
	list, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: "Selected products (JSON):\n" + string(list)},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
}

// Generate submits products and returns the generated text. An empty string with a nil
// error means the endpoint answered without usable text.
func (c *Client) Generate(ctx context.Context, products []catalog.Product) (string, error) {
	body, err := c.BuildRequest(products)
	if err != nil {
		return "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &FetchError{Err: fmt.Errorf("rate limit: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &FetchError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &FetchError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{Status: resp.StatusCode, Body: drainBody(resp.Body)}
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &ParseError{Err: err}
	}
	if len(payload.Choices) == 0 {
		return "", nil
	}
	first := payload.Choices[0]
	if first.Message != nil && strings.TrimSpace(first.Message.Content) != "" {
		return first.Message.Content, nil
	}
	return first.Text, nil
}

// drainBody returns the error body as sent, cut to maxErrorBody bytes.
func drainBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(b)
}
