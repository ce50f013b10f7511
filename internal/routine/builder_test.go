package routine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/routine-web/internal/catalog"
)

func product(id, name, category string) catalog.Product {
	return catalog.Product{ID: catalog.ProductID(id), Name: name, Category: category}
}

func TestLocalOrderingFollowsPriority(t *testing.T) {
	t.Parallel()

	in := []catalog.Product{
		product("3", "Mystery", "Unknown"),
		product("1", "Shield", "Sunscreen"),
		product("2", "Foam", " CLEANSER "),
	}
	steps := LocalSteps(in)
	require.Len(t, steps, 3)
	require.Equal(t, "Foam", steps[0].ProductName)
	require.Equal(t, "Shield", steps[1].ProductName)
	require.Equal(t, "Mystery", steps[2].ProductName)
	require.Equal(t, defaultReason, steps[2].Reason)
}

func TestLocalKeepsSelectionOrderWithinCategoryAndFirstSeenForUnknown(t *testing.T) {
	t.Parallel()

	in := []catalog.Product{
		product("1", "Mask", "mask"),
		product("2", "Serum B", "serum"),
		product("3", "Mist", "mist"),
		product("4", "Serum A", "Serum"),
		product("5", "Mask 2", "Mask"),
	}
	var got []string
	for _, s := range LocalSteps(in) {
		got = append(got, s.ProductName)
	}
	require.Equal(t, []string{"Serum B", "Serum A", "Mask", "Mask 2", "Mist"}, got)
}

func TestLocalModeScenario(t *testing.T) {
	t.Parallel()

	b := NewBuilder(Config{}, nil)
	require.Equal(t, ModeLocal, b.Mode())

	res := b.Build(context.Background(), []catalog.Product{
		product("1", "A", "cleanser"),
		product("2", "B", "serum"),
	})
	require.False(t, res.Failed())
	require.Equal(t, ModeLocal, res.Mode)
	first := strings.Index(res.Text, "1. A")
	second := strings.Index(res.Text, "2. B")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	require.True(t, strings.HasSuffix(res.Text, PrecautionLine))
	require.Equal(t, "ok", res.Outcome())
}

func TestEmptySelectionMakesNoNetworkCall(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(srv.Close)

	for _, cfg := range []Config{{}, {APIKey: "k", Endpoint: srv.URL}} {
		res := NewBuilder(cfg, nil).Build(context.Background(), nil)
		require.Equal(t, ModeNone, res.Mode)
		require.Equal(t, EmptySelectionMessage, res.Text)
		require.Equal(t, "empty", res.Outcome())
	}
	require.Zero(t, calls.Load())
}

func TestRemoteModeSendsStructuredRequest(t *testing.T) {
	t.Parallel()

	var got chatRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"  1. Cleanse\n  2. Moisturize"}}]}`)
	}))
	t.Cleanup(srv.Close)

	b := NewBuilder(Config{APIKey: "secret", Endpoint: srv.URL, Model: "m1", MaxTokens: 99, Temperature: 0.2}, nil)
	require.Equal(t, ModeRemote, b.Mode())
	p := product("7", "Foam", "cleanser")
	p.Brand = "Acme"
	p.Description = "gentle"
	res := b.Build(context.Background(), []catalog.Product{p})

	require.False(t, res.Failed())
	require.Equal(t, "  1. Cleanse\n  2. Moisturize", res.Text, "text is shown verbatim")
	require.Equal(t, "Bearer secret", auth)
	require.Equal(t, "m1", got.Model)
	require.Equal(t, 99, got.MaxTokens)
	require.InDelta(t, 0.2, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	require.Equal(t, instruction, got.Messages[0].Content)

	payload := strings.TrimPrefix(got.Messages[1].Content, "Selected products (JSON):\n")
	require.JSONEq(t, `[{"id":"7","name":"Foam","brand":"Acme","category":"cleanser","description":"gentle"}]`, payload)
}

func TestRemoteModeResponseVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		body    string
		text    string
		errPart string
		code    int
	}{
		{name: "fallback text", status: 200, body: `{"choices":[{"text":"use it"}]}`, text: "use it"},
		{name: "no choices", status: 200, body: `{"choices":[]}`, text: NoResponseMessage},
		{name: "blank content", status: 200, body: `{"choices":[{"message":{"content":"  "}}]}`, text: NoResponseMessage},
		{name: "server error", status: 503, body: "overloaded", errPart: "Request failed (status 503): overloaded", code: 503},
		{name: "padded error body", status: 502, body: "  bad gateway\n", errPart: "Request failed (status 502):   bad gateway\n", code: 502},
		{name: "unauthorized", status: 401, body: `{"error":"bad key"}`, errPart: `status 401): {"error":"bad key"}`, code: 401},
		{name: "garbage", status: 200, body: `<html>`, errPart: "Could not read the routine service response"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			t.Cleanup(srv.Close)

			res := NewBuilder(Config{APIKey: "k", Endpoint: srv.URL}, nil).
				Build(context.Background(), []catalog.Product{product("1", "A", "toner")})
			require.Equal(t, ModeRemote, res.Mode)
			if tc.errPart != "" {
				require.True(t, res.Failed())
				require.Contains(t, res.Err, tc.errPart)
				require.Equal(t, tc.code, res.Status)
				return
			}
			require.False(t, res.Failed())
			require.Equal(t, tc.text, res.Text)
		})
	}
}

func TestRemoteErrorBodyIsCapped(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("x", maxErrorBody+500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	res := NewBuilder(Config{APIKey: "k", Endpoint: srv.URL}, nil).
		Build(context.Background(), []catalog.Product{product("1", "A", "toner")})
	require.True(t, res.Failed())
	require.Equal(t, "Request failed (status 500): "+body[:maxErrorBody], res.Err)
}

func TestRemoteTransportFailureIsReportedInPlace(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	res := NewBuilder(Config{APIKey: "k", Endpoint: url}, nil).
		Build(context.Background(), []catalog.Product{product("1", "A", "toner")})
	require.True(t, res.Failed())
	require.Contains(t, res.Err, "Could not reach the routine service")
	require.Equal(t, "error", res.Outcome())
}
