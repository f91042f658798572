package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/ttsgateway/internal/auth"
	"github.com/nikhilbhutani/ttsgateway/internal/cache"
	"github.com/nikhilbhutani/ttsgateway/internal/config"
	"github.com/nikhilbhutani/ttsgateway/internal/dispatch"
	"github.com/nikhilbhutani/ttsgateway/internal/metrics"
	"github.com/nikhilbhutani/ttsgateway/internal/schema"
	"github.com/nikhilbhutani/ttsgateway/internal/tts"
	"github.com/nikhilbhutani/ttsgateway/internal/tts/ttstest"
	"github.com/nikhilbhutani/ttsgateway/internal/usage"
)

type fixture struct {
	handler   http.Handler
	alpha     *ttstest.Spy
	beta      *ttstest.Spy
	validator *schema.Validator
}

func testConfig() *config.Config {
	return &config.Config{Server: config.ServerConfig{
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"*"},
	}}
}

func newFixture(t *testing.T, cfg *config.Config, deps Deps) *fixture {
	t.Helper()
	alpha := ttstest.New("alpha")
	alpha.Label = "Alpha Voices"
	beta := ttstest.New("beta")
	beta.HealthFunc = func(context.Context) tts.HealthStatus { panic("boom") }

	reg := tts.NewRegistry()
	for _, p := range []tts.Provider{alpha, beta} {
		_, err := reg.Register(p)
		require.NoError(t, err)
	}

	v := schema.MustNewValidator()
	promReg := prometheus.NewRegistry()
	m, err := metrics.New(promReg)
	require.NoError(t, err)

	deps.Dispatcher = dispatch.New(reg, v, dispatch.WithMetrics(m))
	if deps.Gatherer == nil {
		deps.Gatherer = promReg
	}
	return &fixture{
		handler:   NewRouter(cfg, deps).Setup(),
		alpha:     alpha,
		beta:      beta,
		validator: v,
	}
}

func (f *fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})
	rec := f.do(http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NoError(t, f.validator.ValidateResponse(schema.RouteHealthz, rec.Body.Bytes()))
	assert.Zero(t, f.alpha.Calls())
	assert.Zero(t, f.beta.Calls())
}

func TestReadyz(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := newFixture(t, testConfig(), Deps{Cache: cache.NewCache(rdb, "ttsgw:")})
	rec := f.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","providers":2,"checks":{"registry":"ok","redis":"ok"}}`, rec.Body.String())
	assert.Zero(t, f.alpha.Calls())

	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { down.Close() })
	f = newFixture(t, testConfig(), Deps{Cache: cache.NewCache(down, "ttsgw:")})
	rec = f.do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", decode(t, rec)["status"])
}

func TestProviders(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})

	rec := f.do(http.MethodGet, "/v1/providers", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"providers":["alpha","beta"]}`, rec.Body.String())
	assert.NoError(t, f.validator.ValidateResponse(schema.RouteProviders, rec.Body.Bytes()))

	rec = f.do(http.MethodGet, "/v1/providers?detail=true", "")
	assert.JSONEq(t, `{
		"providers":["alpha","beta"],
		"details":[{"id":"alpha","displayName":"Alpha Voices"},{"id":"beta","displayName":"beta"}]
	}`, rec.Body.String())
	assert.NoError(t, f.validator.ValidateResponse(schema.RouteProviders, rec.Body.Bytes()))
	assert.Zero(t, f.alpha.Calls())
}

func TestVoices(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})

	rec := f.do(http.MethodGet, "/v1/voices?provider=alpha", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NoError(t, f.validator.ValidateResponse(schema.RouteVoices, rec.Body.Bytes()))
	voices := decode(t, rec)["voices"].([]any)
	require.Len(t, voices, 1)
	assert.Equal(t, "alpha-voice", voices[0].(map[string]any)["id"])
	assert.EqualValues(t, 1, f.alpha.VoicesCalls())
}

func TestVoices_Errors(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})
	f.beta.VoicesErr = errors.New("socket closed")

	tests := []struct {
		name   string
		target string
		status int
		kind   string
		field  string
	}{
		{"missing provider", "/v1/voices", http.StatusBadRequest, "schema_violation", "provider"},
		{"unexpected param", "/v1/voices?provider=alpha&page=2", http.StatusBadRequest, "schema_violation", "page"},
		{"unknown provider", "/v1/voices?provider=gamma", http.StatusNotFound, "unknown_provider", ""},
		{"provider failure", "/v1/voices?provider=beta", http.StatusServiceUnavailable, "provider_unavailable", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.kind, body["kind"])
			if tt.field != "" {
				assert.Equal(t, tt.field, body["field"])
			}
		})
	}
	assert.Zero(t, f.alpha.VoicesCalls())
}

func TestStatus_PanickingProviderIsDegraded(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})

	rec := f.do(http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"alpha":"ok","beta":"degraded"}`, rec.Body.String())
	assert.NoError(t, f.validator.ValidateResponse(schema.RouteStatus, rec.Body.Bytes()))
}

func TestSynthesize(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})

	rec := f.do(http.MethodPost, "/v1/tts", `{"provider":"alpha","text":"hello","voiceId":"alpha-voice","options":{"rate":1.2}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"audioUrl":"https://example.com/alpha-1.mp3"}`, rec.Body.String())
	assert.NoError(t, f.validator.ValidateResponse(schema.RouteTTS, rec.Body.Bytes()))

	got, ok := f.alpha.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "alpha-voice", got.Voice(""))
	rate, ok := got.Rate()
	assert.True(t, ok)
	assert.InDelta(t, 1.2, rate, 1e-9)
	assert.Nil(t, got.Language)
}

func TestSynthesize_Errors(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})
	f.beta.SynthErr = tts.NotImplemented("", "no synthesis endpoint")

	tests := []struct {
		name   string
		body   string
		status int
		kind   string
	}{
		{"empty body", "", http.StatusBadRequest, "schema_violation"},
		{"malformed json", `{"provider":`, http.StatusBadRequest, "schema_violation"},
		{"blank text", `{"provider":"alpha","text":"   "}`, http.StatusBadRequest, "schema_violation"},
		{"rate as string", `{"provider":"alpha","text":"hi","options":{"rate":"fast"}}`, http.StatusBadRequest, "schema_violation"},
		{"unknown provider", `{"provider":"gamma","text":"hi"}`, http.StatusNotFound, "unknown_provider"},
		{"not implemented", `{"provider":"beta","text":"hi"}`, http.StatusNotImplemented, "not_implemented"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/v1/tts", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.kind, decode(t, rec)["kind"])
		})
	}
	assert.Zero(t, f.alpha.SynthCalls())
}

func TestSynthesize_BodyTooLarge(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})
	big := `{"provider":"alpha","text":"` + strings.Repeat("a", 1<<20) + `"}`

	rec := f.do(http.MethodPost, "/v1/tts", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, f.alpha.SynthCalls())
}

func TestSchemaRoute(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})
	rec := f.do(http.MethodGet, "/v1/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	for _, route := range schema.Routes() {
		assert.Contains(t, body, route)
	}
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t, testConfig(), Deps{})
	f.do(http.MethodPost, "/v1/tts", `{"provider":"alpha","text":"hi"}`)

	rec := f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tts_gateway_provider_requests_total")
}

type fakeUsage struct {
	since time.Time
	rows  []usage.Summary
}

func (f *fakeUsage) Summarize(_ context.Context, since time.Time) ([]usage.Summary, error) {
	f.since = since
	return f.rows, nil
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "s3cret"
	u := &fakeUsage{rows: []usage.Summary{{Provider: "alpha", Requests: 3, Chars: 42}}}
	f := newFixture(t, cfg, Deps{Usage: u})

	token := func(scope string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
			Scope:            scope,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}).SignedString([]byte("s3cret"))
		require.NoError(t, err)
		return "Bearer " + s
	}

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/v1/providers", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/providers", "", "Authorization", token(auth.ScopeRead)).Code)

	body := `{"provider":"alpha","text":"hi"}`
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/v1/tts", body, "Authorization", token(auth.ScopeRead)).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/v1/tts", body, "Authorization", token(auth.ScopeSynthesize)).Code)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/v1/usage", "", "Authorization", token(auth.ScopeRead)).Code)
	rec := f.do(http.MethodGet, "/v1/usage?since=2026-01-02T03:04:05Z", "", "Authorization", token(auth.ScopeAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), u.since.UTC())
	assert.Len(t, decode(t, rec)["usage"], 1)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 2
	f := newFixture(t, cfg, Deps{})

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/providers", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/status", "").Code)
	rec := f.do(http.MethodPost, "/v1/tts", `{"provider":"alpha","text":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Zero(t, f.alpha.SynthCalls())

	// Liveness checks and metric scrapes from the same address are not limited.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "").Code)
		assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/metrics", "").Code)
	}
}
