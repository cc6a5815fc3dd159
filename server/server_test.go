package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/qiwen/wxrelay/config"
	"github.com/qiwen/wxrelay/server/completion"
	"github.com/qiwen/wxrelay/server/handlers"
	"github.com/qiwen/wxrelay/server/metrics"
	"github.com/qiwen/wxrelay/server/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestRouter wires a router exactly as production does, with the given
// configuration tweaks applied.
func newTestRouter(t *testing.T, mutate func(*config.Config)) *Router {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	logger := zaptest.NewLogger(t)
	completer := completion.NewClient(cfg.Completion, logger)
	return NewRouter(cfg, completer, logger, metrics.NewMetrics())
}

func TestCallbackEchoWithoutCredentials(t *testing.T) {
	// No secret, no API key: signature check is skipped and the
	// completion client echoes.
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/wechat/callback", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope handlers.ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Text, "hello")
}

func TestCallbackRejectsUnsignedRequest(t *testing.T) {
	router := newTestRouter(t, func(cfg *config.Config) {
		cfg.Webhook.Secret = "platform-secret"
	})

	req := httptest.NewRequest(http.MethodPost, "/wechat/callback", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"code":401,"msg":"invalid signature"}`, rec.Body.String())
}

func TestCallbackAcceptsSignedRequest(t *testing.T) {
	router := newTestRouter(t, func(cfg *config.Config) {
		cfg.Webhook.Secret = "platform-secret"
	})

	body := `{"text":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/wechat/callback", strings.NewReader(body))
	req.Header.Set("X-Signature", signature.Sign([]byte(body), "platform-secret"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCallbackExtractsNestedMessageText(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/wechat/callback", strings.NewReader(`{"message":{"text":"weather today"}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope handlers.ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Meta)
	assert.Equal(t, "weather today", envelope.Meta.Query)
	assert.Contains(t, envelope.Text, "weather today")
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.Time)
}

func TestIndex(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wxrelay")
}

func TestCallbackUpstreamFailureStays200(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	router := newTestRouter(t, func(cfg *config.Config) {
		cfg.Completion.APIKey = "test-key"
		cfg.Completion.Endpoint = upstream.URL
	})

	req := httptest.NewRequest(http.MethodPost, "/wechat/callback", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// The platform gets a conversational reply, not a 5xx.
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope handlers.ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Contains(t, envelope.Text, "completion failed")
}

func TestCallbackRelaysUpstreamAnswer(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"42"}}]}`))
	}))
	defer upstream.Close()

	router := newTestRouter(t, func(cfg *config.Config) {
		cfg.Completion.APIKey = "test-key"
		cfg.Completion.Endpoint = upstream.URL
	})

	req := httptest.NewRequest(http.MethodPost, "/wechat/callback", strings.NewReader(`{"query":"meaning of life"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope handlers.ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "42", envelope.Text)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	// Generate one request so the counters move.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wxrelay_http_requests_total")
}

func TestRequestIDPropagated(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "platform-id-7")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "platform-id-7", rec.Header().Get("X-Request-ID"))
}
