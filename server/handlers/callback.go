// Package handlers provides the HTTP handlers for the relay: the platform
// callback, and the index and health liveness endpoints.
//
// The callback handler is strictly linear: read body, verify signature,
// parse JSON, extract the query, call the completion client, truncate,
// respond. Two policy points the platform left open are pinned here:
//
//  1. Malformed JSON and empty queries are rejected with 400 (strict
//     policy), so bad input fails fast instead of producing a confusing
//     echo of the payload.
//  2. Upstream completion failures are NOT HTTP errors. The platform
//     expects a conversational reply, so failures become assistant text
//     delivered with 200.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/qiwen/wxrelay/config"
	"github.com/qiwen/wxrelay/errors"
	"github.com/qiwen/wxrelay/server/extract"
	"github.com/qiwen/wxrelay/server/metrics"
	"github.com/qiwen/wxrelay/server/middleware"
	"github.com/qiwen/wxrelay/server/signature"
	"go.uber.org/zap"
)

// Completer is the outbound dependency of the callback handler. The
// completion.Client satisfies it; tests substitute their own.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Meta carries debugging context alongside the answer: the query the relay
// actually extracted and the model that produced the reply.
type Meta struct {
	Query string `json:"query"`
	Model string `json:"model"`
}

// ResponseEnvelope is the JSON shape the platform expects back.
type ResponseEnvelope struct {
	Text string `json:"text"`
	Meta *Meta  `json:"meta,omitempty"`
}

// CallbackHandler handles the platform's callback POSTs.
type CallbackHandler struct {
	verifier  *signature.Verifier
	sigHeader string
	completer Completer
	limits    config.LimitsConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewCallbackHandler creates a callback handler. metrics may be nil, in
// which case upstream failures are only logged.
func NewCallbackHandler(verifier *signature.Verifier, sigHeader string, completer Completer, limits config.LimitsConfig, logger *zap.Logger, m *metrics.Metrics) *CallbackHandler {
	return &CallbackHandler{
		verifier:  verifier,
		sigHeader: sigHeader,
		completer: completer,
		limits:    limits,
		logger:    logger,
		metrics:   m,
	}
}

// ServeHTTP implements http.Handler.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	if r.Method != http.MethodPost {
		errors.WriteError(w, errors.NewError(
			errors.ValidationError,
			"method not allowed",
			http.StatusMethodNotAllowed,
			requestID,
			nil,
		))
		return
	}

	// The raw bytes are needed for signature verification before any
	// JSON decoding happens.
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read request body", zap.Error(err))
		errors.WriteError(w, errors.NewInternalError(requestID, err))
		return
	}

	if !h.verifier.Verify(raw, r.Header.Get(h.sigHeader)) {
		logger.Warn("signature verification failed",
			zap.String("header", h.sigHeader),
			zap.Bool("header_present", r.Header.Get(h.sigHeader) != ""),
		)
		errors.WriteError(w, errors.NewAuthError(requestID))
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		logger.Warn("unparseable callback body", zap.Error(err))
		errors.WriteError(w, errors.NewValidationError(requestID, "bad json"))
		return
	}

	query := extract.Truncate(extract.Query(payload), h.limits.MaxQueryLen)
	if query == "" {
		logger.Warn("no query extracted from payload")
		errors.WriteError(w, errors.NewValidationError(requestID, "empty query"))
		return
	}

	logger.Info("processing callback",
		zap.Int("query_length", len(query)),
		zap.String("model", h.completer.Model()),
	)

	answer, err := h.completer.Complete(r.Context(), query)
	if err != nil {
		// Deliberately not an HTTP error: the platform contract expects a
		// conversational reply, so the failure becomes assistant text.
		errors.LogError(logger, errors.NewProviderError(requestID, "completion failed", err), requestID)
		if h.metrics != nil {
			h.metrics.CompletionFailures.WithLabelValues("upstream").Inc()
		}
		answer = fmt.Sprintf("completion failed: %v", err)
	}
	answer = extract.Truncate(answer, h.limits.MaxReplyLen)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ResponseEnvelope{
		Text: answer,
		Meta: &Meta{
			Query: query,
			Model: h.completer.Model(),
		},
	}); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
		errors.WriteError(w, errors.NewInternalError(requestID, err))
		return
	}

	logger.Debug("callback answered", zap.Int("answer_length", len(answer)))
}
