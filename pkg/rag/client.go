package rag

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/edgeflare/pgrag/pkg/httputil"
	"github.com/edgeflare/pgrag/pkg/metrics"
	"go.uber.org/zap"
)

const (
	serviceEmbedding  = "embedding"
	serviceGeneration = "generation"
)

// pickLogger returns the first non-nil logger, or a production logger.
func pickLogger(loggers []*zap.Logger) *zap.Logger {
	if len(loggers) > 0 && loggers[0] != nil {
		return loggers[0]
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// post sends payload as JSON to the service endpoint and returns the raw body.
// Transport failures and error statuses are reported as ErrServiceUnavailable.
func post(ctx context.Context, service string, cfg ServiceConfig, payload any, logger *zap.Logger) ([]byte, error) {
	reqConfig := httputil.DefaultRequestConfig(http.MethodPost, cfg.URL())
	reqConfig.Logger = logger
	if cfg.Timeout > 0 {
		reqConfig.Timeout = cfg.Timeout
	}
	if cfg.Retries > 0 {
		reqConfig.RetryEnabled = true
		reqConfig.MaxRetries = cfg.Retries
	}
	if cfg.APIKey != "" {
		reqConfig.Headers = map[string][]string{
			"Authorization": {fmt.Sprintf("Bearer %s", cfg.APIKey)},
		}
	}

	start := time.Now()
	response, err := httputil.Request(ctx, reqConfig, payload)
	metrics.ServiceRequestDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	metrics.ServiceRequests.WithLabelValues(service, metrics.Outcome(err)).Inc()

	if err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) {
			return nil, fmt.Errorf("%w: %s service: %w", ErrServiceUnavailable, service, statusErr)
		}
		return nil, fmt.Errorf("%w: %s service at %s: %w", ErrServiceUnavailable, service, cfg.URL(), err)
	}

	return response.Body, nil
}
