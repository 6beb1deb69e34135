package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/paylume/productsync/internal/metrics"
	"github.com/paylume/productsync/internal/rate"
)

// ErrNoToken is returned when a call is attempted without a session token.
// Controllers treat it as "decline to fetch", not as a server failure.
var ErrNoToken = errors.New("api: no session token")

// APIError is a non-retryable failure response from the platform.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (%d)", e.Message, e.Status)
	}
	return fmt.Sprintf("api: request failed (%d)", e.Status)
}

// backoff returns the retry sleep duration for the given attempt number.
func backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 300 * time.Millisecond
	default:
		return 750 * time.Millisecond
	}
}

// transport executes rate-limited, retrying JSON requests against the
// platform API. Transient failures (network errors, 5xx) are retried with
// backoff; 4xx responses are decoded into *APIError and never retried.
type transport struct {
	logger   *zap.Logger
	rateMgr  *rate.Manager
	http     *http.Client
	retryMax int
}

func newTransport(logger *zap.Logger, rateMgr *rate.Manager, httpClient *http.Client, retryMax int) *transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &transport{
		logger:   logger,
		rateMgr:  rateMgr,
		http:     httpClient,
		retryMax: retryMax,
	}
}

// doJSON builds a request per attempt via newReq, executes it and decodes
// the response body into out (skipped when out is nil). A fresh request per
// attempt keeps retried POST bodies intact. endpoint scopes both the rate
// limiter and the metrics labels.
func (t *transport) doJSON(ctx context.Context, endpoint string, newReq func(ctx context.Context) (*http.Request, error), out any) error {
	if t.rateMgr != nil {
		if err := t.rateMgr.Wait(ctx, endpoint); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= t.retryMax; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return err
		}
		start := time.Now()
		resp, err := t.http.Do(req)
		if err != nil {
			lastErr = err
			metrics.ObserveAPIRequest(endpoint, req.Method, "transport_error", start)
			t.logger.Warn("api.http_failed",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
			if sleepErr := sleep(ctx, backoff(attempt)); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		metrics.ObserveAPIRequest(endpoint, req.Method, strconv.Itoa(resp.StatusCode), start)

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("api server error: %d", resp.StatusCode)
			t.logger.Warn("api.server_error",
				zap.Int("status", resp.StatusCode),
				zap.String("url", req.URL.String()),
				zap.Duration("latency", time.Since(start)))
			if sleepErr := sleep(ctx, backoff(attempt)); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{Status: resp.StatusCode}
			if len(body) > 0 {
				_ = json.Unmarshal(body, apiErr)
			}
			return apiErr
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				t.logger.Warn("api.decode_failed",
					zap.String("url", req.URL.String()),
					zap.Error(err))
				return fmt.Errorf("decode failed: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("api request failed after %d attempts: %w", t.retryMax+1, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
