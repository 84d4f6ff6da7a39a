package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xaenox/postbot/internal/models"
)

// Client is one content source. Search and Detail return the provider's raw
// payload; the normalization layer owns turning it into canonical records.
type Client interface {
	Name() string
	Search(ctx context.Context, kind models.Kind, query string) ([]byte, error)
	Detail(ctx context.Context, kind models.Kind, id int64) ([]byte, error)
}

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
	maxBodySize    = 4 << 20
)

// httpFetcher is the shared request core of the adapters: per-provider rate
// limiting, bounded retries with exponential backoff on network-class
// failures only.
type httpFetcher struct {
	provider string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func newHTTPFetcher(provider string, timeout time.Duration, rps float64, burst int, logger *zap.Logger) *httpFetcher {
	return &httpFetcher{
		provider: provider,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		logger:   logger,
	}
}

func (f *httpFetcher) get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}
	return f.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
}

func (f *httpFetcher) postJSON(ctx context.Context, rawURL string, body []byte) ([]byte, error) {
	return f.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

func (f *httpFetcher) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		payload, err := f.once(build)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		var fe *FetchError
		if !errors.As(err, &fe) || !fe.Retryable() {
			return nil, err
		}
		if attempt == maxAttempts {
			break
		}

		f.logger.Warn("provider request failed, retrying",
			zap.String("provider", f.provider),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (f *httpFetcher) once(build func() (*http.Request, error)) ([]byte, error) {
	req, err := build()
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransport(f.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, classifyStatus(f.provider, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransport(f.provider, err)
	}
	return payload, nil
}
