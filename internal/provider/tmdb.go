package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/postbot/internal/models"
)

// TMDb serves movies and TV shows.
type TMDb struct {
	fetcher *httpFetcher
	baseURL string
	apiKey  string
}

func NewTMDb(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *TMDb {
	return &TMDb{
		fetcher: newHTTPFetcher("tmdb", timeout, 4, 8, logger),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (t *TMDb) Name() string { return "tmdb" }

func (t *TMDb) Search(ctx context.Context, kind models.Kind, query string) ([]byte, error) {
	endpoint, err := t.searchEndpoint(kind)
	if err != nil {
		return nil, err
	}
	params := t.params()
	params.Set("query", query)
	return t.fetcher.get(ctx, t.baseURL+endpoint, params)
}

func (t *TMDb) Detail(ctx context.Context, kind models.Kind, id int64) ([]byte, error) {
	switch kind {
	case models.KindMovie:
		return t.fetcher.get(ctx, fmt.Sprintf("%s/movie/%d", t.baseURL, id), t.params())
	case models.KindTVShow:
		return t.fetcher.get(ctx, fmt.Sprintf("%s/tv/%d", t.baseURL, id), t.params())
	}
	return nil, fmt.Errorf("tmdb does not serve kind %q", kind)
}

func (t *TMDb) searchEndpoint(kind models.Kind) (string, error) {
	switch kind {
	case models.KindMovie:
		return "/search/movie", nil
	case models.KindTVShow:
		return "/search/tv", nil
	}
	return "", fmt.Errorf("tmdb does not serve kind %q", kind)
}

func (t *TMDb) params() url.Values {
	params := url.Values{}
	params.Set("api_key", t.apiKey)
	params.Set("language", "en-US")
	return params
}
