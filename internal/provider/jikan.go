package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/postbot/internal/models"
)

// Jikan serves anime from the unauthenticated MyAnimeList mirror API. Jikan
// enforces roughly 3 requests per second, hence the tight limiter.
type Jikan struct {
	fetcher    *httpFetcher
	baseURL    string
	maxResults int
}

func NewJikan(baseURL string, maxResults int, timeout time.Duration, logger *zap.Logger) *Jikan {
	return &Jikan{
		fetcher:    newHTTPFetcher("jikan", timeout, 2, 3, logger),
		baseURL:    baseURL,
		maxResults: maxResults,
	}
}

func (j *Jikan) Name() string { return "jikan" }

func (j *Jikan) Search(ctx context.Context, kind models.Kind, query string) ([]byte, error) {
	if kind != models.KindAnime {
		return nil, fmt.Errorf("jikan does not serve kind %q", kind)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(j.maxResults))
	return j.fetcher.get(ctx, j.baseURL+"/anime", params)
}

func (j *Jikan) Detail(ctx context.Context, kind models.Kind, id int64) ([]byte, error) {
	if kind != models.KindAnime {
		return nil, fmt.Errorf("jikan does not serve kind %q", kind)
	}
	return j.fetcher.get(ctx, fmt.Sprintf("%s/anime/%d/full", j.baseURL, id), nil)
}
