package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/xaenox/postbot/internal/models"
)

const anilistSearchQuery = `
query ($search: String, $type: MediaType, $format: MediaFormat) {
  Page(perPage: 5) {
    media(search: $search, type: $type, format: $format, sort: POPULARITY_DESC) {
      id
      title { romaji english native }
      coverImage { extraLarge }
      averageScore
      status
      genres
      chapters
      volumes
      startDate { year month day }
      format
      countryOfOrigin
    }
  }
}`

const anilistDetailQuery = `
query ($id: Int) {
  Media(id: $id, type: MANGA) {
    id
    title { romaji english native }
    coverImage { extraLarge }
    bannerImage
    averageScore
    status
    genres
    chapters
    volumes
    startDate { year month day }
    endDate { year month day }
    description(asHtml: false)
    format
    countryOfOrigin
    siteUrl
  }
}`

// AniList serves manhwa (and manga generally) over GraphQL.
type AniList struct {
	fetcher *httpFetcher
	url     string
}

func NewAniList(url string, timeout time.Duration, logger *zap.Logger) *AniList {
	return &AniList{
		fetcher: newHTTPFetcher("anilist", timeout, 2, 4, logger),
		url:     url,
	}
}

func (a *AniList) Name() string { return "anilist" }

// Search tries the MANHWA format first and widens to all MANGA when that
// returns nothing, matching how readers actually look these titles up.
func (a *AniList) Search(ctx context.Context, kind models.Kind, query string) ([]byte, error) {
	if kind != models.KindManhwa {
		return nil, fmt.Errorf("anilist does not serve kind %q", kind)
	}

	payload, err := a.gql(ctx, anilistSearchQuery, map[string]any{
		"search": query, "type": "MANGA", "format": "MANHWA",
	})
	if err != nil {
		return nil, err
	}
	if len(gjson.GetBytes(payload, "data.Page.media").Array()) > 0 {
		return payload, nil
	}
	return a.gql(ctx, anilistSearchQuery, map[string]any{
		"search": query, "type": "MANGA",
	})
}

func (a *AniList) Detail(ctx context.Context, kind models.Kind, id int64) ([]byte, error) {
	if kind != models.KindManhwa {
		return nil, fmt.Errorf("anilist does not serve kind %q", kind)
	}
	return a.gql(ctx, anilistDetailQuery, map[string]any{"id": id})
}

func (a *AniList) gql(ctx context.Context, query string, variables map[string]any) ([]byte, error) {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}
	return a.fetcher.postJSON(ctx, a.url, body)
}
