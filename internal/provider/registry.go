package provider

import (
	"context"
	"fmt"

	"github.com/xaenox/postbot/internal/models"
)

// Registry routes each content kind to the client that serves it and is the
// single fetch surface the state machine depends on.
type Registry struct {
	byKind map[models.Kind]Client
}

func NewRegistry(tmdb *TMDb, jikan *Jikan, anilist *AniList) *Registry {
	return &Registry{byKind: map[models.Kind]Client{
		models.KindMovie:  tmdb,
		models.KindTVShow: tmdb,
		models.KindAnime:  jikan,
		models.KindManhwa: anilist,
	}}
}

// ForKind returns the client serving kind k.
func (r *Registry) ForKind(k models.Kind) (Client, error) {
	c, ok := r.byKind[k]
	if !ok {
		return nil, fmt.Errorf("no provider registered for kind %q", k)
	}
	return c, nil
}

// Search fetches the raw search payload for a query of the given kind.
func (r *Registry) Search(ctx context.Context, kind models.Kind, query string) (string, []byte, error) {
	c, err := r.ForKind(kind)
	if err != nil {
		return "", nil, err
	}
	payload, err := c.Search(ctx, kind, query)
	return c.Name(), payload, err
}

// Detail fetches the raw detail payload for one provider-side id.
func (r *Registry) Detail(ctx context.Context, kind models.Kind, id int64) (string, []byte, error) {
	c, err := r.ForKind(kind)
	if err != nil {
		return "", nil, err
	}
	payload, err := c.Detail(ctx, kind, id)
	return c.Name(), payload, err
}
