package models

import (
	"fmt"
	"strconv"
)

// Kind discriminates the content variants a ContentRecord can describe.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindTVShow Kind = "tvshow"
	KindAnime  Kind = "anime"
	KindManhwa Kind = "manhwa"
)

// ValidKind reports whether k is one of the four supported content kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindMovie, KindTVShow, KindAnime, KindManhwa:
		return true
	}
	return false
}

// SourceRef identifies the provider-side object a record was built from,
// so that full details can be re-fetched idempotently.
type SourceRef struct {
	Provider string `json:"provider"`
	Kind     Kind   `json:"kind"`
	ID       int64  `json:"id"`
}

func (r SourceRef) String() string {
	return fmt.Sprintf("%s/%s/%d", r.Provider, r.Kind, r.ID)
}

// PartialDate is a calendar date known down to some precision. Zero fields
// mean "unknown below this point": a year-only date has Month == 0 and
// Day == 0, and rendering never invents the missing parts.
type PartialDate struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

// String renders the date to its known precision: "2010", "2010-07" or
// "2010-07-16". An entirely unknown date renders as "".
func (d PartialDate) String() string {
	if d.Year == 0 {
		return ""
	}
	s := strconv.Itoa(d.Year)
	if d.Month == 0 {
		return s
	}
	s += fmt.Sprintf("-%02d", d.Month)
	if d.Day == 0 {
		return s
	}
	return s + fmt.Sprintf("-%02d", d.Day)
}

// ContentRecord is the canonical, provider-agnostic shape every downstream
// component (template engine, compositor, state machine) operates on. It is
// produced only by the normalization layer. Optional fields are pointers:
// nil means the provider did not supply a value, which the template engine
// distinguishes from an empty one.
type ContentRecord struct {
	Kind        Kind    `json:"kind"`
	Title       string  `json:"title"`
	NativeTitle *string `json:"native_title,omitempty"`

	Year   *int     `json:"year,omitempty"`
	Rating *float64 `json:"rating,omitempty"` // 0-10, one decimal
	Genres []string `json:"genres,omitempty"`

	Synopsis *string `json:"synopsis,omitempty"`
	Status   *string `json:"status,omitempty"`

	EpisodeCount *int `json:"episode_count,omitempty"`
	SeasonCount  *int `json:"season_count,omitempty"`
	ChapterCount *int `json:"chapter_count,omitempty"`
	VolumeCount  *int `json:"volume_count,omitempty"`

	StudioOrNetwork  *string      `json:"studio_or_network,omitempty"`
	AirOrReleaseDate *PartialDate `json:"air_or_release_date,omitempty"`

	PosterURL   *string `json:"poster_image_ref,omitempty"`
	BackdropURL *string `json:"backdrop_image_ref,omitempty"`

	Source SourceRef `json:"source_provider_id"`
}

// Candidate is the summary shown while the user picks a search result.
type Candidate struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Year      *int    `json:"year,omitempty"`
	PosterURL *string `json:"poster_url,omitempty"`
}

// Label is the candidate's display line in a selection keyboard.
func (c Candidate) Label() string {
	if c.Year != nil {
		return fmt.Sprintf("%s (%d)", c.Title, *c.Year)
	}
	return c.Title
}

// RenderedThumbnail is the derived image artifact for one preview. It is
// recomputed whenever the backing record or override image changes and is
// never mutated in place.
type RenderedThumbnail struct {
	ImageBytes    []byte
	Width         int
	Height        int
	WatermarkText string
}
