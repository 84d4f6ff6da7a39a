// Package normalize maps provider-native payloads onto the canonical
// ContentRecord. It is the only place raw provider shapes are inspected;
// everything downstream sees canonical fields or explicit unset.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/xaenox/postbot/internal/models"
)

// Config fixes the normalization constants at process start.
type Config struct {
	TMDbPosterBase   string
	TMDbBackdropBase string
	MaxGenres        int
	MaxCandidates    int
}

type Normalizer struct {
	cfg Config
}

func New(cfg Config) *Normalizer {
	if cfg.MaxGenres <= 0 {
		cfg.MaxGenres = 5
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 5
	}
	return &Normalizer{cfg: cfg}
}

// Record maps a detail payload onto a ContentRecord. It is total over valid
// inputs: either a record with Kind set comes back, or an error; never a
// partially initialized record.
func (n *Normalizer) Record(provider string, kind models.Kind, payload []byte) (*models.ContentRecord, error) {
	switch provider {
	case "tmdb":
		return n.tmdbRecord(kind, payload)
	case "jikan":
		return n.jikanRecord(payload)
	case "anilist":
		return n.anilistRecord(payload)
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

// Candidates maps a search payload onto the selection summaries, capped at
// the configured maximum.
func (n *Normalizer) Candidates(provider string, kind models.Kind, payload []byte) ([]models.Candidate, error) {
	switch provider {
	case "tmdb":
		return n.tmdbCandidates(kind, payload)
	case "jikan":
		return n.jikanCandidates(payload)
	case "anilist":
		return n.anilistCandidates(payload)
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

// ── TMDb ──

func (n *Normalizer) tmdbRecord(kind models.Kind, payload []byte) (*models.ContentRecord, error) {
	root := gjson.ParseBytes(payload)
	if !root.Get("id").Exists() {
		return nil, &NormalizationError{Provider: "tmdb", Field: "id"}
	}

	titleField := "title"
	dateField := "release_date"
	if kind == models.KindTVShow {
		titleField = "name"
		dateField = "first_air_date"
	}
	title := root.Get(titleField)
	if !title.Exists() {
		return nil, &NormalizationError{Provider: "tmdb", Field: titleField}
	}

	rec := &models.ContentRecord{
		Kind:  kind,
		Title: title.String(),
		Source: models.SourceRef{
			Provider: "tmdb",
			Kind:     kind,
			ID:       root.Get("id").Int(),
		},
	}

	if date := parseDashedDate(root.Get(dateField).String()); date != nil {
		rec.AirOrReleaseDate = date
		if date.Year > 0 {
			y := date.Year
			rec.Year = &y
		}
	}
	if v := root.Get("vote_average"); v.Exists() && v.Float() > 0 {
		rec.Rating = roundRating(v.Float())
	}
	rec.Genres = n.genres(root.Get("genres.#.name"))
	if o := strings.TrimSpace(root.Get("overview").String()); o != "" {
		rec.Synopsis = &o
	}
	if s := root.Get("status").String(); s != "" {
		rec.Status = &s
	}
	if p := root.Get("poster_path").String(); p != "" {
		u := n.cfg.TMDbPosterBase + p
		rec.PosterURL = &u
	}
	if b := root.Get("backdrop_path").String(); b != "" {
		u := n.cfg.TMDbBackdropBase + b
		rec.BackdropURL = &u
	}

	if kind == models.KindTVShow {
		if e := root.Get("number_of_episodes"); e.Exists() && e.Int() > 0 {
			v := int(e.Int())
			rec.EpisodeCount = &v
		}
		if s := root.Get("number_of_seasons"); s.Exists() && s.Int() > 0 {
			v := int(s.Int())
			rec.SeasonCount = &v
		}
		if nets := joinNames(root.Get("networks.#.name")); nets != "" {
			rec.StudioOrNetwork = &nets
		}
	}
	return rec, nil
}

func (n *Normalizer) tmdbCandidates(kind models.Kind, payload []byte) ([]models.Candidate, error) {
	results := gjson.GetBytes(payload, "results")
	if !results.Exists() {
		return nil, &NormalizationError{Provider: "tmdb", Field: "results"}
	}

	titleField := "title"
	dateField := "release_date"
	if kind == models.KindTVShow {
		titleField = "name"
		dateField = "first_air_date"
	}

	var out []models.Candidate
	for _, r := range results.Array() {
		if len(out) == n.cfg.MaxCandidates {
			break
		}
		c := models.Candidate{ID: r.Get("id").Int(), Title: r.Get(titleField).String()}
		if c.ID == 0 || c.Title == "" {
			continue
		}
		if d := parseDashedDate(r.Get(dateField).String()); d != nil && d.Year > 0 {
			y := d.Year
			c.Year = &y
		}
		if p := r.Get("poster_path").String(); p != "" {
			u := n.cfg.TMDbPosterBase + p
			c.PosterURL = &u
		}
		out = append(out, c)
	}
	return out, nil
}

// ── Jikan (MyAnimeList) ──

func (n *Normalizer) jikanRecord(payload []byte) (*models.ContentRecord, error) {
	root := gjson.GetBytes(payload, "data")
	if !root.Get("mal_id").Exists() {
		return nil, &NormalizationError{Provider: "jikan", Field: "data.mal_id"}
	}

	title := root.Get("title_english").String()
	if title == "" {
		title = root.Get("title").String()
	}
	if title == "" {
		return nil, &NormalizationError{Provider: "jikan", Field: "data.title"}
	}

	rec := &models.ContentRecord{
		Kind:  models.KindAnime,
		Title: title,
		Source: models.SourceRef{
			Provider: "jikan",
			Kind:     models.KindAnime,
			ID:       root.Get("mal_id").Int(),
		},
	}

	if jp := root.Get("title_japanese").String(); jp != "" {
		rec.NativeTitle = &jp
	}
	if y := root.Get("year"); y.Exists() && y.Int() > 0 {
		v := int(y.Int())
		rec.Year = &v
	}
	// MAL scores are already on the 0-10 scale.
	if s := root.Get("score"); s.Exists() && s.Float() > 0 {
		rec.Rating = roundRating(s.Float())
	}
	genres := append(namesOf(root.Get("genres.#.name")), namesOf(root.Get("themes.#.name"))...)
	rec.Genres = dedupeCap(genres, n.cfg.MaxGenres)
	if syn := strings.TrimSpace(root.Get("synopsis").String()); syn != "" {
		rec.Synopsis = &syn
	}
	if st := root.Get("status").String(); st != "" {
		rec.Status = &st
	}
	if e := root.Get("episodes"); e.Exists() && e.Int() > 0 {
		v := int(e.Int())
		rec.EpisodeCount = &v
	}
	if studios := joinNames(root.Get("studios.#.name")); studios != "" {
		rec.StudioOrNetwork = &studios
	}
	if from := root.Get("aired.from").String(); len(from) >= 10 {
		if d := parseDashedDate(from[:10]); d != nil {
			rec.AirOrReleaseDate = d
		}
	}
	if p := root.Get("images.jpg.large_image_url").String(); p != "" {
		rec.PosterURL = &p
	}
	return rec, nil
}

func (n *Normalizer) jikanCandidates(payload []byte) ([]models.Candidate, error) {
	results := gjson.GetBytes(payload, "data")
	if !results.Exists() {
		return nil, &NormalizationError{Provider: "jikan", Field: "data"}
	}

	var out []models.Candidate
	for _, r := range results.Array() {
		if len(out) == n.cfg.MaxCandidates {
			break
		}
		title := r.Get("title_english").String()
		if title == "" {
			title = r.Get("title").String()
		}
		c := models.Candidate{ID: r.Get("mal_id").Int(), Title: title}
		if c.ID == 0 || c.Title == "" {
			continue
		}
		if y := r.Get("year"); y.Exists() && y.Int() > 0 {
			v := int(y.Int())
			c.Year = &v
		}
		if p := r.Get("images.jpg.large_image_url").String(); p != "" {
			c.PosterURL = &p
		}
		out = append(out, c)
	}
	return out, nil
}

// ── AniList ──

var htmlTagRE = regexp.MustCompile(`<[^>]+>`)
var multiNewlineRE = regexp.MustCompile(`\n{3,}`)

func (n *Normalizer) anilistRecord(payload []byte) (*models.ContentRecord, error) {
	root := gjson.GetBytes(payload, "data.Media")
	if !root.Get("id").Exists() {
		return nil, &NormalizationError{Provider: "anilist", Field: "data.Media.id"}
	}

	title := root.Get("title.english").String()
	if title == "" {
		title = root.Get("title.romaji").String()
	}
	if title == "" {
		return nil, &NormalizationError{Provider: "anilist", Field: "data.Media.title"}
	}

	rec := &models.ContentRecord{
		Kind:  models.KindManhwa,
		Title: title,
		Source: models.SourceRef{
			Provider: "anilist",
			Kind:     models.KindManhwa,
			ID:       root.Get("id").Int(),
		},
	}

	if native := root.Get("title.native").String(); native != "" {
		rec.NativeTitle = &native
	}
	// AniList scores run 0-100; scale down to the canonical 0-10.
	if s := root.Get("averageScore"); s.Exists() && s.Float() > 0 {
		rec.Rating = roundRating(s.Float() / 10)
	}
	rec.Genres = dedupeCap(stringsOf(root.Get("genres")), n.cfg.MaxGenres)
	if desc := cleanAniListDescription(root.Get("description").String()); desc != "" {
		rec.Synopsis = &desc
	}
	if st := root.Get("status").String(); st != "" {
		pretty := titleCaseStatus(st)
		rec.Status = &pretty
	}
	if c := root.Get("chapters"); c.Exists() && c.Int() > 0 {
		v := int(c.Int())
		rec.ChapterCount = &v
	}
	if v := root.Get("volumes"); v.Exists() && v.Int() > 0 {
		vol := int(v.Int())
		rec.VolumeCount = &vol
	}
	if sd := root.Get("startDate"); sd.Exists() {
		d := models.PartialDate{
			Year:  int(sd.Get("year").Int()),
			Month: int(sd.Get("month").Int()),
			Day:   int(sd.Get("day").Int()),
		}
		if d.Year > 0 {
			rec.AirOrReleaseDate = &d
			y := d.Year
			rec.Year = &y
		}
	}
	if p := root.Get("coverImage.extraLarge").String(); p != "" {
		rec.PosterURL = &p
	}
	if b := root.Get("bannerImage").String(); b != "" {
		rec.BackdropURL = &b
	}
	return rec, nil
}

func (n *Normalizer) anilistCandidates(payload []byte) ([]models.Candidate, error) {
	results := gjson.GetBytes(payload, "data.Page.media")
	if !results.Exists() {
		return nil, &NormalizationError{Provider: "anilist", Field: "data.Page.media"}
	}

	var out []models.Candidate
	for _, r := range results.Array() {
		if len(out) == n.cfg.MaxCandidates {
			break
		}
		title := r.Get("title.english").String()
		if title == "" {
			title = r.Get("title.romaji").String()
		}
		c := models.Candidate{ID: r.Get("id").Int(), Title: title}
		if c.ID == 0 || c.Title == "" {
			continue
		}
		if y := r.Get("startDate.year"); y.Exists() && y.Int() > 0 {
			v := int(y.Int())
			c.Year = &v
		}
		if p := r.Get("coverImage.extraLarge").String(); p != "" {
			c.PosterURL = &p
		}
		out = append(out, c)
	}
	return out, nil
}

// ── helpers ──

// roundRating rounds a 0-10 score to one decimal.
func roundRating(v float64) *float64 {
	r := math.Round(v*10) / 10
	return &r
}

// parseDashedDate parses "2010", "2010-07" or "2010-07-16" into a
// PartialDate, returning nil for anything unparseable. Missing parts stay
// unknown rather than being invented.
func parseDashedDate(s string) *models.PartialDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.SplitN(s, "-", 3)
	var d models.PartialDate
	if _, err := fmt.Sscanf(parts[0], "%d", &d.Year); err != nil || d.Year == 0 {
		return nil
	}
	if len(parts) > 1 {
		fmt.Sscanf(parts[1], "%d", &d.Month)
	}
	if len(parts) > 2 {
		fmt.Sscanf(parts[2], "%d", &d.Day)
	}
	return &d
}

func (n *Normalizer) genres(names gjson.Result) []string {
	return dedupeCap(namesOf(names), n.cfg.MaxGenres)
}

func namesOf(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringsOf(r gjson.Result) []string {
	return namesOf(r)
}

func joinNames(r gjson.Result) string {
	return strings.Join(namesOf(r), ", ")
}

// dedupeCap removes duplicates preserving first-seen order and caps the
// result at max entries to bound caption length.
func dedupeCap(in []string, max int) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}

func cleanAniListDescription(s string) string {
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = htmlTagRE.ReplaceAllString(s, "")
	s = multiNewlineRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// titleCaseStatus turns "NOT_YET_RELEASED" into "Not Yet Released".
func titleCaseStatus(s string) string {
	words := strings.Split(strings.ToLower(strings.ReplaceAll(s, "_", " ")), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
