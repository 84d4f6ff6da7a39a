package normalize

import (
	"testing"

	"github.com/xaenox/postbot/internal/models"
)

func testNormalizer() *Normalizer {
	return New(Config{
		TMDbPosterBase:   "https://image.tmdb.org/t/p/w500",
		TMDbBackdropBase: "https://image.tmdb.org/t/p/original",
		MaxGenres:        5,
		MaxCandidates:    5,
	})
}

const tmdbMoviePayload = `{
	"id": 27205,
	"title": "Inception",
	"release_date": "2010-07-16",
	"vote_average": 8.369,
	"overview": "Cobb steals secrets from deep within the subconscious.",
	"status": "Released",
	"genres": [{"id": 28, "name": "Action"}, {"id": 878, "name": "Science Fiction"}, {"id": 28, "name": "Action"}],
	"poster_path": "/inception.jpg",
	"backdrop_path": "/inception_bg.jpg"
}`

func TestTMDbRecord_Movie(t *testing.T) {
	rec, err := testNormalizer().Record("tmdb", models.KindMovie, []byte(tmdbMoviePayload))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if rec.Title != "Inception" {
		t.Errorf("Title = %q, want %q", rec.Title, "Inception")
	}
	if rec.Year == nil || *rec.Year != 2010 {
		t.Errorf("Year = %v, want 2010", rec.Year)
	}
	if rec.Rating == nil || *rec.Rating != 8.4 {
		t.Errorf("Rating = %v, want 8.4", rec.Rating)
	}
	if rec.AirOrReleaseDate == nil || rec.AirOrReleaseDate.String() != "2010-07-16" {
		t.Errorf("AirOrReleaseDate = %v, want 2010-07-16", rec.AirOrReleaseDate)
	}
	// Duplicate genre collapsed, order preserved.
	if len(rec.Genres) != 2 || rec.Genres[0] != "Action" || rec.Genres[1] != "Science Fiction" {
		t.Errorf("Genres = %v, want [Action Science Fiction]", rec.Genres)
	}
	if rec.PosterURL == nil || *rec.PosterURL != "https://image.tmdb.org/t/p/w500/inception.jpg" {
		t.Errorf("PosterURL = %v, want joined poster url", rec.PosterURL)
	}
	if rec.Source.Provider != "tmdb" || rec.Source.ID != 27205 {
		t.Errorf("Source = %+v, want tmdb/27205", rec.Source)
	}
}

func TestTMDbRecord_RatingIsIdentity(t *testing.T) {
	rec, err := testNormalizer().Record("tmdb", models.KindMovie, []byte(`{"id": 1, "title": "X", "vote_average": 7.2}`))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.Rating == nil || *rec.Rating != 7.2 {
		t.Errorf("Rating = %v, want 7.2 unchanged", rec.Rating)
	}
}

func TestTMDbRecord_MissingDiscriminatorIsShapeChanged(t *testing.T) {
	_, err := testNormalizer().Record("tmdb", models.KindMovie, []byte(`{"title": "No ID"}`))
	if err == nil {
		t.Fatal("Record() error = nil, want shape-changed error")
	}
	if !IsShapeChanged(err) {
		t.Errorf("IsShapeChanged(%v) = false, want true", err)
	}
}

func TestTMDbRecord_TVShowFields(t *testing.T) {
	payload := `{
		"id": 1396,
		"name": "Breaking Bad",
		"first_air_date": "2008-01-20",
		"vote_average": 9.5,
		"number_of_seasons": 5,
		"number_of_episodes": 62,
		"networks": [{"name": "AMC"}],
		"genres": [{"name": "Drama"}]
	}`
	rec, err := testNormalizer().Record("tmdb", models.KindTVShow, []byte(payload))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.Title != "Breaking Bad" {
		t.Errorf("Title = %q, want %q", rec.Title, "Breaking Bad")
	}
	if rec.SeasonCount == nil || *rec.SeasonCount != 5 {
		t.Errorf("SeasonCount = %v, want 5", rec.SeasonCount)
	}
	if rec.EpisodeCount == nil || *rec.EpisodeCount != 62 {
		t.Errorf("EpisodeCount = %v, want 62", rec.EpisodeCount)
	}
	if rec.StudioOrNetwork == nil || *rec.StudioOrNetwork != "AMC" {
		t.Errorf("StudioOrNetwork = %v, want AMC", rec.StudioOrNetwork)
	}
}

func TestJikanRecord_IdentityRatingAndEnglishTitle(t *testing.T) {
	payload := `{"data": {
		"mal_id": 16498,
		"title": "Shingeki no Kyojin",
		"title_english": "Attack on Titan",
		"title_japanese": "進撃の巨人",
		"score": 8.54,
		"episodes": 25,
		"status": "Finished Airing",
		"year": 2013,
		"aired": {"from": "2013-04-07T00:00:00+00:00"},
		"genres": [{"name": "Action"}, {"name": "Drama"}],
		"themes": [{"name": "Survival"}, {"name": "Action"}],
		"studios": [{"name": "Wit Studio"}],
		"images": {"jpg": {"large_image_url": "https://cdn.example/aot.jpg"}}
	}}`
	rec, err := testNormalizer().Record("jikan", models.KindAnime, []byte(payload))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.Title != "Attack on Titan" {
		t.Errorf("Title = %q, want english title", rec.Title)
	}
	if rec.NativeTitle == nil || *rec.NativeTitle != "進撃の巨人" {
		t.Errorf("NativeTitle = %v, want 進撃の巨人", rec.NativeTitle)
	}
	// MAL scores are already on 0-10: 8.54 rounds to 8.5, no rescaling.
	if rec.Rating == nil || *rec.Rating != 8.5 {
		t.Errorf("Rating = %v, want 8.5", rec.Rating)
	}
	// Genres and themes merge with dedupe: Action appears once.
	want := []string{"Action", "Drama", "Survival"}
	if len(rec.Genres) != len(want) {
		t.Fatalf("Genres = %v, want %v", rec.Genres, want)
	}
	for i := range want {
		if rec.Genres[i] != want[i] {
			t.Errorf("Genres[%d] = %q, want %q", i, rec.Genres[i], want[i])
		}
	}
	if rec.AirOrReleaseDate == nil || rec.AirOrReleaseDate.String() != "2013-04-07" {
		t.Errorf("AirOrReleaseDate = %v, want 2013-04-07", rec.AirOrReleaseDate)
	}
}

func TestAniListRecord_ScoreScaledDown(t *testing.T) {
	payload := `{"data": {"Media": {
		"id": 105398,
		"title": {"english": "Solo Leveling", "romaji": "Na Honjaman Level Up", "native": "나 혼자만 레벨업"},
		"averageScore": 85,
		"chapters": 179,
		"volumes": 14,
		"status": "FINISHED",
		"startDate": {"year": 2018, "month": 3, "day": 4},
		"genres": ["Action", "Fantasy"],
		"description": "E-rank hunter <b>Jinwoo</b> levels up.<br><br>Alone.",
		"coverImage": {"extraLarge": "https://cdn.example/sl.jpg"},
		"bannerImage": "https://cdn.example/sl_banner.jpg"
	}}}`
	rec, err := testNormalizer().Record("anilist", models.KindManhwa, []byte(payload))
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	// 0-100 score scales to 0-10: 85 -> 8.5.
	if rec.Rating == nil || *rec.Rating != 8.5 {
		t.Errorf("Rating = %v, want 8.5", rec.Rating)
	}
	if rec.Status == nil || *rec.Status != "Finished" {
		t.Errorf("Status = %v, want Finished", rec.Status)
	}
	if rec.ChapterCount == nil || *rec.ChapterCount != 179 {
		t.Errorf("ChapterCount = %v, want 179", rec.ChapterCount)
	}
	if rec.Synopsis == nil || *rec.Synopsis != "E-rank hunter Jinwoo levels up.\n\nAlone." {
		t.Errorf("Synopsis = %q, want cleaned description", deref(rec.Synopsis))
	}
	if rec.AirOrReleaseDate == nil || rec.AirOrReleaseDate.String() != "2018-03-04" {
		t.Errorf("AirOrReleaseDate = %v, want 2018-03-04", rec.AirOrReleaseDate)
	}
}

func TestCandidates_CappedAtMax(t *testing.T) {
	payload := `{"results": [
		{"id": 1, "title": "A"}, {"id": 2, "title": "B"}, {"id": 3, "title": "C"},
		{"id": 4, "title": "D"}, {"id": 5, "title": "E"}, {"id": 6, "title": "F"},
		{"id": 7, "title": "G"}
	]}`
	got, err := testNormalizer().Candidates("tmdb", models.KindMovie, []byte(payload))
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("len(candidates) = %d, want 5", len(got))
	}
}

func TestCandidates_SkipsEntriesWithoutIDOrTitle(t *testing.T) {
	payload := `{"results": [
		{"id": 1, "title": "Keep"},
		{"id": 2},
		{"title": "No ID"}
	]}`
	got, err := testNormalizer().Candidates("tmdb", models.KindMovie, []byte(payload))
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "Keep" {
		t.Errorf("candidates = %v, want single Keep entry", got)
	}
}

func TestCandidates_MissingEnvelopeIsShapeChanged(t *testing.T) {
	_, err := testNormalizer().Candidates("jikan", models.KindAnime, []byte(`{"unexpected": true}`))
	if err == nil {
		t.Fatal("Candidates() error = nil, want shape-changed error")
	}
	if !IsShapeChanged(err) {
		t.Errorf("IsShapeChanged(%v) = false, want true", err)
	}
}

func TestParseDashedDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2010-07-16", "2010-07-16"},
		{"2010-07", "2010-07"},
		{"2010", "2010"},
		{"", ""},
		{"garbage", ""},
	}
	for _, tt := range tests {
		d := parseDashedDate(tt.in)
		got := ""
		if d != nil {
			got = d.String()
		}
		if got != tt.want {
			t.Errorf("parseDashedDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitleCaseStatus(t *testing.T) {
	if got := titleCaseStatus("NOT_YET_RELEASED"); got != "Not Yet Released" {
		t.Errorf("titleCaseStatus() = %q, want %q", got, "Not Yet Released")
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
