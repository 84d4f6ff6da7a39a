// Package caption renders post captions by substituting {token}
// placeholders with canonical record fields. Rendering is pure: the same
// template and record always produce the same string.
package caption

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xaenox/postbot/internal/models"
)

// tokenSets is the authoritative vocabulary per content kind. Tokens outside
// a kind's set are left verbatim in the output so template authors can spot
// typos without the caption silently breaking.
var tokenSets = map[models.Kind]map[string]struct{}{
	models.KindMovie: set(
		"title", "year", "rating", "genres", "overview", "status",
		"release_date", "hashtags",
	),
	models.KindTVShow: set(
		"title", "year", "rating", "genres", "overview", "status",
		"seasons", "episodes", "network", "release_date", "hashtags",
	),
	models.KindAnime: set(
		"title", "native_title", "year", "rating", "genres", "synopsis",
		"status", "episodes", "studio", "aired", "hashtags",
	),
	models.KindManhwa: set(
		"title", "native_title", "year", "rating", "genres", "synopsis",
		"status", "chapters", "volumes", "published", "hashtags",
	),
}

func set(tokens ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

var defaultTemplates = map[models.Kind]string{
	models.KindMovie: `🎬 {title} ({year})

⭐ Rating » {rating}/10
🎭 Genre » {genres}
🗓 Released » {release_date}

📝 {overview}

{hashtags}`,
	models.KindTVShow: `📺 {title} ({year})

⭐ Rating » {rating}/10
🎭 Genre » {genres}
📡 Status » {status}
🗓 Seasons » {seasons}
📋 Episodes » {episodes}
🏢 Network » {network}

📝 {overview}

{hashtags}`,
	models.KindAnime: `🌸 {title}

⭐ Rating » {rating}/10
📡 Status » {status}
📋 Episodes » {episodes}
🎭 Genre » {genres}
🎙 Studio » {studio}
🗓 Aired » {aired}

📝 {synopsis}

{hashtags}`,
	models.KindManhwa: `📖 {title}

⭐ Rating » {rating}/10
📡 Status » {status}
📚 Chapters » {chapters}
🎭 Genre » {genres}
🗓 Published » {published}

📝 {synopsis}

{hashtags}`,
}

const (
	genreSeparator  = ", "
	maxHashtagGenres = 3
)

var tokenRE = regexp.MustCompile(`\{[A-Za-z_]+\}`)

// Render substitutes rec's fields into body. Tokens outside the record
// kind's token set stay verbatim; tokens of unset fields become "".
func Render(body string, rec *models.ContentRecord) string {
	known := tokenSets[rec.Kind]
	return tokenRE.ReplaceAllStringFunc(body, func(match string) string {
		name := match[1 : len(match)-1]
		if _, ok := known[name]; !ok {
			return match
		}
		return value(rec, name)
	})
}

// DefaultTemplate returns the built-in template for a kind.
func DefaultTemplate(kind models.Kind) string {
	return defaultTemplates[kind]
}

// Tokens lists the valid token names for a kind, for /tokens help output.
func Tokens(kind models.Kind) []string {
	names := make([]string, 0, len(tokenSets[kind]))
	for name := range tokenSets[kind] {
		names = append(names, "{"+name+"}")
	}
	sort.Strings(names)
	return names
}

func value(rec *models.ContentRecord, token string) string {
	switch token {
	case "title":
		return rec.Title
	case "native_title":
		return deref(rec.NativeTitle)
	case "year":
		if rec.Year == nil {
			return ""
		}
		return strconv.Itoa(*rec.Year)
	case "rating":
		if rec.Rating == nil {
			return ""
		}
		return strconv.FormatFloat(*rec.Rating, 'f', -1, 64)
	case "genres":
		return strings.Join(rec.Genres, genreSeparator)
	case "overview", "synopsis":
		return deref(rec.Synopsis)
	case "status":
		return deref(rec.Status)
	case "episodes":
		return intString(rec.EpisodeCount)
	case "seasons":
		return intString(rec.SeasonCount)
	case "chapters":
		return intString(rec.ChapterCount)
	case "volumes":
		return intString(rec.VolumeCount)
	case "network", "studio":
		return deref(rec.StudioOrNetwork)
	case "release_date", "aired", "published":
		if rec.AirOrReleaseDate == nil {
			return ""
		}
		return rec.AirOrReleaseDate.String()
	case "hashtags":
		return Hashtags(rec)
	}
	return ""
}

// Hashtags synthesizes the {hashtags} token: the kind tag followed by up to
// three genres, lower-cased with spaces stripped, in genre order.
func Hashtags(rec *models.ContentRecord) string {
	tags := []string{"#" + string(rec.Kind)}
	for _, g := range rec.Genres {
		if len(tags) == 1+maxHashtagGenres {
			break
		}
		t := strings.ToLower(strings.ReplaceAll(g, " ", ""))
		if t == "" {
			continue
		}
		tags = append(tags, "#"+t)
	}
	return strings.Join(tags, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
