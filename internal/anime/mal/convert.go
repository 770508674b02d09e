package mal

import (
	"fmt"
	"strings"
	"time"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/textutil"
)

// ToAnime converts a MyAnimeList resource into the unified record.
func ToAnime(m Anime) anime.Anime {
	a := anime.Anime{
		MALID:       m.ID,
		URL:         fmt.Sprintf("https://myanimelist.net/anime/%d", m.ID),
		Synopsis:    m.Synopsis,
		Background:  m.Background,
		MediaType:   textutil.Humanize(m.MediaType),
		Status:      textutil.Humanize(m.Status),
		Source:      textutil.Humanize(m.Source),
		Rating:      ratingLabel(m.Rating),
		NumEpisodes: m.NumEpisodes,
		Duration:    m.AverageEpisodeDuration,
		Score:       m.Mean,
		ScoredBy:    m.NumScoringUsers,
		Rank:        m.Rank,
		Popularity:  m.Popularity,
		Members:     m.NumListUsers,
		AiredFrom:   m.StartDate,
		AiredTo:     m.EndDate,
		FetchedAt:   time.Now().UTC(),
	}
	a.AddTitle("Default", m.Title)
	if alt := m.AlternativeTitles; alt != nil {
		a.AddTitle("English", alt.En)
		a.AddTitle("Japanese", alt.Ja)
		for _, syn := range alt.Synonyms {
			a.AddTitle("Synonym", syn)
		}
	}
	if m.StartSeason != nil {
		a.Season = textutil.Humanize(m.StartSeason.Season)
		a.Year = m.StartSeason.Year
	}
	for _, g := range m.Genres {
		a.Genres = append(a.Genres, anime.Entity{ID: g.ID, Name: g.Name})
	}
	for _, s := range m.Studios {
		a.Studios = append(a.Studios, anime.Entity{ID: s.ID, Name: s.Name})
	}
	if m.MainPicture != nil {
		a.Image = anime.Image{Large: m.MainPicture.Large, Medium: m.MainPicture.Medium}
	}
	for _, p := range m.Pictures {
		if p.Large == "" && p.Medium == "" {
			continue
		}
		a.Pictures = append(a.Pictures, anime.Image{Large: p.Large, Medium: p.Medium})
	}
	if s := m.Statistics; s != nil {
		a.Statistics = &anime.Statistics{
			Watching:    int(s.Status.Watching),
			Completed:   int(s.Status.Completed),
			OnHold:      int(s.Status.OnHold),
			Dropped:     int(s.Status.Dropped),
			PlanToWatch: int(s.Status.PlanToWatch),
			Total:       int(s.NumListUsers),
		}
	}
	a.AddSource(anime.SourceMAL)
	return a
}

// ratingLabel maps MyAnimeList rating codes ("pg_13") to display labels.
func ratingLabel(code string) string {
	switch strings.ToLower(code) {
	case "":
		return ""
	case "g":
		return "G - All Ages"
	case "pg":
		return "PG - Children"
	case "pg_13":
		return "PG-13 - Teens 13 or older"
	case "r":
		return "R - 17+ (violence & profanity)"
	case "r+":
		return "R+ - Mild Nudity"
	case "rx":
		return "Rx - Hentai"
	default:
		return code
	}
}

// carryForward keeps data a MyAnimeList refresh does not return: extended
// Jikan data and the sources that contributed earlier.
func carryForward(dst *anime.Anime, prev anime.Anime) {
	if len(dst.Characters) == 0 {
		dst.Characters = prev.Characters
	}
	if len(dst.Staff) == 0 {
		dst.Staff = prev.Staff
	}
	if len(dst.Episodes) == 0 {
		dst.Episodes = prev.Episodes
	}
	if dst.ExtendedAt == nil {
		dst.ExtendedAt = prev.ExtendedAt
	}
	if dst.AniListID == 0 {
		dst.AniListID = prev.AniListID
	}
	if dst.Banner == "" {
		dst.Banner = prev.Banner
	}
	for _, src := range prev.Sources {
		dst.AddSource(src)
	}
}
