package anilist

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/textutil"
)

var (
	lineBreakPattern = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
)

// plainText strips the light HTML AniList puts in descriptions.
func plainText(description string) string {
	text := lineBreakPattern.ReplaceAllString(description, "\n")
	text = tagPattern.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func convertImage(img Image) anime.Image {
	large := img.ExtraLarge
	if large == "" {
		large = img.Large
	}
	out := anime.Image{Large: large}
	if img.Large != large {
		out.Medium = img.Large
	}
	if img.Medium != large && img.Medium != out.Medium {
		out.Small = img.Medium
	}
	return out
}

func convertPerson(p PersonNode) anime.Person {
	name := p.Name.Full
	if name == "" {
		name = p.Name.Native
	}
	return anime.Person{ID: p.ID, Name: name, URL: p.SiteURL, Image: convertImage(p.Image)}
}

// ToAnime converts an AniList media resource into the unified record.
func ToAnime(m Media) anime.Anime {
	a := anime.Anime{
		AniListID:   m.ID,
		MALID:       m.IDMal,
		URL:         m.SiteURL,
		Synopsis:    plainText(m.Description),
		MediaType:   textutil.Humanize(m.Format),
		Status:      textutil.Humanize(m.Status),
		Source:      textutil.Humanize(m.Source),
		NumEpisodes: m.Episodes,
		Duration:    m.Duration * 60,
		Score:       float64(m.AverageScore) / 10,
		Members:     m.Popularity,
		Favorites:   m.Favourites,
		Season:      textutil.Humanize(m.Season),
		Year:        m.SeasonYear,
		AiredFrom:   m.StartDate.String(),
		AiredTo:     m.EndDate.String(),
		Image:       convertImage(m.CoverImage),
		Banner:      m.BannerImage,
		FetchedAt:   time.Now().UTC(),
	}
	if a.URL == "" {
		a.URL = fmt.Sprintf("https://anilist.co/anime/%d", m.ID)
	}
	a.AddTitle("Romaji", m.Title.Romaji)
	a.AddTitle("English", m.Title.English)
	a.AddTitle("Native", m.Title.Native)
	for _, syn := range m.Synonyms {
		a.AddTitle("Synonym", syn)
	}
	for _, g := range m.Genres {
		a.Genres = append(a.Genres, anime.Entity{Name: g})
	}
	for _, e := range m.Studios.Edges {
		if e.IsMain {
			a.Studios = append(a.Studios, anime.Entity{ID: e.Node.ID, Name: e.Node.Name})
		}
	}
	for _, e := range m.Characters.Edges {
		ch := anime.Character{Character: convertPerson(e.Node), Role: textutil.Humanize(e.Role)}
		for _, va := range e.VoiceActors {
			ch.VoiceActors = append(ch.VoiceActors, anime.VoiceActor{Person: convertPerson(va), Language: va.Language})
		}
		a.Characters = append(a.Characters, ch)
	}
	// AniList lists one edge per role; fold them into one credit per person.
	index := make(map[int]int)
	for _, e := range m.Staff.Edges {
		if i, ok := index[e.Node.ID]; ok {
			a.Staff[i].Positions = append(a.Staff[i].Positions, e.Role)
			continue
		}
		index[e.Node.ID] = len(a.Staff)
		a.Staff = append(a.Staff, anime.StaffMember{Person: convertPerson(e.Node), Positions: []string{e.Role}})
	}
	a.AddSource(anime.SourceAniList)
	return a
}
