package jikan

import (
	"github.com/nexelor/media-collector/internal/anime"
)

func convertImages(i Images) anime.Image {
	return anime.Image{
		Large:  i.JPG.LargeImageURL,
		Medium: i.JPG.ImageURL,
		Small:  i.JPG.SmallImageURL,
	}
}

func convertPerson(p person) anime.Person {
	return anime.Person{ID: p.MalID, Name: p.Name, URL: p.URL, Image: convertImages(p.Images)}
}

func convertEntities(in []named) []anime.Entity {
	out := make([]anime.Entity, 0, len(in))
	for _, e := range in {
		out = append(out, anime.Entity{ID: e.MalID, Name: e.Name})
	}
	return out
}

// Merge enriches a with Jikan data. Empty fields of a are filled; the
// Jikan URL and images replace the MyAnimeList ones because they carry more
// sizes.
func Merge(a *anime.Anime, j Anime) {
	if a.MALID == 0 {
		a.MALID = j.MalID
	}
	if j.URL != "" {
		a.URL = j.URL
	}
	if img := convertImages(j.Images); img.Best() != "" {
		a.Image = img
	}
	for _, t := range j.Titles {
		a.AddTitle(t.Type, t.Title)
	}
	fillString(&a.Synopsis, j.Synopsis)
	fillString(&a.Background, j.Background)
	fillString(&a.MediaType, j.Type)
	fillString(&a.Status, j.Status)
	fillString(&a.Source, j.Source)
	fillString(&a.Rating, j.Rating)
	fillString(&a.Season, j.Season)
	fillString(&a.AiredFrom, j.Aired.From)
	fillString(&a.AiredTo, j.Aired.To)
	fillInt(&a.NumEpisodes, j.Episodes)
	fillInt(&a.ScoredBy, j.ScoredBy)
	fillInt(&a.Rank, j.Rank)
	fillInt(&a.Popularity, j.Popularity)
	fillInt(&a.Members, j.Members)
	fillInt(&a.Year, j.Year)
	if j.Favorites > 0 {
		a.Favorites = j.Favorites
	}
	if a.Score == 0 {
		a.Score = j.Score
	}
	if len(a.Genres) == 0 {
		a.Genres = convertEntities(j.Genres)
	}
	if len(a.Studios) == 0 {
		a.Studios = convertEntities(j.Studios)
	}
	a.AddSource(anime.SourceJikan)
}

// ConvertCharacters maps the cast list.
func ConvertCharacters(in []CharacterEntry) []anime.Character {
	out := make([]anime.Character, 0, len(in))
	for _, c := range in {
		ch := anime.Character{Character: convertPerson(c.Character), Role: c.Role}
		for _, va := range c.VoiceActors {
			ch.VoiceActors = append(ch.VoiceActors, anime.VoiceActor{Person: convertPerson(va.Person), Language: va.Language})
		}
		out = append(out, ch)
	}
	return out
}

// ConvertStaff maps production credits.
func ConvertStaff(in []StaffEntry) []anime.StaffMember {
	out := make([]anime.StaffMember, 0, len(in))
	for _, s := range in {
		out = append(out, anime.StaffMember{Person: convertPerson(s.Person), Positions: s.Positions})
	}
	return out
}

// ConvertEpisodes maps episode rows.
func ConvertEpisodes(in []EpisodeEntry) []anime.Episode {
	out := make([]anime.Episode, 0, len(in))
	for _, e := range in {
		out = append(out, anime.Episode{
			Number:   e.MalID,
			Title:    e.Title,
			Aired:    e.Aired,
			Score:    e.Score,
			Filler:   e.Filler,
			Recap:    e.Recap,
			ForumURL: e.ForumURL,
		})
	}
	return out
}

// ConvertPictures maps artwork entries, skipping ones with no URL.
func ConvertPictures(in []Images) []anime.Image {
	out := make([]anime.Image, 0, len(in))
	for _, p := range in {
		if img := convertImages(p); img.Best() != "" {
			out = append(out, img)
		}
	}
	return out
}

// ConvertStatistics maps list-status counts.
func ConvertStatistics(s Statistics) *anime.Statistics {
	return &anime.Statistics{
		Watching:    s.Watching,
		Completed:   s.Completed,
		OnHold:      s.OnHold,
		Dropped:     s.Dropped,
		PlanToWatch: s.PlanToWatch,
		Total:       s.Total,
	}
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func fillInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}
