package anilist

const mediaFields = `
    id
    idMal
    title { romaji english native userPreferred }
    format
    status
    description(asHtml: false)
    startDate { year month day }
    endDate { year month day }
    season
    seasonYear
    episodes
    duration
    source
    coverImage { extraLarge large medium color }
    bannerImage
    genres
    synonyms
    averageScore
    popularity
    favourites
    siteUrl`

const detailFields = mediaFields + `
    characters(sort: ROLE) {
      edges {
        role
        node { id name { full native } image { large medium } siteUrl }
        voiceActors(language: JAPANESE) { id name { full native } language image { large medium } siteUrl }
      }
    }
    staff {
      edges {
        role
        node { id name { full native } image { large medium } siteUrl }
      }
    }
    studios {
      edges { isMain node { id name } }
    }`

const mediaByIDQuery = `query ($id: Int) {
  Media(id: $id, type: ANIME) {` + detailFields + `
  }
}`

const mediaByMALQuery = `query ($malId: Int) {
  Media(idMal: $malId, type: ANIME) {` + detailFields + `
  }
}`

const searchQuery = `query ($search: String, $page: Int, $perPage: Int) {
  Page(page: $page, perPage: $perPage) {
    media(search: $search, type: ANIME, sort: POPULARITY_DESC) {` + mediaFields + `
    }
  }
}`
