package daemon

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/nexelor/media-collector/internal/anime"
	"github.com/nexelor/media-collector/internal/anime/anilist"
	"github.com/nexelor/media-collector/internal/anime/mal"
	"github.com/nexelor/media-collector/internal/api"
)

func (s *apiServer) handleAnimeFetch(w http.ResponseWriter, r *http.Request) {
	if s.deps.mal == nil {
		s.moduleDisabled(w, "mal")
		return
	}
	var req api.AnimeFetchRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.deps.mal.FetchTask(mal.FetchOptions{
		AnimeID:      req.AnimeID,
		WithJikan:    req.WithJikan,
		WithPictures: req.WithPictures,
		FullFetch:    req.FullFetch,
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.submit(w, r, anime.QueueMAL, task, fmt.Sprintf("Anime %d queued for fetching", req.AnimeID))
}

func (s *apiServer) handleAnimeSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.mal == nil {
		s.moduleDisabled(w, "mal")
		return
	}
	var req api.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.deps.mal.SearchTask(req.Query, req.Limit)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.submit(w, r, anime.QueueMAL, task, fmt.Sprintf("Search for '%s' queued", task.Params().Query))
}

func (s *apiServer) handleAnimeUpdate(w http.ResponseWriter, r *http.Request) {
	if s.deps.mal == nil {
		s.moduleDisabled(w, "mal")
		return
	}
	var req api.AnimeUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.deps.mal.UpdateTask(req.AnimeID)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.submit(w, r, anime.QueueMAL, task, fmt.Sprintf("Anime %d queued for update", req.AnimeID))
}

func (s *apiServer) handleAnimeBatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.mal == nil {
		s.moduleDisabled(w, "mal")
		return
	}
	var req api.AnimeBatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.AnimeIDs) == 0 {
		s.writeError(w, http.StatusBadRequest, "no anime ids provided")
		return
	}
	task, err := s.deps.mal.BatchTask(req.AnimeIDs)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.submit(w, r, anime.QueueMAL, task, fmt.Sprintf("%d anime queued for batch fetch", len(task.IDs())))
}

func (s *apiServer) handleAnimeExtended(w http.ResponseWriter, r *http.Request) {
	if s.deps.mal == nil {
		s.moduleDisabled(w, "mal")
		return
	}
	var req api.AnimeExtendedRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.deps.mal.ExtendedTask(mal.ExtendedOptions{
		AnimeID:    req.AnimeID,
		Characters: req.FetchCharacters,
		Staff:      req.FetchStaff,
		Episodes:   req.FetchEpisodes,
		Pictures:   req.FetchPictures,
		Statistics: req.FetchStatistics,
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.submit(w, r, anime.QueueMAL, task, fmt.Sprintf("Extended data for anime %d queued", req.AnimeID))
}

func (s *apiServer) handleAnimeGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid anime id")
		return
	}
	a, found, err := anime.LoadMAL(r.Context(), s.deps.store, id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("anime %d not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, a)
}

func (s *apiServer) handleAniListFetch(w http.ResponseWriter, r *http.Request) {
	if s.deps.anilist == nil {
		s.moduleDisabled(w, "anilist")
		return
	}
	var req api.AniListFetchRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.deps.anilist.FetchTask(anilist.FetchOptions{
		AniListID:    req.AniListID,
		MALID:        req.MALID,
		WithPictures: req.WithPictures,
	})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	message := fmt.Sprintf("AniList anime %d queued for fetching", req.AniListID)
	if req.MALID > 0 {
		message = fmt.Sprintf("AniList anime for MAL id %d queued for fetching", req.MALID)
	}
	s.submit(w, r, anime.QueueAniList, task, message)
}

func (s *apiServer) handleAniListSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.anilist == nil {
		s.moduleDisabled(w, "anilist")
		return
	}
	var req api.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.deps.anilist.SearchTask(req.Query, req.Limit)
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.submit(w, r, anime.QueueAniList, task, fmt.Sprintf("AniList search for '%s' queued", task.Params().Query))
}
