package daemon

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/nexelor/media-collector/internal/api"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/services"
)

const defaultPictureListLimit = 100

func (s *apiServer) handlePictureFetch(w http.ResponseWriter, r *http.Request) {
	if s.deps.pictures == nil {
		s.moduleDisabled(w, "picture")
		return
	}
	var req api.PictureFetchRequest
	if !s.decode(w, r, &req) {
		return
	}
	task, err := s.deps.pictures.NewTask(picture.Request{URL: req.URL, Filename: req.Filename})
	if err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.submit(w, r, picture.Queue, task, fmt.Sprintf("Picture queued for fetching: %s", task.Request().URL))
}

func (s *apiServer) handlePictureBatch(w http.ResponseWriter, r *http.Request) {
	if s.deps.pictures == nil {
		s.moduleDisabled(w, "picture")
		return
	}
	var req api.PictureBatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.URLs) == 0 {
		s.writeError(w, http.StatusBadRequest, "no urls provided")
		return
	}

	queued, rejected := 0, 0
	for _, url := range req.URLs {
		_, err := s.deps.pictures.Submit(r.Context(), s.deps.submitter, picture.Request{URL: url})
		switch {
		case err == nil:
			queued++
		case errors.Is(err, services.ErrValidation):
			rejected++
			s.log().Debug("picture url rejected", logging.String("url", url), logging.Error(err))
		default:
			s.writeSubmitError(w, err)
			return
		}
	}
	if queued == 0 {
		s.writeError(w, http.StatusBadRequest, "no valid urls provided")
		return
	}
	message := fmt.Sprintf("%d pictures queued for fetching", queued)
	if rejected > 0 {
		message += fmt.Sprintf(" (%d rejected)", rejected)
	}
	s.writeJSON(w, http.StatusOK, api.TaskQueuedResponse{Message: message, TaskType: "batch_fetch_pictures", Queued: queued})
}

func (s *apiServer) pictureURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.deps.pictures == nil {
		s.moduleDisabled(w, "picture")
		return "", false
	}
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		s.writeError(w, http.StatusBadRequest, "url query parameter is required")
		return "", false
	}
	return url, true
}

func (s *apiServer) handlePictureGet(w http.ResponseWriter, r *http.Request) {
	url, ok := s.pictureURL(w, r)
	if !ok {
		return
	}
	meta, found, err := s.catalog.Get(r.Context(), url)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		s.writeError(w, http.StatusNotFound, "picture not found")
		return
	}
	s.writeJSON(w, http.StatusOK, meta)
}

func (s *apiServer) handlePictureDelete(w http.ResponseWriter, r *http.Request) {
	url, ok := s.pictureURL(w, r)
	if !ok {
		return
	}
	deleted, err := s.catalog.Delete(r.Context(), url)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		s.writeError(w, http.StatusNotFound, "picture not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.DeletedResponse{Deleted: true})
}

type pictureListResponse struct {
	Pictures []picture.Metadata `json:"pictures"`
}

func (s *apiServer) handlePictureList(w http.ResponseWriter, r *http.Request) {
	if s.deps.pictures == nil {
		s.moduleDisabled(w, "picture")
		return
	}
	query := r.URL.Query()
	status := picture.Status(strings.ToLower(strings.TrimSpace(query.Get("status"))))
	switch status {
	case "", picture.StatusPending, picture.StatusDownloading, picture.StatusCompleted, picture.StatusFailed:
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown picture status %q", status))
		return
	}
	limit := defaultPictureListLimit
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	pictures, err := s.catalog.List(r.Context(), status, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, pictureListResponse{Pictures: pictures})
}

func (s *apiServer) handlePictureStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.pictures == nil {
		s.moduleDisabled(w, "picture")
		return
	}
	stats, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}
