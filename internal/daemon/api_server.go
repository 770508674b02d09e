package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexelor/media-collector/internal/anime/anilist"
	"github.com/nexelor/media-collector/internal/anime/mal"
	"github.com/nexelor/media-collector/internal/api"
	"github.com/nexelor/media-collector/internal/logging"
	"github.com/nexelor/media-collector/internal/picture"
	"github.com/nexelor/media-collector/internal/scheduler"
	"github.com/nexelor/media-collector/internal/services"
	"github.com/nexelor/media-collector/internal/store"
)

const maxRequestBody = 1 << 20

// apiDeps are the collaborators the REST handlers use. Nil collectors mark
// disabled modules.
type apiDeps struct {
	store     *store.Store
	submitter scheduler.Submitter
	inbox     func() map[string]int
	mal       *mal.Collector
	anilist   *anilist.Collector
	pictures  *picture.Fetcher
}

type apiServer struct {
	bind    string
	token   string
	logger  *slog.Logger
	deps    apiDeps
	tasks   *api.TaskService
	catalog *picture.Catalog

	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind, token string, deps apiDeps, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		token:  strings.TrimSpace(token),
		logger: logger,
		deps:   deps,
	}
	if deps.store != nil {
		srv.tasks = api.NewTaskService(deps.store)
		srv.catalog = picture.NewCatalog(deps.store)
	}
	srv.server = &http.Server{
		Handler:           srv.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/anime/fetch", s.handleAnimeFetch)
	mux.HandleFunc("POST /api/anime/search", s.handleAnimeSearch)
	mux.HandleFunc("POST /api/anime/update", s.handleAnimeUpdate)
	mux.HandleFunc("POST /api/anime/batch", s.handleAnimeBatch)
	mux.HandleFunc("POST /api/anime/extended", s.handleAnimeExtended)
	mux.HandleFunc("GET /api/anime/{id}", s.handleAnimeGet)
	mux.HandleFunc("POST /api/anime/anilist/fetch", s.handleAniListFetch)
	mux.HandleFunc("POST /api/anime/anilist/search", s.handleAniListSearch)

	mux.HandleFunc("POST /api/picture/fetch", s.handlePictureFetch)
	mux.HandleFunc("POST /api/picture/batch", s.handlePictureBatch)
	mux.HandleFunc("GET /api/picture", s.handlePictureGet)
	mux.HandleFunc("DELETE /api/picture", s.handlePictureDelete)
	mux.HandleFunc("GET /api/picture/list", s.handlePictureList)
	mux.HandleFunc("GET /api/picture/stats", s.handlePictureStats)

	mux.HandleFunc("GET /api/tasks", s.handleTaskList)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleTaskGet)

	return authMiddleware(s.token, mux)
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr returns the bound address, which differs from bind when it used port 0.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "healthy", Version: api.Version})
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tasks.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	docs := make(map[string]int)
	if s.deps.store != nil {
		for _, coll := range []string{store.CollectionAnimeMAL, store.CollectionAnimeAniList, store.CollectionPictures} {
			count, err := s.deps.store.Count(r.Context(), coll)
			if err != nil {
				s.writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			docs[coll] = int(count)
		}
	}
	inbox := map[string]int{}
	if s.deps.inbox != nil {
		inbox = s.deps.inbox()
	}
	s.writeJSON(w, http.StatusOK, api.StatsResponse{
		Tasks:     tasks,
		Documents: docs,
		Inbox:     inbox,
		Modules: api.ModuleStats{
			MALEnabled:     s.deps.mal != nil,
			AniListEnabled: s.deps.anilist != nil,
			PictureEnabled: s.deps.pictures != nil,
		},
	})
}

// submit enqueues task and writes the acknowledgement.
func (s *apiServer) submit(w http.ResponseWriter, r *http.Request, queue string, task scheduler.Task, message string) {
	if err := s.deps.submitter.Submit(r.Context(), queue, task); err != nil {
		s.writeSubmitError(w, err)
		return
	}
	s.log().Info("task queued",
		logging.String(logging.FieldEventType, "task_queued"),
		logging.String(logging.FieldQueue, queue),
		logging.String(logging.FieldTaskID, task.ID()),
		logging.String(logging.FieldTaskName, task.Name()),
	)
	s.writeJSON(w, http.StatusOK, api.TaskQueuedResponse{Message: message, TaskType: task.Name(), TaskID: task.ID()})
}

func (s *apiServer) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConfiguration):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, scheduler.ErrQueueClosed):
		s.writeError(w, http.StatusServiceUnavailable, "daemon is shutting down")
	default:
		s.log().Error("failed to queue task", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to queue task: %v", err))
	}
}

func (s *apiServer) moduleDisabled(w http.ResponseWriter, module string) {
	s.writeError(w, http.StatusServiceUnavailable, module+" module is not enabled")
}

// decode reads a JSON body into dst, answering 400 on failure.
func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
