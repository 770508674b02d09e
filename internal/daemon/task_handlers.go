package daemon

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/nexelor/media-collector/internal/api"
	"github.com/nexelor/media-collector/internal/scheduler"
)

const defaultTaskListLimit = 50

// parseState accepts a lifecycle state name case-insensitively.
func parseState(value string) (scheduler.State, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", true
	}
	for _, state := range []scheduler.State{scheduler.StatePending, scheduler.StateRunning, scheduler.StateCompleted, scheduler.StateFailed} {
		if strings.EqualFold(value, string(state)) {
			return state, true
		}
	}
	return "", false
}

func (s *apiServer) handleTaskList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	state, ok := parseState(query.Get("status"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown task status")
		return
	}
	limit := defaultTaskListLimit
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	tasks, err := s.tasks.List(r.Context(), state, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []api.Task{}
	}
	s.writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: tasks})
}

func (s *apiServer) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Describe(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if task == nil {
		s.writeError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeJSON(w, http.StatusOK, task)
}
