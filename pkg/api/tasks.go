package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/services"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

type createTaskRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	Deadline     string   `json:"deadline"`
	VolunteerIDs []string `json:"assignedVolunteerIds"`
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := services.CreateTask(r.Context(), s.store, s.notifier, s.log(r), actorFrom(r), services.CreateTaskInput{
		EventID:      chi.URLParam(r, "id"),
		Name:         req.Name,
		Description:  req.Description,
		Type:         model.TaskType(req.Type),
		Deadline:     req.Deadline,
		VolunteerIDs: req.VolunteerIDs,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) myTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := services.ListMyTasks(r.Context(), s.store, actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []db.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := services.GetTask(r.Context(), s.store, actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := services.DeleteTask(r.Context(), s.store, s.log(r), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// assignTask replaces the assignee set. Version is optional; when sent it must match.
func (s *Server) assignTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VolunteerIDs []string `json:"assignedVolunteerIds"`
		Version      int      `json:"version"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	task, err := services.AssignTask(r.Context(), s.store, s.notifier, s.log(r), actorFrom(r), chi.URLParam(r, "id"), req.VolunteerIDs, req.Version)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	res, err := services.MarkTaskComplete(r.Context(), s.store, s.log(r), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) markPresent(w http.ResponseWriter, r *http.Request) {
	res, err := services.MarkTaskPresent(r.Context(), s.store, s.notifier, s.log(r), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) addNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VolunteerID string `json:"volunteerId"`
		Note        string `json:"note"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	note, err := services.AddContributionNote(r.Context(), s.store, s.log(r), actorFrom(r), chi.URLParam(r, "id"), req.VolunteerID, req.Note)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) listRemapRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := services.ListRemapRequests(r.Context(), s.store, actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if requests == nil {
		requests = []db.RemappingRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

func (s *Server) submitRemapRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID        string `json:"taskId"`
		ToVolunteerID string `json:"toVolunteerId"`
		Reason        string `json:"reason"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	created, err := services.SubmitRemapRequest(r.Context(), s.store, s.notifier, s.log(r), actorFrom(r), req.TaskID, req.ToVolunteerID, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) decideRemapRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decision string `json:"decision"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := services.DecideRemapRequest(r.Context(), s.store, s.notifier, s.log(r), actorFrom(r), chi.URLParam(r, "id"), model.RequestStatus(req.Decision))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
