package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/services"
)

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	scope := services.EventScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = services.ScopeUpcoming
	}
	events, err := services.ListEvents(r.Context(), s.store, scope)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Date        string `json:"date"`
		Description string `json:"description"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	event, err := services.CreateEvent(r.Context(), s.store, s.log(r), actorFrom(r), req.Name, req.Date, req.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	detail, err := services.GetEventDetail(r.Context(), s.store, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) changeEventStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		Date   string `json:"date"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	event, err := services.ChangeEventStatus(r.Context(), s.store, s.log(r), actorFrom(r), chi.URLParam(r, "id"), model.EventStatus(req.Status), req.Date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) createDepartment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string   `json:"name"`
		MemberIDs []string `json:"memberIds"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	dep, err := services.CreateDepartment(r.Context(), s.store, s.log(r), actorFrom(r), chi.URLParam(r, "id"), req.Name, req.MemberIDs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}
