package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/services"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := services.SignIn(r.Context(), s.store, s.tokens, s.log(r), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := services.RequestPasswordReset(r.Context(), s.store, s.tokens, s.notifier, s.log(r), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := services.ResetPassword(r.Context(), s.store, s.tokens, s.log(r), req.Token, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actorFrom(r))
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	p, err := services.GetProfile(r.Context(), s.store, actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := services.UpdateProfileName(r.Context(), s.store, s.log(r), actorFrom(r), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := services.GetDashboard(r.Context(), s.store, actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type createVolunteerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Team     string `json:"team"`
}

func (s *Server) listVolunteers(w http.ResponseWriter, r *http.Request) {
	volunteers, err := services.ListVolunteers(r.Context(), s.store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, volunteers)
}

func (s *Server) createVolunteer(w http.ResponseWriter, r *http.Request) {
	var req createVolunteerRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := services.CreateVolunteer(r.Context(), s.store, s.log(r), actorFrom(r), services.NewVolunteerInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     model.Role(req.Role),
		Team:     req.Team,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) deleteVolunteer(w http.ResponseWriter, r *http.Request) {
	if err := services.DeleteVolunteer(r.Context(), s.store, s.log(r), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
