package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jakechorley/taskflow-connect/pkg/core/model"
	"github.com/jakechorley/taskflow-connect/pkg/core/services"
)

const defaultOccurrences = 10

type createMeetingRequest struct {
	Title        string   `json:"title"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Location     string   `json:"location"`
	Type         string   `json:"type"`
	Audience     string   `json:"audience"`
	Teams        []string `json:"teams"`
	VolunteerIDs []string `json:"volunteerIds"`
	Recurrence   string   `json:"recurrence"`
}

func (s *Server) listMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := services.ListMeetings(r.Context(), s.store, actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meetings)
}

func (s *Server) createMeeting(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	meeting, err := services.CreateMeeting(r.Context(), s.store, s.notifier, s.log(r), actorFrom(r), services.CreateMeetingInput{
		Title:        req.Title,
		Date:         req.Date,
		Time:         req.Time,
		Location:     req.Location,
		Type:         model.MeetingType(req.Type),
		Audience:     model.AudienceMode(req.Audience),
		Teams:        req.Teams,
		VolunteerIDs: req.VolunteerIDs,
		Recurrence:   req.Recurrence,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meeting)
}

func (s *Server) meetingOccurrences(w http.ResponseWriter, r *http.Request) {
	count := defaultOccurrences
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "count must be a number")
			return
		}
		count = n
	}
	occurrences, err := services.MeetingOccurrences(r.Context(), s.store, actorFrom(r), chi.URLParam(r, "id"), count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, occurrences)
}

func (s *Server) listAnnouncements(w http.ResponseWriter, r *http.Request) {
	announcements, err := services.ListAnnouncements(r.Context(), s.store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, announcements)
}

func (s *Server) createAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := services.CreateAnnouncement(r.Context(), s.store, s.notifier, s.log(r), actorFrom(r), req.Title, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) deleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	if err := services.DeleteAnnouncement(r.Context(), s.store, s.log(r), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) pushKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": s.cfg.Push.VAPIDPublicKey})
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	var req services.SubscriptionInput
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := services.Subscribe(r.Context(), s.store, s.log(r), actorFrom(r), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := services.Unsubscribe(r.Context(), s.store, s.log(r), actorFrom(r), req.Endpoint); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
