// Package api exposes the services over a JSON HTTP API under /api/v1.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/internal/config"
	"github.com/jakechorley/taskflow-connect/pkg/core/services"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

const shutdownTimeout = 15 * time.Second

// Server wires the HTTP routes to the services
type Server struct {
	cfg      *config.Config
	store    db.Database
	tokens   services.Tokens
	notifier *services.Notifier
	logger   *zap.Logger
	server   *http.Server
}

func NewServer(cfg *config.Config, store db.Database, tokens services.Tokens, notifier *services.Notifier, logger *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
	}
}

// Handler builds the router with CORS applied
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.requestID,
		s.accessLog,
		middleware.Recoverer,
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeMessage(w, http.StatusNotFound, "not found")
		})

		r.Post("/auth/signin", s.signIn)
		r.Post("/auth/password-reset", s.requestPasswordReset)
		r.Post("/auth/password-reset/confirm", s.confirmPasswordReset)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/me", s.me)
			r.Get("/me/profile", s.profile)
			r.Patch("/me/profile", s.updateProfile)
			r.Get("/dashboard", s.dashboard)

			r.Get("/volunteers", s.listVolunteers)
			r.Post("/volunteers", s.createVolunteer)
			r.Delete("/volunteers/{id}", s.deleteVolunteer)

			r.Get("/events", s.listEvents)
			r.Post("/events", s.createEvent)
			r.Get("/events/{id}", s.getEvent)
			r.Post("/events/{id}/status", s.changeEventStatus)
			r.Post("/events/{id}/departments", s.createDepartment)
			r.Post("/events/{id}/tasks", s.createTask)

			r.Get("/tasks/mine", s.myTasks)
			r.Get("/tasks/{id}", s.getTask)
			r.Delete("/tasks/{id}", s.deleteTask)
			r.Put("/tasks/{id}/assignees", s.assignTask)
			r.Post("/tasks/{id}/complete", s.completeTask)
			r.Post("/tasks/{id}/present", s.markPresent)
			r.Post("/tasks/{id}/notes", s.addNote)

			r.Get("/remapping-requests", s.listRemapRequests)
			r.Post("/remapping-requests", s.submitRemapRequest)
			r.Post("/remapping-requests/{id}/decision", s.decideRemapRequest)

			r.Get("/meetings", s.listMeetings)
			r.Post("/meetings", s.createMeeting)
			r.Get("/meetings/{id}/occurrences", s.meetingOccurrences)

			r.Get("/announcements", s.listAnnouncements)
			r.Post("/announcements", s.createAnnouncement)
			r.Delete("/announcements/{id}", s.deleteAnnouncement)

			r.Get("/push-subscriptions/key", s.pushKey)
			r.Post("/push-subscriptions", s.subscribe)
			r.Delete("/push-subscriptions", s.unsubscribe)
		})
	})

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{s.cfg.PublicURL}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         600,
	}).Handler(r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.cfg.HTTPAddr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
