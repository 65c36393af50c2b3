package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jakechorley/taskflow-connect/pkg/core/services"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

const requestIDHeader = "X-Request-Id"

type contextKey int

const (
	loggerKey contextKey = iota
	actorKey
)

// requestID tags every request with a ULID and a logger carrying it
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), loggerKey, s.logger.With(zap.String("request_id", id)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := zapcore.InfoLevel
		switch {
		case status >= 500:
			level = zapcore.ErrorLevel
		case status >= 400:
			level = zapcore.WarnLevel
		case r.URL.Path == "/health":
			level = zapcore.DebugLevel
		}

		s.log(r).Log(level, http.StatusText(status),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}

// authenticate resolves the bearer token to the acting volunteer
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		actor, err := services.Authenticate(r.Context(), s.store, s.tokens, token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		ctx = context.WithValue(ctx, loggerKey, s.log(r).With(zap.String("volunteer_id", actor.ID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// log returns the request-scoped logger
func (s *Server) log(r *http.Request) *zap.Logger {
	if l, ok := r.Context().Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return s.logger
}

func actorFrom(r *http.Request) *db.Volunteer {
	actor, _ := r.Context().Value(actorKey).(*db.Volunteer)
	return actor
}
