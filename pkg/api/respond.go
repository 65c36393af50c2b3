package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jakechorley/taskflow-connect/pkg/core/services"
	"github.com/jakechorley/taskflow-connect/pkg/db"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decode reads a JSON body into v, rejecting unknown fields
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", services.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed request body: %v", services.ErrInvalidInput, err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrVersionConflict), errors.Is(err, db.ErrDuplicate), errors.Is(err, services.ErrRequestClosed):
		return http.StatusConflict
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		s.log(r).Error("Request failed", zap.Error(err))
		writeMessage(w, status, "internal error")
	case http.StatusUnauthorized:
		s.log(r).Debug("Unauthenticated request", zap.Error(err))
		writeMessage(w, status, "not authenticated")
	case http.StatusNotFound:
		writeMessage(w, status, "not found")
	default:
		writeMessage(w, status, err.Error())
	}
}
