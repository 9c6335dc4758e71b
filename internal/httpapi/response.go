package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Response is the JSON envelope of every endpoint.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error member of Response.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps an engine error kind to a status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, goIdentity.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, goIdentity.ErrDuplicateResource):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, goIdentity.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, goIdentity.ErrExpired):
		return http.StatusGone, "EXPIRED"
	case errors.Is(err, goIdentity.ErrInvalidCredential):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, goIdentity.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, goIdentity.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeError renders an engine error. Internal errors never expose their
// message; the engine has already logged the cause.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	status, code := errorStatus(err)
	resp := &ErrorResponse{
		Code:      code,
		Message:   err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	}

	var verr *goIdentity.ValidationError
	if errors.As(err, &verr) {
		resp.Message = "request validation failed"
		resp.Fields = verr.Fields
	}
	if status == http.StatusInternalServerError {
		resp.Message = "an internal error occurred"
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", resp.RequestID),
			zap.Error(err),
		)
	}

	writeJSON(w, status, Response{Error: resp})
}

// decode reads a JSON body of at most 1 MiB into v. It writes the 400
// response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return false
	}
	return true
}

// requestLogger logs one line per request at Info, or Warn for 5xx.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if ww.Status() >= http.StatusInternalServerError {
				logger.Warn("request", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}
