package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// RequestLogMiddleware logs every request with its method, path, status,
// and duration.
func RequestLogMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorder, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// APITokenMiddleware rejects requests whose Api-Token header does not match
// the configured service token. An empty configured token disables the
// check, which is the local development mode.
func APITokenMiddleware(token string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				provided := r.Header.Get("Api-Token")
				if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
					writeError(w, http.StatusUnauthorized, "Invalid Api-Token")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
