package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/macro-engine/internal/logger"
)

// RequestIDHeader carries the correlation id in requests and responses
const RequestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// Logger logs each request with the default slog logger
func Logger(next http.Handler) http.Handler {
	return LoggerWith(slog.Default())(next)
}

// LoggerWith assigns a request id, recovers panics as 500s and logs one
// line per request.
func LoggerWith(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
				r.Header.Set(RequestIDHeader, requestID)
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLog := logger.WithRequestID(log, requestID)
			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				if recovered := recover(); recovered != nil {
					reqLog.Error("Panic recovered",
						"method", r.Method,
						"path", r.URL.Path,
						"panic", recovered,
						"stack", string(debug.Stack()))
					if rec.status == 0 {
						rec.WriteHeader(http.StatusInternalServerError)
					}
				}

				status := rec.status
				if status == 0 {
					status = http.StatusOK
				}
				reqLog.Info("Request handled",
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", rec.bytes,
					"duration", time.Since(start))
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
