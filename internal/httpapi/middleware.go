package httpapi

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/m3rciful/minerva/core/logger"
)

const requestIDHeader = "X-Request-Id"

// requestID takes the caller's X-Request-Id or mints a UUID and stores it as the log rid.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := logger.SanitizeLimit(strings.TrimSpace(r.Header.Get(requestIDHeader)), 64)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)
		ctx := logger.WithRID(r.Context(), rid)
		ctx = logger.WithRequestMeta(ctx, "", "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLog writes one structured line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		status, level := "ok", slog.LevelInfo
		if code >= http.StatusInternalServerError {
			status, level = "fail", slog.LevelError
		}
		logger.Event(r.Context(), "http", level, "http.request",
			slog.String("status", status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_code", code),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}

// cors answers preflight requests and sets CORS headers for allowed origins.
// Credentials are only allowed for explicitly listed origins, never for "*".
func cors(allowed []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(allowed, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			explicit := origin != "" && slices.Contains(allowed, origin)
			if origin != "" && (explicit || wildcard) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
				if explicit {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
