// Package httpapi exposes the chat engine and the catalog documents over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/minerva/core/logger"
	"github.com/m3rciful/minerva/internal/catalog"
	"github.com/m3rciful/minerva/internal/delivery"
	"github.com/m3rciful/minerva/internal/dialogue"
)

const maxBodyBytes = 8 << 10

// Chatter runs one dialogue turn.
type Chatter interface {
	HandleMessage(ctx context.Context, userID, text string, now time.Time) (dialogue.Reply, error)
}

// Documents resolves catalog resources.
type Documents interface {
	RedirectURL(key catalog.Key) (string, error)
	Fetch(ctx context.Context, key catalog.Key) (delivery.Document, error)
}

// ChatRequest is the body of POST /chatbot.
type ChatRequest struct {
	Usuario string `json:"usuario"`
	Mensaje string `json:"mensaje"`
}

// ChatResponse is the reply of POST /chatbot.
type ChatResponse struct {
	Estado    string `json:"estado"`
	Respuesta string `json:"respuesta"`
}

// Handler serves the HTTP API.
type Handler struct {
	chat Chatter
	docs Documents
	now  func() time.Time
}

// NewHandler returns a handler over chat and docs.
func NewHandler(chat Chatter, docs Documents) *Handler {
	return &Handler{chat: chat, docs: docs, now: time.Now}
}

// Routes builds the router with the shared middleware stack.
func (h *Handler) Routes(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/health"))
	r.Use(cors(corsOrigins))

	r.Post("/chatbot", h.chatbot)
	r.Route("/catalogo/{topic}", func(r chi.Router) {
		r.Get("/", h.redirect)
		r.Get("/descargar", h.download)
	})
	return r
}

func (h *Handler) chatbot(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "cuerpo JSON inválido")
		return
	}
	user := strings.TrimSpace(req.Usuario)
	if user == "" {
		Error(w, http.StatusBadRequest, "el campo usuario es obligatorio")
		return
	}

	ctx := logger.WithRequestMeta(r.Context(), user, "http")
	reply, err := h.chat.HandleMessage(ctx, user, req.Mensaje, h.now())
	if err != nil {
		logger.Error(ctx, "http", "chat.handle",
			slog.String("status", "fail"),
			slog.Any("err", err),
		)
		Error(w, http.StatusInternalServerError, "error interno")
		return
	}
	JSON(w, http.StatusOK, ChatResponse{Estado: string(reply.State), Respuesta: reply.Response})
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request) {
	key := topicParam(r)
	target, err := h.docs.RedirectURL(key)
	if err != nil {
		h.topicError(w, r, key, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	key := topicParam(r)
	doc, err := h.docs.Fetch(r.Context(), key)
	if errors.Is(err, delivery.ErrNotDocument) {
		h.redirect(w, r)
		return
	}
	if err != nil {
		h.topicError(w, r, key, err)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", doc.ContentType)
	hdr.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	hdr.Set("Content-Length", strconv.Itoa(len(doc.Data)))
	hdr.Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (h *Handler) topicError(w http.ResponseWriter, r *http.Request, key catalog.Key, err error) {
	if errors.Is(err, catalog.ErrUnknownTopic) {
		Error(w, http.StatusNotFound, "catálogo no encontrado")
		return
	}
	logger.Warn(r.Context(), "http", "catalog.fetch",
		slog.String("status", "fail"),
		slog.String("topic", string(key)),
		slog.Any("err", err),
	)
	Error(w, http.StatusBadGateway, "no se pudo obtener el catálogo")
}

func topicParam(r *http.Request) catalog.Key {
	return catalog.Key(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "topic"))))
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn(context.Background(), "http", "http.encode", slog.Any("err", err))
	}
}

// Error writes a JSON error body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
