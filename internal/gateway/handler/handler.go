package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civic/internal/gateway"
	"civic/internal/platform/middleware"
)

// Service defines the gateway operations the HTTP layer delegates to.
type Service interface {
	Submit(ctx context.Context, sub gateway.Submission) (string, error)
	Status(ctx context.Context, id string) (gateway.StatusView, error)
	Delete(ctx context.Context, id string) error
}

// Handler is the thin HTTP layer over the gateway service. Transport concerns
// only; no business logic.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a gateway Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the method-routed validation endpoint with the shared
// middleware chain.
func (h *Handler) Register(r chi.Router) {
	r.Route("/validations", func(rt chi.Router) {
		rt.Use(middleware.Recovery(h.logger))
		rt.Use(middleware.RequestID)
		rt.Use(middleware.Logger(h.logger))
		rt.Use(middleware.ContentTypeJSON)
		rt.Use(middleware.CORS)
		rt.Post("/", h.handleSubmit)
		rt.Get("/", h.handleStatus)
		rt.Delete("/", h.handleDelete)
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var sub gateway.Submission
	if r.Body == nil {
		writeBadRequest(w)
		return
	}
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.logger.WarnContext(ctx, "unparsable submission body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		writeBadRequest(w)
		return
	}

	id, err := h.service.Submit(ctx, sub)
	if err != nil {
		h.logger.ErrorContext(ctx, "submission failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		writeInternalError(w)
		return
	}
	writePayload(w, http.StatusOK, id)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")
	if id == "" {
		writeBadRequest(w)
		return
	}

	view, err := h.service.Status(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "status read failed",
			"request_id", middleware.GetRequestID(ctx),
			"id", id,
			"error", err,
		)
		writeInternalError(w)
		return
	}
	writePayload(w, http.StatusOK, view)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.URL.Query().Get("id")
	if id == "" {
		writeBadRequest(w)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.logger.ErrorContext(ctx, "deletion request failed",
			"request_id", middleware.GetRequestID(ctx),
			"id", id,
			"error", err,
		)
		writeInternalError(w)
		return
	}
	writePayload(w, http.StatusOK, nil)
}
