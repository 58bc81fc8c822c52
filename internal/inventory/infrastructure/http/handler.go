package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ticketmesh/orderflow/internal/inventory/application"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
	"github.com/ticketmesh/orderflow/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service, tracer: otel.Tracer("inventory-http")}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/inventory/hold", h.hold)
	r.Post("/inventory/release", h.release)
	r.Post("/inventory/commit", h.commit)
	r.Get("/inventory/items/{session_id}/{ticket_type_id}", h.availability)
	return r
}

type holdRequest struct {
	HoldID       string    `json:"hold_id"`
	SessionID    string    `json:"session_id"`
	TicketTypeID string    `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type holdIDRequest struct {
	HoldID string `json:"hold_id"`
}

func (h *Handler) hold(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Hold")
	defer span.End()

	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	item, err := h.service.Hold(ctx, req.SessionID, req.TicketTypeID, req.HoldID, req.Quantity, req.ExpiresAt)
	if err != nil {
		if domainerrors.Is(err, domainerrors.KindInsufficientInventory) {
			available := 0
			if current, availErr := h.service.Availability(ctx, req.SessionID, req.TicketTypeID); availErr == nil {
				available = current.AvailableQuantity
			}
			httpx.WriteJSON(w, http.StatusConflict, map[string]any{
				"success":            false,
				"error":              "insufficient_inventory",
				"available_quantity": available,
			})
			return
		}
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"available_quantity": item.AvailableQuantity,
	})
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Release")
	defer span.End()

	var req holdIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	if _, err := h.service.Release(ctx, req.HoldID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Commit")
	defer span.End()

	var req holdIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	if _, err := h.service.Commit(ctx, req.HoldID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Availability")
	defer span.End()

	sessionID := chi.URLParam(r, "session_id")
	ticketTypeID := chi.URLParam(r, "ticket_type_id")

	item, err := h.service.Availability(ctx, sessionID, ticketTypeID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total_quantity":     item.TotalQuantity,
		"available_quantity": item.AvailableQuantity,
		"held_quantity":      item.HeldQuantity(),
	})
}
