package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ticketmesh/orderflow/internal/orchestrator/application"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
	"github.com/ticketmesh/orderflow/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service, tracer: otel.Tracer("orchestrator-http")}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/holds", h.createHold)
	r.Post("/api/checkout", h.checkout)
	return r
}

type createHoldRequest struct {
	SessionID     string `json:"session_id"`
	TicketTypeID  string `json:"ticket_type_id"`
	Quantity      int    `json:"quantity"`
	CustomerEmail string `json:"customer_email"`
}

func (h *Handler) createHold(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateHold")
	defer span.End()

	var req createHoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	out, err := h.service.CreateHold(ctx, application.CreateHoldInput{
		SessionID:     req.SessionID,
		TicketTypeID:  req.TicketTypeID,
		Quantity:      req.Quantity,
		CustomerEmail: req.CustomerEmail,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"hold_id":    out.HoldID,
		"expires_at": out.ExpiresAt,
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	status, respBody, err := h.service.Checkout(ctx, r.Header.Get("Idempotency-Key"), body)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(respBody)
}
