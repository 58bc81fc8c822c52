package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ticketmesh/orderflow/internal/order/application"
	"github.com/ticketmesh/orderflow/internal/order/domain"
	domainerrors "github.com/ticketmesh/orderflow/pkg/errors"
	"github.com/ticketmesh/orderflow/pkg/httpx"
	"github.com/ticketmesh/orderflow/pkg/vo"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service, tracer: otel.Tracer("order-http")}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.create)
	r.Post("/orders/{order_id}/confirm", h.confirm)
	r.Post("/orders/{order_id}/cancel", h.cancel)
	r.Get("/orders/{order_id}", h.get)
	return r
}

type createItem struct {
	SessionID    string `json:"session_id"`
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
}

type createRequest struct {
	CustomerEmail string       `json:"customer_email"`
	HoldID        string       `json:"hold_id"`
	Items         []createItem `json:"items"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Create")
	defer span.End()

	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "Idempotency-Key header is required"))
		return
	}
	idempotencyKey, err := vo.NewIdempotencyKey(key)
	if err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid Idempotency-Key header"))
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid request body"))
		return
	}

	email, err := vo.NewEmailAddress(req.CustomerEmail)
	if err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid customer_email"))
		return
	}
	holdID, err := vo.NewHoldID(req.HoldID)
	if err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid hold_id"))
		return
	}

	items := make([]domain.Item, 0, len(req.Items))
	for _, item := range req.Items {
		unitPrice, err := vo.MoneyFromString(item.UnitPrice)
		if err != nil {
			httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid unit_price"))
			return
		}
		items = append(items, domain.Item{
			SessionID:    item.SessionID,
			TicketTypeID: item.TicketTypeID,
			Quantity:     item.Quantity,
			UnitPrice:    unitPrice,
		})
	}

	result, err := h.service.Create(ctx, idempotencyKey, email, holdID, items)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Existed {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, orderResponse(result.Order))
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Confirm")
	defer span.End()

	orderID, err := vo.NewOrderID(chi.URLParam(r, "order_id"))
	if err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid order id"))
		return
	}

	order, _, err := h.service.Confirm(ctx, orderID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Cancel")
	defer span.End()

	orderID, err := vo.NewOrderID(chi.URLParam(r, "order_id"))
	if err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid order id"))
		return
	}

	order, err := h.service.Cancel(ctx, orderID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse(order))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Get")
	defer span.End()

	orderID, err := vo.NewOrderID(chi.URLParam(r, "order_id"))
	if err != nil {
		httpx.WriteError(w, domainerrors.New(domainerrors.KindValidation, "invalid order id"))
		return
	}

	order, err := h.service.Get(ctx, orderID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orderResponse(order))
}

func orderResponse(o domain.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]any{
			"session_id":     item.SessionID,
			"ticket_type_id": item.TicketTypeID,
			"quantity":       item.Quantity,
			"unit_price":     item.UnitPrice.String(),
		})
	}
	return map[string]any{
		"order_id":        o.ID.String(),
		"customer_email":  o.CustomerEmail.String(),
		"status":          o.Status,
		"total_amount":    o.TotalAmount.String(),
		"idempotency_key": o.IdempotencyKey.String(),
		"hold_id":         o.HoldID.String(),
		"items":           items,
	}
}
