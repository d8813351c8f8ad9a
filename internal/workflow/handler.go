package workflow

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/frostline-scm/frostline/internal/order"
	"github.com/frostline-scm/frostline/internal/packing"
	"github.com/frostline-scm/frostline/internal/platform/httpx"
	"github.com/frostline-scm/frostline/internal/shared"
)

// Handler manages the order workflow HTTP endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.Post("/{id}/transitions", h.transition)
	r.Get("/{id}/credit", h.creditReview)
	r.Get("/{id}/costing", h.costing)
}

// create handles POST /orders
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}

	o, err := h.service.Create(r.Context(), req, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, viewOf(o))
}

// list handles GET /orders
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{Limit: 20}
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		status := order.Status(s)
		if !status.IsValid() {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown status filter")
			return
		}
		req.Status = &status
	}
	if k := q.Get("kind"); k != "" {
		kind := order.Kind(k)
		if !kind.IsValid() {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "unknown kind filter")
			return
		}
		req.Kind = &kind
	}
	if c := q.Get("customer_id"); c != "" {
		id, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid customer_id")
			return
		}
		req.CustomerID = &id
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			req.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			req.Offset = n
		}
	}

	orders, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders": orders,
		"total":  total,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}

// show handles GET /orders/{id}
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(o))
}

// transition handles POST /orders/{id}/transitions
func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}

	o, err := h.service.Submit(r.Context(), id, req, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(o))
}

// creditReview handles GET /orders/{id}/credit
func (h *Handler) creditReview(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	review, err := h.service.CreditReview(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, review)
}

// costing handles GET /orders/{id}/costing
func (h *Handler) costing(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Costing(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid order id")
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps domain errors to problem responses. PersistenceConflict
// is the one retryable case and is labelled as such.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, order.ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, order.ErrPersistenceConflict):
		httpx.Problem(w, http.StatusConflict, "Concurrent Update", "order was modified concurrently; reload and resubmit")
	case errors.Is(err, order.ErrUnauthorizedActor):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, order.ErrMissingReason),
		errors.Is(err, order.ErrIncompleteAllocation),
		errors.Is(err, order.ErrMissingFacility),
		errors.Is(err, order.ErrMissingInvoice),
		errors.Is(err, order.ErrMissingFleet),
		errors.Is(err, order.ErrMissingProof),
		errors.Is(err, order.ErrMissingDelivered),
		errors.Is(err, order.ErrDeliveredExceeds),
		errors.Is(err, order.ErrEmptyLines),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidKind),
		errors.Is(err, order.ErrSameWarehouse),
		errors.Is(err, order.ErrMissingCustomer):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	default:
		h.logger.Error("workflow request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func viewOf(o *order.Order) OrderView {
	view := OrderView{
		Order:       *o,
		PackedValue: o.PackedValue(),
		FullyPacked: packing.IsFullyPacked(o),
	}
	for i := range o.Lines {
		l := &o.Lines[i]
		view.LineTotals = append(view.LineTotals, LineTotals{
			ProductID:    l.ProductID,
			OrderedQty:   l.OrderedQty,
			PackedQty:    l.PackedQty(),
			DeliveredQty: l.DeliveredQty,
			RemainingQty: l.RemainingQty(),
		})
	}
	return view
}
