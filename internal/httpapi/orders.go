package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/account"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/orders"
)

type orderPayload struct {
	Order       domain.Order       `json:"order"`
	Permissions domain.Permissions `json:"permissions"`
	Message     string             `json:"message,omitempty"`
}

type payNowRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (a *api) orderRoutes(r chi.Router) {
	r.Get("/", a.listOrders)
	r.Get("/{orderID}", a.getOrder)
	r.Get("/{orderID}/timeline", a.getTimeline)
	r.Get("/{orderID}/invoice", a.getInvoice)
	r.Post("/{orderID}/refund", a.orderAction(func(ctx context.Context, svc *orders.Service, acc *account.Account, id string) (orders.Result, error) {
		return svc.RequestRefund(ctx, acc, id)
	}))
	r.Post("/{orderID}/exchange", a.orderAction(func(ctx context.Context, svc *orders.Service, acc *account.Account, id string) (orders.Result, error) {
		return svc.RequestExchange(ctx, acc, id)
	}))
	r.Post("/{orderID}/cancel", a.orderAction(func(ctx context.Context, svc *orders.Service, acc *account.Account, id string) (orders.Result, error) {
		return svc.Cancel(ctx, acc, id)
	}))
	r.Post("/{orderID}/address", a.orderAction(func(ctx context.Context, svc *orders.Service, acc *account.Account, id string) (orders.Result, error) {
		return svc.UpdateAddress(ctx, acc, id)
	}))
	r.Post("/{orderID}/pay", a.payNow)
}

// listOrders поддерживает фильтр ?active=true.
func (a *api) listOrders(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	list := sessionFrom(r).Account.Orders(activeOnly)
	svc := a.sessions.Orders()
	out := make([]orderPayload, 0, len(list))
	for _, o := range list {
		out = append(out, orderPayload{Order: o, Permissions: svc.Permissions(o)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (a *api) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := sessionFrom(r).Account.Order(chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderPayload{Order: order, Permissions: a.sessions.Orders().Permissions(order)})
}

func (a *api) getTimeline(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	if _, err := sessionFrom(r).Account.Order(id); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	events, err := a.sessions.Orders().Timeline(id)
	if err != nil {
		a.logger.WithError(err).WithField("order_id", id).Warn("failed to read timeline")
		writeError(r.Context(), w, newError("timeline_unavailable", "timeline is unavailable", http.StatusServiceUnavailable))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *api) getInvoice(w http.ResponseWriter, r *http.Request) {
	order, err := sessionFrom(r).Account.Order(chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	body, err := a.sessions.Orders().Invoice(order)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+order.ID+`.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type orderActionFunc func(ctx context.Context, svc *orders.Service, acc *account.Account, orderID string) (orders.Result, error)

func (a *api) orderAction(action orderActionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := a.sessions.Orders()
		res, err := action(r.Context(), svc, sessionFrom(r).Account, chi.URLParam(r, "orderID"))
		if err != nil {
			writeDomainError(r.Context(), w, err)
			return
		}
		writeJSON(w, http.StatusOK, orderPayload{Order: res.Order, Permissions: svc.Permissions(res.Order), Message: res.Message})
	}
}

func (a *api) payNow(w http.ResponseWriter, r *http.Request) {
	var req payNowRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, newError("invalid_request", "paymentMethod is required", http.StatusBadRequest))
		return
	}
	a.orderAction(func(ctx context.Context, svc *orders.Service, acc *account.Account, id string) (orders.Result, error) {
		return svc.PayNow(ctx, acc, id, req.PaymentMethod)
	})(w, r)
}
