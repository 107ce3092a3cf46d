package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/dashboard"
)

type advanceRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (a *api) adminRoutes(r chi.Router) {
	r.Get("/users/{userID}/dashboard", a.dashboard)
	r.Post("/users/{userID}/orders/{orderID}/status", a.advanceOrder)
}

func (a *api) dashboard(w http.ResponseWriter, r *http.Request) {
	s, err := a.sessions.Open(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard.Summarize(s.Account.Orders(false), time.UTC))
}

func (a *api) advanceOrder(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := decodeJSON(w, r, &req); err != nil || !req.Status.Known() {
		writeError(r.Context(), w, newError("invalid_request", "a known target status is required", http.StatusBadRequest))
		return
	}
	s, err := a.sessions.Open(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	svc := a.sessions.Orders()
	res, err := svc.Advance(r.Context(), s.Account, chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderPayload{Order: res.Order, Permissions: svc.Permissions(res.Order)})
}
