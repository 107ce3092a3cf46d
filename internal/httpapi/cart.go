package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type couponRequest struct {
	Code string `json:"code"`
}

type checkoutRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (a *api) cartRoutes(r chi.Router) {
	r.Get("/", a.getCart)
	r.Delete("/", a.clearCart)
	r.Post("/items", a.addItem)
	r.Put("/items/{productID}", a.setQuantity)
	r.Delete("/items/{productID}", a.removeItem)
	r.Post("/buy-now", a.buyNow)
	r.Post("/coupon", a.applyCoupon)
	r.Delete("/coupon", a.removeCoupon)
	r.Put("/address", a.setCartAddress)
	r.Post("/checkout", a.checkout)
}

func (a *api) getCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r).Cart.Snapshot())
}

func (a *api) clearCart(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r).Cart
	c.Clear()
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (a *api) addItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ProductID == "" {
		writeError(r.Context(), w, newError("invalid_request", "productId is required", http.StatusBadRequest))
		return
	}
	c := sessionFrom(r).Cart
	if err := c.AddOne(req.ProductID); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (a *api) removeItem(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r).Cart
	c.RemoveOne(chi.URLParam(r, "productID"))
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (a *api) setQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, newError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}
	c := sessionFrom(r).Cart
	c.SetQuantity(chi.URLParam(r, "productID"), req.Quantity)
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (a *api) buyNow(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil || req.ProductID == "" {
		writeError(r.Context(), w, newError("invalid_request", "productId and quantity are required", http.StatusBadRequest))
		return
	}
	c := sessionFrom(r).Cart
	if err := c.BuyNow(req.ProductID, req.Quantity); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// applyCoupon не считает отказ ошибкой: результат передаётся флагом applied.
func (a *api) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, newError("invalid_request", "code is required", http.StatusBadRequest))
		return
	}
	c := sessionFrom(r).Cart
	applied := c.ApplyCoupon(req.Code)
	writeJSON(w, http.StatusOK, map[string]any{"applied": applied, "cart": c.Snapshot()})
}

func (a *api) removeCoupon(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r).Cart
	c.RemoveCoupon()
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (a *api) setCartAddress(w http.ResponseWriter, r *http.Request) {
	var addr domain.Address
	if err := decodeJSON(w, r, &addr); err != nil {
		writeError(r.Context(), w, newError("invalid_request", "address body is malformed", http.StatusBadRequest))
		return
	}
	c := sessionFrom(r).Cart
	c.SetAddress(addr)
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (a *api) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, newError("invalid_request", "paymentMethod is required", http.StatusBadRequest))
		return
	}
	s := sessionFrom(r)
	svc := a.sessions.Orders()
	order, err := svc.Checkout(r.Context(), s.Cart, s.Account, req.PaymentMethod)
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderPayload{Order: order, Permissions: svc.Permissions(order)})
}
