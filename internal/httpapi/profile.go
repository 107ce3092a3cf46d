package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func (a *api) profileRoutes(r chi.Router) {
	r.Get("/", a.getProfile)
	r.Patch("/", a.updateProfile)
	r.Delete("/", a.clearAll)

	r.Get("/addresses", a.listAddresses)
	r.Post("/addresses", a.upsertAddress)
	r.Put("/addresses/{addressID}", a.upsertAddress)
	r.Delete("/addresses/{addressID}", a.removeAddress)
	r.Post("/addresses/{addressID}/default", a.setDefaultAddress)

	r.Get("/wishlist", a.getWishlist)
	r.Put("/wishlist/{productID}", a.addToWishlist)
	r.Delete("/wishlist/{productID}", a.removeFromWishlist)
}

type profilePayload struct {
	Profile domain.Profile `json:"profile"`
	Unsaved bool           `json:"unsaved"`
}

func (a *api) getProfile(w http.ResponseWriter, r *http.Request) {
	acc := sessionFrom(r).Account
	writeJSON(w, http.StatusOK, profilePayload{Profile: acc.Profile(), Unsaved: acc.Unsaved()})
}

func (a *api) updateProfile(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(r.Context(), w, newError("invalid_request", "profile body is malformed", http.StatusBadRequest))
		return
	}
	acc := sessionFrom(r).Account
	profile := acc.UpdateProfile(r.Context(), patch)
	writeJSON(w, http.StatusOK, profilePayload{Profile: profile, Unsaved: acc.Unsaved()})
}

func (a *api) clearAll(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	s.Account.ClearAll(r.Context())
	s.Cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) listAddresses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"addresses": sessionFrom(r).Account.Addresses()})
}

func (a *api) upsertAddress(w http.ResponseWriter, r *http.Request) {
	var addr domain.ProfileAddress
	if err := decodeJSON(w, r, &addr); err != nil {
		writeError(r.Context(), w, newError("invalid_request", "address body is malformed", http.StatusBadRequest))
		return
	}
	if id := chi.URLParam(r, "addressID"); id != "" {
		addr.ID = id
	}
	s := sessionFrom(r)
	saved := s.Account.UpsertAddress(r.Context(), addr)
	s.SyncAddress()
	writeJSON(w, http.StatusOK, saved)
}

func (a *api) removeAddress(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if err := s.Account.RemoveAddress(r.Context(), chi.URLParam(r, "addressID")); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	s.SyncAddress()
	writeJSON(w, http.StatusOK, map[string]any{"addresses": s.Account.Addresses()})
}

func (a *api) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r)
	if err := s.Account.SetDefaultAddress(r.Context(), chi.URLParam(r, "addressID")); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	s.SyncAddress()
	writeJSON(w, http.StatusOK, map[string]any{"addresses": s.Account.Addresses()})
}

func (a *api) getWishlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"wishlist": sessionFrom(r).Account.Wishlist()})
}

func (a *api) addToWishlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	if _, err := a.catalog.Lookup(id); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	acc := sessionFrom(r).Account
	acc.AddToWishlist(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{"wishlist": acc.Wishlist()})
}

func (a *api) removeFromWishlist(w http.ResponseWriter, r *http.Request) {
	acc := sessionFrom(r).Account
	acc.RemoveFromWishlist(r.Context(), chi.URLParam(r, "productID"))
	writeJSON(w, http.StatusOK, map[string]any{"wishlist": acc.Wishlist()})
}
