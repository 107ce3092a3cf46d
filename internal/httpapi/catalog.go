package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productPayload struct {
	domain.Product
	Bestseller bool `json:"bestseller"`
}

func (a *api) catalogRoutes(r chi.Router) {
	r.Get("/products", a.listProducts)
	r.Get("/products/{productID}", a.getProduct)
	r.Get("/bestsellers", a.listBestsellers)
}

// listProducts поддерживает фильтр ?category=veg.
func (a *api) listProducts(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(strings.TrimSpace(r.URL.Query().Get("category")))
	products := a.catalog.Products()
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		out = append(out, productPayload{Product: p, Bestseller: a.catalog.IsBestseller(p.ID)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (a *api) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.catalog.Lookup(chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, productPayload{Product: p, Bestseller: a.catalog.IsBestseller(p.ID)})
}

func (a *api) listBestsellers(w http.ResponseWriter, _ *http.Request) {
	ids := a.catalog.Bestsellers()
	out := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if p, err := a.catalog.Lookup(id); err == nil {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}
