package account

import (
	"context"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Wishlist возвращает id избранных товаров, новые первыми.
func (a *Account) Wishlist() []string {
	return a.Snapshot().Wishlist
}

// InWishlist проверяет наличие товара в избранном.
func (a *Account) InWishlist(productID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range a.snap.Wishlist {
		if id == productID {
			return true
		}
	}
	return false
}

// AddToWishlist добавляет товар в начало списка без дубликатов.
func (a *Account) AddToWishlist(ctx context.Context, productID string) {
	_ = a.mutate(ctx, "wishlist_add", func(s *domain.UserSnapshot) error {
		for _, id := range s.Wishlist {
			if id == productID {
				return errUnchanged
			}
		}
		s.Wishlist = append([]string{productID}, s.Wishlist...)
		return nil
	})
}

// RemoveFromWishlist удаляет товар из избранного.
func (a *Account) RemoveFromWishlist(ctx context.Context, productID string) {
	_ = a.mutate(ctx, "wishlist_remove", func(s *domain.UserSnapshot) error {
		kept := make([]string, 0, len(s.Wishlist))
		for _, id := range s.Wishlist {
			if id != productID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(s.Wishlist) {
			return errUnchanged
		}
		s.Wishlist = kept
		return nil
	})
}
