package account

import (
	"context"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Addresses возвращает копию адресной книги.
func (a *Account) Addresses() []domain.ProfileAddress {
	return a.Snapshot().Addresses
}

// DefaultAddress возвращает адрес по умолчанию, а при его отсутствии первый сохранённый.
func (a *Account) DefaultAddress() (domain.ProfileAddress, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return defaultAddress(a.snap.Addresses)
}

func defaultAddress(addrs []domain.ProfileAddress) (domain.ProfileAddress, bool) {
	for _, addr := range addrs {
		if addr.IsDefault {
			return addr, true
		}
	}
	if len(addrs) > 0 {
		return addrs[0], true
	}
	return domain.ProfileAddress{}, false
}

// UpsertAddress добавляет адрес или дополняет существующий с тем же ID:
// пустые поля запроса сохранённые значения не затирают.
// Первый адрес становится адресом по умолчанию; новый адрес по умолчанию снимает признак с остальных.
func (a *Account) UpsertAddress(ctx context.Context, addr domain.ProfileAddress) domain.ProfileAddress {
	var saved domain.ProfileAddress
	_ = a.mutate(ctx, "upsert_address", func(s *domain.UserSnapshot) error {
		idx := -1
		if addr.ID != "" {
			for i := range s.Addresses {
				if s.Addresses[i].ID == addr.ID {
					idx = i
					break
				}
			}
		}
		if idx >= 0 {
			addr = s.Addresses[idx].MergePatch(addr)
		}
		if addr.ID == "" {
			addr.ID = a.newID()
		}
		if addr.Label == "" {
			addr.Label = string(addr.Type)
		}
		addr.Address = addr.Address.Normalize()
		addr.Type = domain.ParseAddressType(addr.Label)

		if len(s.Addresses) == 0 {
			addr.IsDefault = true
		}
		if addr.IsDefault {
			for i := range s.Addresses {
				s.Addresses[i].IsDefault = false
			}
		}
		if idx >= 0 {
			s.Addresses[idx] = addr
		} else {
			s.Addresses = append(s.Addresses, addr)
		}
		ensureDefault(s.Addresses)
		saved = addr
		return nil
	})
	a.logger.WithField("address_id", saved.ID).Debug("address saved")
	return saved
}

// SetDefaultAddress делает адрес адресом по умолчанию.
func (a *Account) SetDefaultAddress(ctx context.Context, id string) error {
	return a.mutate(ctx, "set_default_address", func(s *domain.UserSnapshot) error {
		found := false
		for i := range s.Addresses {
			if s.Addresses[i].ID == id {
				found = true
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", domain.ErrAddressNotFound, id)
		}
		for i := range s.Addresses {
			s.Addresses[i].IsDefault = s.Addresses[i].ID == id
		}
		return nil
	})
}

// RemoveAddress удаляет адрес. Если удалён адрес по умолчанию, им становится первый оставшийся.
func (a *Account) RemoveAddress(ctx context.Context, id string) error {
	return a.mutate(ctx, "remove_address", func(s *domain.UserSnapshot) error {
		kept := s.Addresses[:0:0]
		for _, addr := range s.Addresses {
			if addr.ID != id {
				kept = append(kept, addr)
			}
		}
		if len(kept) == len(s.Addresses) {
			return fmt.Errorf("%w: %s", domain.ErrAddressNotFound, id)
		}
		s.Addresses = kept
		ensureDefault(s.Addresses)
		return nil
	})
}

// ensureDefault оставляет ровно один адрес по умолчанию, если адреса есть.
func ensureDefault(addrs []domain.ProfileAddress) {
	seen := false
	for i := range addrs {
		if addrs[i].IsDefault {
			if seen {
				addrs[i].IsDefault = false
			}
			seen = true
		}
	}
	if !seen && len(addrs) > 0 {
		addrs[0].IsDefault = true
	}
}

// RememberFirstAddress сохраняет адрес оформления в профиль, если адресов ещё нет.
func (a *Account) RememberFirstAddress(ctx context.Context, addr domain.Address) bool {
	stored := false
	_ = a.mutate(ctx, "remember_first_address", func(s *domain.UserSnapshot) error {
		if len(s.Addresses) > 0 {
			return errUnchanged
		}
		entry := domain.ProfileAddressFromCart(a.newID(), addr)
		entry.IsDefault = true
		s.Addresses = append(s.Addresses, entry)
		stored = true
		return nil
	})
	return stored
}
