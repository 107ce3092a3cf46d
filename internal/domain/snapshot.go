package domain

import "time"

// Profile содержит контактные данные пользователя.
type Profile struct {
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfilePatch частично обновляет профиль; nil-поля не меняются.
type ProfilePatch struct {
	Name  *string `json:"name,omitempty"`
	Phone *string `json:"phone,omitempty"`
	Email *string `json:"email,omitempty"`
}

// UserSnapshot: сохраняемая запись пользователя.
type UserSnapshot struct {
	Profile   Profile          `json:"profile"`
	Addresses []ProfileAddress `json:"addresses"`
	Wishlist  []string         `json:"wishlist"`
	Orders    []Order          `json:"orders"`
}

// Clone возвращает независимую копию снимка.
func (s UserSnapshot) Clone() UserSnapshot {
	out := UserSnapshot{Profile: s.Profile}
	out.Addresses = make([]ProfileAddress, len(s.Addresses))
	for i, a := range s.Addresses {
		out.Addresses[i] = a
		if c := a.Address.Clone(); c != nil {
			out.Addresses[i].Address = *c
		}
	}
	out.Wishlist = append([]string{}, s.Wishlist...)
	out.Orders = make([]Order, len(s.Orders))
	for i, o := range s.Orders {
		out.Orders[i] = o.Clone()
	}
	return out
}

// Normalize подставляет пустые коллекции и чинит заказы после чтения.
func (s UserSnapshot) Normalize(now time.Time, newID func() string) UserSnapshot {
	if s.Addresses == nil {
		s.Addresses = []ProfileAddress{}
	}
	if s.Wishlist == nil {
		s.Wishlist = []string{}
	}
	if s.Orders == nil {
		s.Orders = []Order{}
	}
	for i := range s.Orders {
		s.Orders[i] = NormalizeOrder(s.Orders[i], now, newID)
	}
	if s.Profile.CreatedAt.IsZero() {
		s.Profile.CreatedAt = now
	}
	return s
}
