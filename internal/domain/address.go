package domain

import "strings"

// AddressType задаёт тип адреса доставки.
type AddressType string

const (
	AddressHome  AddressType = "Home"
	AddressWork  AddressType = "Work"
	AddressOther AddressType = "Other"
)

// ParseAddressType приводит произвольную метку к типу адреса, по умолчанию Home.
func ParseAddressType(label string) AddressType {
	switch AddressType(strings.TrimSpace(label)) {
	case AddressWork:
		return AddressWork
	case AddressOther:
		return AddressOther
	default:
		return AddressHome
	}
}

// PincodeLength: длина индекса, после которой имеет смысл проверка обслуживания.
const PincodeLength = 6

// ServiceablePincodes: индексы, куда осуществляется доставка.
var ServiceablePincodes = map[string]struct{}{
	"533223": {},
	"533101": {},
	"533103": {},
	"533104": {},
}

// ValidateServiceability возвращает nil, пока индекс неполный, иначе признак обслуживания.
func ValidateServiceability(pincode string) *bool {
	pincode = strings.TrimSpace(pincode)
	if len(pincode) != PincodeLength {
		return nil
	}
	_, ok := ServiceablePincodes[pincode]
	return &ok
}

// Coords хранит координаты адреса.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address: единый адрес доставки, общий для корзины, профиля и заказов.
type Address struct {
	Type          AddressType `json:"type"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	House         string      `json:"house"`
	Pincode       string      `json:"pincode"`
	Mandal        string      `json:"mandal"`
	District      string      `json:"district"`
	State         string      `json:"state"`
	IsServiceable *bool       `json:"isServiceable"`
	Coords        *Coords     `json:"coords,omitempty"`
}

// Normalize обрезает пробелы, подставляет тип по умолчанию и пересчитывает признак обслуживания.
func (a Address) Normalize() Address {
	a.Type = ParseAddressType(string(a.Type))
	a.Name = strings.TrimSpace(a.Name)
	a.Phone = strings.TrimSpace(a.Phone)
	a.House = strings.TrimSpace(a.House)
	a.Pincode = strings.TrimSpace(a.Pincode)
	a.Mandal = strings.TrimSpace(a.Mandal)
	a.District = strings.TrimSpace(a.District)
	a.State = strings.TrimSpace(a.State)
	a.IsServiceable = ValidateServiceability(a.Pincode)
	if a.Coords != nil {
		c := *a.Coords
		a.Coords = &c
	}
	return a
}

// Merge накладывает непустые поля patch поверх адреса.
// Признак обслуживания не переносится: его пересчитывает Normalize.
func (a Address) Merge(patch Address) Address {
	overlay := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = src
		}
	}
	if patch.Type != "" {
		a.Type = patch.Type
	}
	overlay(&a.Name, patch.Name)
	overlay(&a.Phone, patch.Phone)
	overlay(&a.House, patch.House)
	overlay(&a.Pincode, patch.Pincode)
	overlay(&a.Mandal, patch.Mandal)
	overlay(&a.District, patch.District)
	overlay(&a.State, patch.State)
	if patch.Coords != nil {
		c := *patch.Coords
		a.Coords = &c
	}
	return a
}

// MergePatch обновляет запись адресной книги: пустые поля patch не затирают сохранённые.
func (p ProfileAddress) MergePatch(patch ProfileAddress) ProfileAddress {
	if strings.TrimSpace(patch.Label) != "" {
		p.Label = patch.Label
	}
	p.IsDefault = p.IsDefault || patch.IsDefault
	p.Address = p.Address.Merge(patch.Address)
	return p
}

// Complete сообщает, заполнены ли обязательные поля.
func (a Address) Complete() bool {
	return a.Name != "" && a.Phone != "" && a.House != "" && len(a.Pincode) == PincodeLength
}

// Snapshot возвращает частичный снимок адреса для заказа.
func (a Address) Snapshot() *AddressSnapshot {
	return &AddressSnapshot{
		Name:     a.Name,
		Phone:    a.Phone,
		House:    a.House,
		Mandal:   a.Mandal,
		District: a.District,
		State:    a.State,
		Pincode:  a.Pincode,
	}
}

// Clone возвращает глубокую копию адреса.
func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	c := *a
	if a.IsServiceable != nil {
		v := *a.IsServiceable
		c.IsServiceable = &v
	}
	if a.Coords != nil {
		v := *a.Coords
		c.Coords = &v
	}
	return &c
}

// ProfileAddress: адрес из адресной книги пользователя.
type ProfileAddress struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	IsDefault bool   `json:"isDefault"`
	Address
}

// CartAddress переводит адрес профиля в адрес корзины: метка становится типом.
func (p ProfileAddress) CartAddress() Address {
	addr := p.Address
	addr.Type = ParseAddressType(p.Label)
	return addr.Normalize()
}

// ProfileAddressFromCart создаёт запись адресной книги из адреса корзины.
func ProfileAddressFromCart(id string, addr Address) ProfileAddress {
	addr = addr.Normalize()
	return ProfileAddress{
		ID:      id,
		Label:   string(addr.Type),
		Address: addr,
	}
}

// AddressSnapshot — копия адреса, сохраняемая в заказе.
type AddressSnapshot struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	House    string `json:"house"`
	Mandal   string `json:"mandal"`
	District string `json:"district"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}
