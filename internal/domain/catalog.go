package domain

// Category группирует товары каталога.
type Category string

const (
	CategoryVeg    Category = "veg"
	CategoryNonVeg Category = "non-veg"
	CategoryPowder Category = "powder"
	CategorySnack  Category = "snack"
	CategorySweet  Category = "sweet"
)

// Product описывает товар каталога. Цена указана в целых рупиях.
type Product struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	LocalName   string   `json:"localName,omitempty" yaml:"localName"`
	Price       int64    `json:"price" yaml:"price"`
	Weight      string   `json:"weight" yaml:"weight"`
	Image       string   `json:"image,omitempty" yaml:"image"`
	Category    Category `json:"category" yaml:"category"`
	Rating      float64  `json:"rating,omitempty" yaml:"rating"`
	RatingCount int      `json:"ratingCount,omitempty" yaml:"ratingCount"`
	// Orders: историческое число заказов, по нему считаются бестселлеры.
	Orders int `json:"orders" yaml:"orders"`
}

// Line превращает товар в позицию корзины с заданным количеством.
func (p Product) Line(qty int) CartLine {
	return CartLine{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Weight:   p.Weight,
		Image:    p.Image,
		Category: p.Category,
		Quantity: qty,
	}
}
