package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)
	require.Len(t, p.Products(), 23)

	mango, err := p.Lookup("mango")
	require.NoError(t, err)
	require.EqualValues(t, 249, mango.Price)
	require.Equal(t, domain.CategoryVeg, mango.Category)

	require.Equal(t, []string{"chicken", "putharekulu", "mango"}, p.Bestsellers())
	require.True(t, p.IsBestseller("putharekulu"))
	require.False(t, p.IsBestseller("gongura"))
}

func TestLookupUnknownProduct(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)

	_, err = p.Lookup("pizza")
	require.True(t, errors.Is(err, domain.ErrProductNotFound))
}

func TestLoadRejectsDuplicates(t *testing.T) {
	doc := `
products:
  - id: a
    name: A
    price: 10
  - id: a
    name: A again
    price: 20
`
	_, err := Load(strings.NewReader(doc), 3)
	require.Error(t, err)
}

func TestBestsellersReturnsCopy(t *testing.T) {
	p, err := New([]domain.Product{{ID: "x", Orders: 1}, {ID: "y", Orders: 2}}, 1)
	require.NoError(t, err)

	got := p.Bestsellers()
	got[0] = "mutated"
	require.Equal(t, []string{"y"}, p.Bestsellers())
}
