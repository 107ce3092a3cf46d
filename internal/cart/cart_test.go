package cart

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/pricing"
)

func newTestCart(t *testing.T) *Cart {
	t.Helper()
	provider, err := catalog.Default()
	require.NoError(t, err)

	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	return New(provider, Options{Logger: logger.WithField("component", "cart-test")})
}

func addCombo(t *testing.T, c *Cart) {
	t.Helper()
	for _, id := range []string{"chicken", "putharekulu", "mango"} {
		require.NoError(t, c.AddOne(id))
	}
}

func TestAddOneAndRemoveOne(t *testing.T) {
	c := newTestCart(t)

	require.NoError(t, c.AddOne("mango"))
	require.NoError(t, c.AddOne("mango"))
	snap := c.Snapshot()
	require.Len(t, snap.Lines, 1)
	require.Equal(t, 2, snap.Lines[0].Quantity)
	require.EqualValues(t, 498, snap.Quote.Subtotal)
	require.EqualValues(t, 40, snap.Quote.Delivery)

	c.RemoveOne("mango")
	c.RemoveOne("mango")
	snap = c.Snapshot()
	require.Empty(t, snap.Lines)
	require.Zero(t, snap.Quote.Delivery)

	// отсутствующий товар игнорируется
	c.RemoveOne("mango")
	require.Empty(t, c.Snapshot().Lines)
}

func TestAddOneUnknownProduct(t *testing.T) {
	c := newTestCart(t)
	err := c.AddOne("pizza")
	require.True(t, errors.Is(err, domain.ErrProductNotFound))
	require.Empty(t, c.Snapshot().Lines)
}

func TestSetQuantity(t *testing.T) {
	c := newTestCart(t)
	require.NoError(t, c.AddOne("gongura"))

	c.SetQuantity("gongura", 5)
	require.Equal(t, 5, c.Snapshot().Lines[0].Quantity)

	c.SetQuantity("tomato", 3)
	require.Len(t, c.Snapshot().Lines, 1)

	c.SetQuantity("gongura", 0)
	require.Empty(t, c.Snapshot().Lines)
}

func TestBuyNowOverwritesQuantityAndOpensCart(t *testing.T) {
	c := newTestCart(t)
	require.NoError(t, c.AddOne("lemon"))
	require.NoError(t, c.AddOne("lemon"))

	require.NoError(t, c.BuyNow("lemon", 1))
	snap := c.Snapshot()
	require.Equal(t, 1, snap.Lines[0].Quantity)
	require.True(t, snap.Open)

	require.True(t, errors.Is(c.BuyNow("lemon", 0), domain.ErrQuantityInvalid))
}

func TestComboAutoAppliesAndRemovesCoupon(t *testing.T) {
	c := newTestCart(t)
	addCombo(t, c)

	snap := c.Snapshot()
	require.True(t, snap.HasCombo)
	require.Equal(t, domain.CouponState{Code: pricing.BestsellersCode, Percent: 15}, snap.Coupon)
	require.EqualValues(t, 1147, snap.Quote.Subtotal)
	require.EqualValues(t, 172, snap.Quote.Discount)
	require.EqualValues(t, 1015, snap.Quote.Total)

	c.RemoveOne("mango")
	snap = c.Snapshot()
	require.False(t, snap.HasCombo)
	require.False(t, snap.Coupon.Applied())
	require.Zero(t, snap.Quote.Discount)
	require.EqualValues(t, 938, snap.Quote.Total)
}

func TestApplyCoupon(t *testing.T) {
	c := newTestCart(t)
	require.NoError(t, c.AddOne("chicken"))

	require.False(t, c.ApplyCoupon("bestsellers"))
	require.False(t, c.Snapshot().Coupon.Applied())

	addCombo(t, c)
	c.RemoveCoupon()
	require.False(t, c.Snapshot().Coupon.Applied())

	require.False(t, c.ApplyCoupon("WELCOME"))
	require.True(t, c.ApplyCoupon(" bestsellers "))
	require.Equal(t, 15, c.Snapshot().Coupon.Percent)
}

func TestApplyCouponTwiceMatchesOnce(t *testing.T) {
	c := newTestCart(t)
	addCombo(t, c)
	c.RemoveCoupon()

	require.True(t, c.ApplyCoupon(pricing.BestsellersCode))
	once := c.Snapshot()

	require.True(t, c.ApplyCoupon(pricing.BestsellersCode))
	twice := c.Snapshot()

	require.Equal(t, once, twice)
	require.Equal(t, domain.CouponState{Code: pricing.BestsellersCode, Percent: 15}, twice.Coupon)
	require.EqualValues(t, 172, twice.Quote.Discount)
}

func TestRemovedCouponReappliesOnNextChangeWhileComboHolds(t *testing.T) {
	c := newTestCart(t)
	addCombo(t, c)
	c.RemoveCoupon()

	require.NoError(t, c.AddOne("gongura"))
	require.True(t, c.Snapshot().Coupon.Applied())
}

func TestClearResetsEverything(t *testing.T) {
	c := newTestCart(t)
	addCombo(t, c)
	c.SetAddress(domain.Address{Name: "Ravi", Pincode: "533101"})

	c.Clear()
	snap := c.Snapshot()
	require.Empty(t, snap.Lines)
	require.False(t, snap.Coupon.Applied())
	require.Nil(t, snap.Address)
	require.Equal(t, pricing.Quote{}, snap.Quote)
}

func TestSetAddressDerivesServiceability(t *testing.T) {
	c := newTestCart(t)

	c.SetAddress(domain.Address{Name: "Ravi", Pincode: "5331"})
	require.Nil(t, c.Snapshot().Address.IsServiceable)

	c.SetAddress(domain.Address{Name: "Ravi", Pincode: "533104", IsServiceable: boolPtr(false)})
	require.True(t, *c.Snapshot().Address.IsServiceable)

	c.SetAddress(domain.Address{Name: "Ravi", Pincode: "500001"})
	require.False(t, *c.Snapshot().Address.IsServiceable)
}

func TestSyncDefaultAddressRespectsExplicitChoice(t *testing.T) {
	c := newTestCart(t)
	profileDefault := &domain.Address{Type: domain.AddressWork, Name: "Office", Pincode: "533223"}

	require.True(t, c.SyncDefaultAddress(profileDefault))
	require.Equal(t, "Office", c.Snapshot().Address.Name)

	c.SetAddress(domain.Address{Name: "Home", Pincode: "533101"})
	require.False(t, c.SyncDefaultAddress(profileDefault))
	require.Equal(t, "Home", c.Snapshot().Address.Name)
}

func TestSnapshotIsIsolated(t *testing.T) {
	c := newTestCart(t)
	require.NoError(t, c.AddOne("mango"))

	snap := c.Snapshot()
	snap.Lines[0].Quantity = 100
	require.Equal(t, 1, c.Snapshot().Lines[0].Quantity)
}

func TestCheckoutClearsOnlyOnSuccess(t *testing.T) {
	c := newTestCart(t)
	require.NoError(t, c.AddOne("mango"))

	failure := errors.New("store down")
	err := c.Checkout(func(Snapshot) error { return failure })
	require.ErrorIs(t, err, failure)
	require.Len(t, c.Snapshot().Lines, 1)

	var placed Snapshot
	require.NoError(t, c.Checkout(func(s Snapshot) error { placed = s; return nil }))
	require.Len(t, placed.Lines, 1)
	require.Empty(t, c.Snapshot().Lines)
}

// Случайные последовательности операций: купон применён ровно тогда, когда есть комбо,
// а итог всегда сходится.
func TestCouponInvariantHoldsUnderRandomMutations(t *testing.T) {
	c := newTestCart(t)
	rng := rand.New(rand.NewSource(7))
	ids := []string{"chicken", "putharekulu", "mango", "gongura", "pindi"}

	for i := 0; i < 1000; i++ {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(5) {
		case 0, 1:
			require.NoError(t, c.AddOne(id))
		case 2:
			c.RemoveOne(id)
		case 3:
			c.SetQuantity(id, rng.Intn(4))
		case 4:
			require.NoError(t, c.BuyNow(id, 1+rng.Intn(3)))
		}

		snap := c.Snapshot()
		require.Equal(t, snap.HasCombo, snap.Coupon.Applied(), "step %d", i)
		require.True(t, snap.Coupon.Valid())
		q := snap.Quote
		require.Equal(t, q.Subtotal+q.Delivery-q.Discount, q.Total)
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	c := newTestCart(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.AddOne("mango")
		}()
	}
	wg.Wait()

	require.Equal(t, 50, c.Snapshot().Lines[0].Quantity)
}

func boolPtr(v bool) *bool { return &v }
