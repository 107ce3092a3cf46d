package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/account"
	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

type stubPublisher struct {
	mu     sync.Mutex
	events []domain.TimelineEvent
	err    error
}

func (p *stubPublisher) PublishOrderEvent(_ context.Context, _ string, event domain.TimelineEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *stubPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type failingStore struct {
	domain.SnapshotStore
	fail bool
}

func (s *failingStore) Save(ctx context.Context, userID string, snap domain.UserSnapshot) error {
	if s.fail {
		return errors.New("store offline")
	}
	return s.SnapshotStore.Save(ctx, userID, snap)
}

type fixture struct {
	svc       *Service
	cart      *cart.Cart
	account   *account.Account
	gateway   *payment.MockGateway
	publisher *stubPublisher
	timeline  domain.TimelineRepository
	store     *failingStore
}

func quietLogger(component string) *log.Entry {
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)
	return logger.WithField("component", component)
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()

	provider, err := catalog.Default()
	require.NoError(t, err)

	clock := func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }
	store := &failingStore{SnapshotStore: memory.NewSnapshotStore()}
	acc, err := account.Open(context.Background(), "user-1", store, account.Options{
		Retry:  account.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, BackoffFactor: 1},
		Logger: quietLogger("account-test"),
		Now:    clock,
	})
	require.NoError(t, err)

	f := &fixture{
		cart:      cart.New(provider, cart.Options{Logger: quietLogger("cart-test")}),
		account:   acc,
		gateway:   payment.NewMockGateway(),
		publisher: &stubPublisher{},
		timeline:  memory.NewTimelineRepository(),
		store:     store,
	}
	seq := 0
	o := Options{
		Gateway:   f.gateway,
		Timeline:  f.timeline,
		Publisher: f.publisher,
		Logger:    quietLogger("orders-test"),
		Now:       clock,
		NewOrderID: func() string {
			seq++
			return fmt.Sprintf("ORD-%03d", seq)
		},
	}
	for _, fn := range opts {
		fn(&o)
	}
	f.svc = NewService(o)
	return f
}

func (f *fixture) addCombo(t *testing.T) {
	t.Helper()
	for _, id := range []string{"chicken", "putharekulu", "mango"} {
		require.NoError(t, f.cart.AddOne(id))
	}
}

func (f *fixture) place(t *testing.T, method string) domain.Order {
	t.Helper()
	require.NoError(t, f.cart.AddOne("mango"))
	order, err := f.svc.Checkout(context.Background(), f.cart, f.account, method)
	require.NoError(t, err)
	return order
}

func (f *fixture) forceStatus(t *testing.T, id string, status domain.OrderStatus) {
	t.Helper()
	_, err := f.account.PatchOrder(context.Background(), id, domain.OrderPatch{Status: &status})
	require.NoError(t, err)
}

func kakinada() domain.Address {
	return domain.Address{
		Type:     domain.AddressHome,
		Name:     "Ravi",
		Phone:    "9876543210",
		House:    "12-4 Main Road",
		Pincode:  "533101",
		Mandal:   "Kakinada Urban",
		District: "Kakinada",
		State:    "Andhra Pradesh",
	}
}

func TestCheckout_ComboCardPayment(t *testing.T) {
	f := newFixture(t)
	f.addCombo(t)
	f.cart.SetAddress(kakinada())

	order, err := f.svc.Checkout(context.Background(), f.cart, f.account, "Card")
	require.NoError(t, err)

	require.Equal(t, "ORD-001", order.ID)
	require.Equal(t, domain.OrderStatusPlaced, order.Status)
	require.Equal(t, domain.Pricing{
		Subtotal:      1147,
		Delivery:      40,
		Discount:      172,
		GST:           57,
		Total:         1015,
		CouponCode:    "BESTSELLERS",
		CouponPercent: 15,
	}, order.Pricing)
	require.NotNil(t, order.Coupon)
	require.Equal(t, "BESTSELLERS", *order.Coupon)
	for _, item := range order.Items {
		require.NotEmpty(t, item.Category, "item %s", item.ID)
	}
	require.Equal(t, domain.PaymentStatusPaid, order.Payment.Status)
	require.NotNil(t, order.Payment.GatewayRef)
	require.Equal(t, "533101", order.AddressSnapshot.Pincode)
	require.Equal(t, int64(1015), f.gateway.Requests[0].Amount)

	snap := f.cart.Snapshot()
	require.Empty(t, snap.Lines)
	require.False(t, snap.Coupon.Applied())
	require.Nil(t, snap.Address)

	stored, err := f.account.Order(order.ID)
	require.NoError(t, err)
	require.Equal(t, order.Pricing, stored.Pricing)

	// первый адрес оформления сохраняется в профиль
	def, ok := f.account.DefaultAddress()
	require.True(t, ok)
	require.Equal(t, "Ravi", def.Name)

	events, err := f.svc.Timeline(order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.TimelineOrderPlaced, events[0].Type)
	require.Equal(t, []string{domain.TimelineOrderPlaced}, f.publisher.types())
}

func TestCheckout_CashOnDeliveryPending(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, "cod")

	require.Equal(t, domain.PaymentStatusPending, order.Payment.Status)
	require.Nil(t, order.Payment.GatewayRef)
	require.Nil(t, order.AddressSnapshot)
	require.Zero(t, f.gateway.CallCount())
	require.Equal(t, int64(289), order.Pricing.Total)
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), f.cart, f.account, "cod")
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	require.Equal(t, domain.ReasonCartEmpty, rej.Reason)
	require.Empty(t, f.account.Orders(false))
}

func TestCheckout_RequiresPaymentMethod(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.AddOne("mango"))

	_, err := f.svc.Checkout(context.Background(), f.cart, f.account, "  ")
	require.ErrorIs(t, err, domain.ErrPaymentMethodRequired)
	require.Len(t, f.cart.Snapshot().Lines, 1)
}

func TestCheckout_AddressPolicy(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.RequireAddress = true })
	require.NoError(t, f.cart.AddOne("mango"))

	_, err := f.svc.Checkout(context.Background(), f.cart, f.account, "cod")
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	require.Equal(t, domain.ReasonAddressRequired, rej.Reason)
	require.Len(t, f.cart.Snapshot().Lines, 1)

	f.cart.SetAddress(kakinada())
	_, err = f.svc.Checkout(context.Background(), f.cart, f.account, "cod")
	require.NoError(t, err)
}

func TestCheckout_GatewayFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	f.gateway.Err = errors.New("gateway timeout")
	require.NoError(t, f.cart.AddOne("mango"))

	_, err := f.svc.Checkout(context.Background(), f.cart, f.account, "upi")
	require.ErrorIs(t, err, domain.ErrPaymentFailed)
	require.Len(t, f.cart.Snapshot().Lines, 1)
	require.Empty(t, f.account.Orders(false))
}

func TestCheckout_PersistenceFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cart.AddOne("mango"))
	f.store.fail = true

	_, err := f.svc.Checkout(context.Background(), f.cart, f.account, "cod")
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.Len(t, f.cart.Snapshot().Lines, 1)
	require.Empty(t, f.account.Orders(false))

	f.store.fail = false
	_, err = f.svc.Checkout(context.Background(), f.cart, f.account, "cod")
	require.NoError(t, err)
	require.Empty(t, f.cart.Snapshot().Lines)
}

func TestOrderItemsAndPricingAreFrozen(t *testing.T) {
	f := newFixture(t)
	f.addCombo(t)
	order, err := f.svc.Checkout(context.Background(), f.cart, f.account, "cod")
	require.NoError(t, err)

	cfg := spew.ConfigState{Indent: " ", SortKeys: true, DisablePointerAddresses: true}
	stored, err := f.account.Order(order.ID)
	require.NoError(t, err)
	items := cfg.Sdump(stored.Items)
	prices := cfg.Sdump(stored.Pricing)

	// дальнейшие действия с корзиной и заказом не трогают снимок
	require.NoError(t, f.cart.AddOne("mango"))
	require.NoError(t, f.cart.BuyNow("chicken", 7))
	f.cart.RemoveOne("mango")
	_, err = f.svc.Cancel(context.Background(), f.account, order.ID)
	require.NoError(t, err)

	again, err := f.account.Order(order.ID)
	require.NoError(t, err)
	require.Equal(t, items, cfg.Sdump(again.Items))
	require.Equal(t, prices, cfg.Sdump(again.Pricing))
}

func TestRequestRefund(t *testing.T) {
	tests := []struct {
		name     string
		status   domain.OrderStatus
		wantErr  bool
		wantNext domain.OrderStatus
	}{
		{name: "delivered", status: domain.OrderStatusDelivered, wantNext: domain.OrderStatusCancelled},
		{name: "out for delivery", status: domain.OrderStatusOutForDelivery, wantErr: true, wantNext: domain.OrderStatusOutForDelivery},
		{name: "placed", status: domain.OrderStatusPlaced, wantErr: true, wantNext: domain.OrderStatusPlaced},
		{name: "cancelled", status: domain.OrderStatusCancelled, wantErr: true, wantNext: domain.OrderStatusCancelled},
		{name: "exchanged", status: domain.OrderStatusExchanged, wantErr: true, wantNext: domain.OrderStatusExchanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			order := f.place(t, "upi")
			f.forceStatus(t, order.ID, tt.status)

			res, err := f.svc.RequestRefund(context.Background(), f.account, order.ID)
			stored, getErr := f.account.Order(order.ID)
			require.NoError(t, getErr)
			require.Equal(t, tt.wantNext, stored.Status)

			if tt.wantErr {
				rej, ok := domain.AsRejection(err)
				require.True(t, ok)
				require.Equal(t, domain.MessageActionNotAllowed, rej.Message)
				require.Equal(t, domain.PaymentStatusPaid, stored.Payment.Status)
				return
			}
			require.NoError(t, err)
			require.Equal(t, domain.MessageRefundRequested, res.Message)
			require.Equal(t, domain.PaymentStatusRefundRequested, stored.Payment.Status)
			require.Equal(t, "upi", stored.Payment.Method)
			require.Equal(t, NoteRefund, stored.Notes)
		})
	}
}

func TestRequestExchange(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, "cod")

	_, err := f.svc.RequestExchange(context.Background(), f.account, order.ID)
	require.True(t, domain.IsRejection(err))

	f.forceStatus(t, order.ID, domain.OrderStatusDelivered)
	res, err := f.svc.RequestExchange(context.Background(), f.account, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusExchangeRequested, res.Order.Status)
	require.Equal(t, domain.MessageExchangeRequest, res.Message)

	// повторный запрос невозможен
	_, err = f.svc.RequestExchange(context.Background(), f.account, order.ID)
	require.True(t, domain.IsRejection(err))
}

func TestCancel(t *testing.T) {
	t.Run("paid order asks for refund", func(t *testing.T) {
		f := newFixture(t)
		order := f.place(t, "card")
		f.forceStatus(t, order.ID, domain.OrderStatusPacked)

		res, err := f.svc.Cancel(context.Background(), f.account, order.ID)
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusCancelled, res.Order.Status)
		require.Equal(t, domain.PaymentStatusRefundRequested, res.Order.Payment.Status)
		require.Equal(t, NoteCancel, res.Order.Notes)
	})

	t.Run("cod order keeps pending payment", func(t *testing.T) {
		f := newFixture(t)
		order := f.place(t, "cod")

		res, err := f.svc.Cancel(context.Background(), f.account, order.ID)
		require.NoError(t, err)
		require.Equal(t, domain.MessageCancelled, res.Message)
		require.Equal(t, domain.PaymentStatusPending, res.Order.Payment.Status)
	})

	t.Run("out for delivery rejected", func(t *testing.T) {
		f := newFixture(t)
		order := f.place(t, "cod")
		f.forceStatus(t, order.ID, domain.OrderStatusOutForDelivery)

		_, err := f.svc.Cancel(context.Background(), f.account, order.ID)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		require.Equal(t, domain.MessageCancelNotAllowed, rej.Message)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Cancel(context.Background(), f.account, "ORD-missing")
		require.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestPayNow(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, "cod")

	res, err := f.svc.PayNow(context.Background(), f.account, order.ID, "UPI")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusConfirmed, res.Order.Status)
	require.Equal(t, domain.PaymentStatusPaid, res.Order.Payment.Status)
	require.Equal(t, "TXN-TEST", *res.Order.Payment.GatewayRef)

	// CONFIRMED ведёт себя как PLACED
	require.True(t, f.svc.Permissions(res.Order).CanCancel)

	_, err = f.svc.PayNow(context.Background(), f.account, order.ID, "upi")
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	require.Equal(t, domain.ReasonAlreadyPaid, rej.Reason)
	require.Equal(t, 1, f.gateway.CallCount())

	types := f.publisher.types()
	require.Contains(t, types, domain.TimelineStatusChanged)
	require.Contains(t, types, domain.TimelinePaymentUpdated)
}

func TestPayNow_Guards(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, "cod")

	_, err := f.svc.PayNow(context.Background(), f.account, order.ID, "cod")
	require.ErrorIs(t, err, domain.ErrPaymentMethodRequired)

	f.forceStatus(t, order.ID, domain.OrderStatusCancelled)
	_, err = f.svc.PayNow(context.Background(), f.account, order.ID, "card")
	require.True(t, domain.IsRejection(err))
	require.Zero(t, f.gateway.CallCount())

	f.gateway.Err = errors.New("declined")
	other := f.place(t, "cod")
	_, err = f.svc.PayNow(context.Background(), f.account, other.ID, "card")
	require.ErrorIs(t, err, domain.ErrPaymentFailed)
	stored, _ := f.account.Order(other.ID)
	require.Equal(t, domain.PaymentStatusPending, stored.Payment.Status)
	require.Equal(t, domain.OrderStatusPlaced, stored.Status)
}

func TestPayNow_DeliveredCodOrderKeepsStatus(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, "cod")
	f.forceStatus(t, order.ID, domain.OrderStatusDelivered)

	res, err := f.svc.PayNow(context.Background(), f.account, order.ID, "card")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusDelivered, res.Order.Status)
	require.True(t, res.Order.Paid())
}

func TestUpdateAddress(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, "cod")

	_, err := f.svc.UpdateAddress(context.Background(), f.account, order.ID)
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	require.Equal(t, domain.ReasonNoDefaultAddress, rej.Reason)

	f.account.UpsertAddress(context.Background(), domain.ProfileAddress{Address: kakinada()})
	res, err := f.svc.UpdateAddress(context.Background(), f.account, order.ID)
	require.NoError(t, err)
	require.Equal(t, "533101", res.Order.AddressSnapshot.Pincode)
	require.Contains(t, f.publisher.types(), domain.TimelineAddressChanged)

	f.forceStatus(t, order.ID, domain.OrderStatusOutForDelivery)
	_, err = f.svc.UpdateAddress(context.Background(), f.account, order.ID)
	rej, ok = domain.AsRejection(err)
	require.True(t, ok)
	require.Equal(t, domain.ReasonAddressLocked, rej.Reason)
}

func TestAdvance_FollowsFulfilmentGraph(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, "cod")
	ctx := context.Background()

	for _, next := range []domain.OrderStatus{
		domain.OrderStatusPacked,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
	} {
		res, err := f.svc.Advance(ctx, f.account, order.ID, next)
		require.NoError(t, err)
		require.Equal(t, next, res.Order.Status)
	}

	_, err := f.svc.Advance(ctx, f.account, order.ID, domain.OrderStatusPacked)
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	require.Equal(t, domain.ReasonInvalidTransition, rej.Reason)

	events, err := f.svc.Timeline(order.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, domain.OrderStatusOutForDelivery, events[3].From)
	require.Equal(t, domain.OrderStatusDelivered, events[3].To)
}

func TestAdvance_StoreCancelOfPaidOrder(t *testing.T) {
	f := newFixture(t)
	order := f.place(t, "card")

	res, err := f.svc.Advance(context.Background(), f.account, order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	require.Equal(t, NoteStoreCancel, res.Order.Notes)
	require.Equal(t, domain.PaymentStatusRefundRequested, res.Order.Payment.Status)
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)

	perms := f.svc.Permissions(domain.Order{Status: domain.OrderStatusDelivered})
	require.True(t, perms.CanRefund)
	require.True(t, perms.CanInvoice)

	paid := domain.Order{
		Status:  domain.OrderStatusPlaced,
		Payment: &domain.PaymentInfo{Method: "upi", Status: domain.PaymentStatusPaid},
	}
	perms = f.svc.Permissions(paid)
	require.True(t, perms.CanCancel)
	require.True(t, perms.CanInvoice)

	perms = f.svc.Permissions(domain.Order{Status: domain.OrderStatusExchangeRequested})
	require.Equal(t, domain.Permissions{}, perms)
}

func TestInvoice(t *testing.T) {
	f := newFixture(t)
	f.addCombo(t)
	f.cart.SetAddress(kakinada())
	order, err := f.svc.Checkout(context.Background(), f.cart, f.account, "card")
	require.NoError(t, err)

	body, err := f.svc.Invoice(order)
	require.NoError(t, err)
	text := string(body)
	require.True(t, strings.HasPrefix(text, "INVOICE "+order.ID))
	require.Contains(t, text, "Total: Rs.1015")
	require.Contains(t, text, "(BESTSELLERS)")
	require.Contains(t, text, "Txn: TXN-TEST")
	require.Contains(t, text, "533101")

	cod := f.place(t, "cod")
	_, err = f.svc.Invoice(cod)
	require.True(t, domain.IsRejection(err))
}

func TestPublisherFailureDoesNotBlockCheckout(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	order := f.place(t, "cod")
	require.NotEmpty(t, order.ID)
	require.Len(t, f.account.Orders(false), 1)
}
