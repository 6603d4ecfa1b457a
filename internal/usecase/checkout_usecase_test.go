package usecase

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type checkoutFixture struct {
	carts    *CartRepoMock
	items    *CartItemRepoMock
	products *ProductRepoMock
	orders   *OrderRepoMock
	users    *UserRepoMock
	audits   *AuditRepoMock
	tx       *TxManagerMock
	provider *ProviderMock
	uc       *CheckoutUsecase
}

func newCheckoutFixture() checkoutFixture {
	f := checkoutFixture{
		carts:    new(CartRepoMock),
		items:    new(CartItemRepoMock),
		products: new(ProductRepoMock),
		orders:   new(OrderRepoMock),
		users:    new(UserRepoMock),
		audits:   new(AuditRepoMock),
		provider: new(ProviderMock),
	}
	f.tx = &TxManagerMock{Repos: &TxReposMock{
		carts:     f.carts,
		cartItems: f.items,
		orders:    f.orders,
		audits:    f.audits,
	}}
	f.tx.On("WithinTx", mock.Anything).Return()
	f.uc = NewCheckoutUsecase(f.carts, f.items, f.products, f.orders, f.users, f.tx, f.provider,
		fixedClock{testNow}, "jpy", "https://shop.example/", zap.NewNop())
	return f
}

func (f checkoutFixture) withCart(id model.Identity) {
	f.carts.On("FindByOwner", mock.Anything, id).Return(model.Cart{ID: 3}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{VariantID: "var1", Quantity: 2},
	}, nil)
	f.products.On("FindVariants", mock.Anything, []string{"var1"}).
		Return([]model.VariantDetail{variant("var1", 2500)}, nil)
}

func TestCheckoutStart(t *testing.T) {
	f := newCheckoutFixture()
	user := model.UserIdentity(9, model.RoleUser)
	f.withCart(user)
	f.users.On("FindByID", mock.Anything, int64(9)).Return(&model.User{ID: 9, Email: "a@example.com"}, nil)
	f.provider.On("CreateSession", mock.Anything, mock.MatchedBy(func(in CheckoutSessionInput) bool {
		return len(in.Lines) == 1 &&
			in.Lines[0].UnitAmount == 2500 &&
			in.Lines[0].Quantity == 2 &&
			in.Currency == "jpy" &&
			in.CustomerEmail == "a@example.com" &&
			in.CancelURL == "https://shop.example/cart"
	})).Return(CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil)
	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
		return o.ProviderSessionID == "cs_1" && o.TotalPrice == 5000 && o.Status == model.OrderStatusPending &&
			o.UserID != nil && *o.UserID == 9
	})).Return(nil)
	f.audits.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionStartCheckout && l.ResourceID == 77
	})).Return(nil)

	out, err := f.uc.Start(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_1", out.URL)
	f.orders.AssertExpectations(t)
	f.audits.AssertExpectations(t)
}

func TestCheckoutStart_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()
	guest := model.GuestIdentity("g-1")
	f.carts.On("FindByOwner", mock.Anything, guest).Return(nil, repo.ErrNotFound)

	_, err := f.uc.Start(context.Background(), guest)
	assert.Equal(t, http.StatusBadRequest, httpStatus(err))
	f.provider.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestCheckoutStart_ProviderUnavailable(t *testing.T) {
	f := newCheckoutFixture()
	guest := model.GuestIdentity("g-1")
	f.withCart(guest)
	f.provider.On("CreateSession", mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(ErrProviderUnavailable, "breaker open"))

	_, err := f.uc.Start(context.Background(), guest)
	assert.Equal(t, http.StatusServiceUnavailable, httpStatus(err))
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func pendingOrder(guestID string) model.Order {
	gid := guestID
	return model.Order{
		ID:                77,
		CartID:            3,
		GuestSessionID:    &gid,
		Status:            model.OrderStatusPending,
		ProviderSessionID: "cs_1",
		Items: []model.OrderItem{
			{VariantID: "var1", ProductNameSnapshot: "Tee", UnitPriceSnapshot: 2500, Quantity: 2},
		},
		TotalPrice: 5000,
	}
}

func TestCheckoutComplete_Paid(t *testing.T) {
	f := newCheckoutFixture()
	guest := model.GuestIdentity("g-1")
	f.orders.On("FindByProviderSessionID", mock.Anything, "cs_1").Return(pendingOrder("g-1"), nil)
	f.provider.On("SessionPaid", mock.Anything, "cs_1").Return(true, nil)
	f.orders.On("MarkPaid", mock.Anything, int64(77), testNow).Return(nil)
	f.items.On("DeleteItem", mock.Anything, int64(3), "var1").Return(nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := f.uc.Complete(context.Background(), guest, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "PAID", out.Status)
	require.NotNil(t, out.PaidAt)
	f.items.AssertExpectations(t)
}

func TestCheckoutComplete_NotPaidYet(t *testing.T) {
	f := newCheckoutFixture()
	guest := model.GuestIdentity("g-1")
	f.orders.On("FindByProviderSessionID", mock.Anything, "cs_1").Return(pendingOrder("g-1"), nil)
	f.provider.On("SessionPaid", mock.Anything, "cs_1").Return(false, nil)

	out, err := f.uc.Complete(context.Background(), guest, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "PENDING", out.Status)
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestCheckoutComplete_OtherOwner(t *testing.T) {
	f := newCheckoutFixture()
	f.orders.On("FindByProviderSessionID", mock.Anything, "cs_1").Return(pendingOrder("g-1"), nil)

	_, err := f.uc.Complete(context.Background(), model.GuestIdentity("g-2"), "cs_1")
	assert.Equal(t, http.StatusNotFound, httpStatus(err))
	f.provider.AssertNotCalled(t, "SessionPaid", mock.Anything, mock.Anything)
}
