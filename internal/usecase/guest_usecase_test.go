package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const guestTTL = 30 * 24 * time.Hour

type guestFixture struct {
	guests *GuestRepoMock
	carts  *CartRepoMock
	items  *CartItemRepoMock
	orders *OrderRepoMock
	audits *AuditRepoMock
	tx     *TxManagerMock
	uc     *GuestUsecase
}

func newGuestFixture() guestFixture {
	f := guestFixture{
		guests: new(GuestRepoMock),
		carts:  new(CartRepoMock),
		items:  new(CartItemRepoMock),
		orders: new(OrderRepoMock),
		audits: new(AuditRepoMock),
	}
	f.tx = &TxManagerMock{Repos: &TxReposMock{
		carts:     f.carts,
		cartItems: f.items,
		guests:    f.guests,
		orders:    f.orders,
		audits:    f.audits,
	}}
	f.tx.On("WithinTx", mock.Anything).Return()
	f.uc = NewGuestUsecase(f.guests, f.tx, fixedID("g-new"), fixedClock{testNow}, guestTTL, zap.NewNop())
	return f
}

func TestGuestEnsure_CreatesSession(t *testing.T) {
	f := newGuestFixture()
	f.guests.On("Create", mock.Anything, mock.MatchedBy(func(s *model.GuestSession) bool {
		return s.ID == "g-new" && s.TokenHash != "" && s.ExpiresAt.Equal(testNow.Add(guestTTL))
	})).Return(nil)

	out, err := f.uc.Ensure(context.Background(), model.Identity{}, "")
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, "guest", out.Kind)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, testNow.Add(guestTTL), out.ExpiresAt)
}

func TestGuestEnsure_Idempotent(t *testing.T) {
	f := newGuestFixture()
	f.guests.On("FindByTokenHash", mock.Anything, HashToken("plain")).
		Return(&model.GuestSession{ID: "g-1", ExpiresAt: testNow.Add(time.Hour)}, nil)

	out, err := f.uc.Ensure(context.Background(), model.GuestIdentity("g-1"), "plain")
	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, "plain", out.Token)
	f.guests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGuestEnsure_UserNeedsNoGuest(t *testing.T) {
	f := newGuestFixture()

	out, err := f.uc.Ensure(context.Background(), model.UserIdentity(1, model.RoleUser), "")
	require.NoError(t, err)
	assert.Equal(t, "user", out.Kind)
	assert.Empty(t, out.Token)
	f.guests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGuestConvert_ReassignsWhenUserHasNoCart(t *testing.T) {
	f := newGuestFixture()
	guest := model.GuestIdentity("g-1")
	user := model.UserIdentity(9, model.RoleUser)

	f.guests.On("FindByTokenHash", mock.Anything, HashToken("plain")).
		Return(&model.GuestSession{ID: "g-1", ExpiresAt: testNow.Add(time.Hour)}, nil)
	f.carts.On("FindByOwner", mock.Anything, guest).Return(model.Cart{ID: 3}, nil)
	f.carts.On("FindByOwner", mock.Anything, user).Return(nil, repo.ErrNotFound)
	f.carts.On("Reassign", mock.Anything, int64(3), int64(9)).Return(nil)
	f.orders.On("ReassignGuest", mock.Anything, "g-1", int64(9)).Return(nil)
	f.guests.On("DeleteByID", mock.Anything, "g-1").Return(nil)
	f.audits.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionConvertGuest && l.ActorUserID == 9 && l.ResourceID == 3
	})).Return(nil)

	out, err := f.uc.Convert(context.Background(), "plain", 9)
	require.NoError(t, err)
	assert.Equal(t, ConvertGuestOutput{Converted: true, CartID: 3}, out)
	f.carts.AssertExpectations(t)
	f.guests.AssertExpectations(t)
}

func TestGuestConvert_MergesIntoUserCart(t *testing.T) {
	f := newGuestFixture()
	guest := model.GuestIdentity("g-1")
	user := model.UserIdentity(9, model.RoleUser)

	f.guests.On("FindByTokenHash", mock.Anything, HashToken("plain")).
		Return(&model.GuestSession{ID: "g-1", ExpiresAt: testNow.Add(time.Hour)}, nil)
	f.carts.On("FindByOwner", mock.Anything, guest).Return(model.Cart{ID: 3}, nil)
	f.carts.On("FindByOwner", mock.Anything, user).Return(model.Cart{ID: 5}, nil)
	f.items.On("ListByCartID", mock.Anything, int64(3)).Return([]model.CartItem{
		{VariantID: "var1", Quantity: 2},
		{VariantID: "var2", Quantity: 1},
	}, nil)
	f.items.On("AddQuantity", mock.Anything, int64(5), "var1", int64(2)).Return(nil)
	f.items.On("AddQuantity", mock.Anything, int64(5), "var2", int64(1)).Return(nil)
	f.orders.On("MoveCart", mock.Anything, int64(3), int64(5)).Return(nil)
	f.carts.On("Delete", mock.Anything, int64(3)).Return(nil)
	f.orders.On("ReassignGuest", mock.Anything, "g-1", int64(9)).Return(nil)
	f.guests.On("DeleteByID", mock.Anything, "g-1").Return(nil)
	f.audits.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := f.uc.Convert(context.Background(), "plain", 9)
	require.NoError(t, err)
	assert.Equal(t, ConvertGuestOutput{Converted: true, Merged: true, CartID: 5}, out)
	f.items.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.carts.AssertNotCalled(t, "Reassign", mock.Anything, mock.Anything, mock.Anything)
}

func TestGuestConvert_UnknownTokenIsNoop(t *testing.T) {
	f := newGuestFixture()
	f.guests.On("FindByTokenHash", mock.Anything, HashToken("stale")).Return(nil, repo.ErrNotFound)

	out, err := f.uc.Convert(context.Background(), "stale", 9)
	require.NoError(t, err)
	assert.False(t, out.Converted)
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestGuestPurgeExpired(t *testing.T) {
	f := newGuestFixture()
	f.guests.On("DeleteExpired", mock.Anything, testNow).Return(int64(4), nil)

	n, err := f.uc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
