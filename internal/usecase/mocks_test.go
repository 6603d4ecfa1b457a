package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"storefront/internal/catalog"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fixedID string

func (f fixedID) NewID() string { return string(f) }

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	carts     repo.CartRepository
	cartItems repo.CartItemRepository
	guests    repo.GuestSessionRepository
	orders    repo.OrderRepository
	audits    repo.AuditLogRepository
}

func (r *TxReposMock) Carts() repo.CartRepository                 { return r.carts }
func (r *TxReposMock) CartItems() repo.CartItemRepository         { return r.cartItems }
func (r *TxReposMock) GuestSessions() repo.GuestSessionRepository { return r.guests }
func (r *TxReposMock) Orders() repo.OrderRepository               { return r.orders }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository         { return r.audits }

// =====================
// Repository mocks
// =====================

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByOAuthSubject(ctx context.Context, subject string) (*model.User, error) {
	panic("not used in usecase tests")
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	panic("not used in usecase tests")
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) error {
	panic("not used in usecase tests")
}

type GuestRepoMock struct{ mock.Mock }

func (m *GuestRepoMock) Create(ctx context.Context, s *model.GuestSession) error {
	return m.Called(ctx, s).Error(0)
}

func (m *GuestRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (*model.GuestSession, error) {
	args := m.Called(ctx, tokenHash)
	s, _ := args.Get(0).(*model.GuestSession)
	return s, args.Error(1)
}

func (m *GuestRepoMock) DeleteByID(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *GuestRepoMock) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateID(ctx context.Context, owner model.Identity) (int64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CartRepoMock) FindByOwner(ctx context.Context, owner model.Identity) (model.Cart, error) {
	args := m.Called(ctx, owner)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) Reassign(ctx context.Context, cartID int64, userID int64) error {
	return m.Called(ctx, cartID, userID).Error(0)
}

func (m *CartRepoMock) Delete(ctx context.Context, cartID int64) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *CartRepoMock) Clear(ctx context.Context, cartID int64) error {
	return m.Called(ctx, cartID).Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) AddQuantity(ctx context.Context, cartID int64, variantID string, qty int64) error {
	return m.Called(ctx, cartID, variantID, qty).Error(0)
}

func (m *CartItemRepoMock) SetQuantity(ctx context.Context, cartID int64, variantID string, qty int64) error {
	return m.Called(ctx, cartID, variantID, qty).Error(0)
}

func (m *CartItemRepoMock) DeleteItem(ctx context.Context, cartID int64, variantID string) error {
	return m.Called(ctx, cartID, variantID).Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, plan catalog.Plan) ([]model.Product, int64, error) {
	args := m.Called(ctx, plan)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindVariants(ctx context.Context, variantIDs []string) ([]model.VariantDetail, error) {
	args := m.Called(ctx, variantIDs)
	d, _ := args.Get(0).([]model.VariantDetail)
	return d, args.Error(1)
}

func (m *ProductRepoMock) ListFacets(ctx context.Context) (model.Facets, error) {
	args := m.Called(ctx)
	f, _ := args.Get(0).(model.Facets)
	return f, args.Error(1)
}

type FacetCacheMock struct{ mock.Mock }

func (m *FacetCacheMock) Get(ctx context.Context) (model.Facets, bool, error) {
	args := m.Called(ctx)
	f, _ := args.Get(0).(model.Facets)
	return f, args.Bool(1), args.Error(2)
}

func (m *FacetCacheMock) Set(ctx context.Context, f model.Facets) error {
	return m.Called(ctx, f).Error(0)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	order.ID = 77
	return args.Error(0)
}

func (m *OrderRepoMock) FindByProviderSessionID(ctx context.Context, sessionID string) (model.Order, error) {
	args := m.Called(ctx, sessionID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	o, _ := args.Get(0).([]model.Order)
	return o, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) MarkPaid(ctx context.Context, orderID int64, paidAt time.Time) error {
	return m.Called(ctx, orderID, paidAt).Error(0)
}

func (m *OrderRepoMock) ReassignGuest(ctx context.Context, guestID string, userID int64) error {
	return m.Called(ctx, guestID, userID).Error(0)
}

func (m *OrderRepoMock) MoveCart(ctx context.Context, fromCartID, toCartID int64) error {
	return m.Called(ctx, fromCartID, toCartID).Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

// =====================
// その他
// =====================

type ParserMock struct{ mock.Mock }

func (m *ParserMock) Parse(raw string) (AccessClaims, error) {
	args := m.Called(raw)
	c, _ := args.Get(0).(AccessClaims)
	return c, args.Error(1)
}

type ProviderMock struct{ mock.Mock }

func (m *ProviderMock) CreateSession(ctx context.Context, in CheckoutSessionInput) (CheckoutSession, error) {
	args := m.Called(ctx, in)
	s, _ := args.Get(0).(CheckoutSession)
	return s, args.Error(1)
}

func (m *ProviderMock) SessionPaid(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func httpStatus(err error) int {
	if he, ok := AsHTTPError(err); ok {
		return he.Status
	}
	return 0
}
