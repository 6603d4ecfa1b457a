//go:build integration

package repository

import (
	"context"
	"log"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront/internal/catalog"
	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	"storefront/internal/infra/payment"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("skip integration tests: %v", err)
		return 0
	}
	defer func() {
		if err := testcontainers.TerminateContainer(pg); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	dsn, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("dsn: %v", err)
	}

	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	if err := db.Migrate(testDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	return m.Run()
}

// テストごとに空のテーブルから始める
func resetDB(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.Exec(`TRUNCATE users, refresh_tokens, guest_sessions, brands, categories,
		colors, sizes, products, product_images, variants, carts, cart_items, orders, order_items, audit_logs
		RESTART IDENTITY CASCADE`).Error)
}

func seedGuest(t *testing.T, id, plain string) {
	t.Helper()
	err := NewGuestSessionGormRepository(testDB).Create(context.Background(), &model.GuestSession{
		ID:        id,
		TokenHash: usecase.HashToken(plain),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
}

const guestA = "6f1c2c3e-0000-4000-8000-00000000000a"

func TestCart_GetOrCreateIDIsSingleUnderConcurrency(t *testing.T) {
	resetDB(t)
	seedGuest(t, guestA, "plain-a")
	carts := NewCartGormRepository(testDB)
	owner := model.GuestIdentity(guestA)

	var mu sync.Mutex
	ids := map[int64]struct{}{}
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			id, err := carts.GetOrCreateID(context.Background(), owner)
			if err != nil {
				return err
			}
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, ids, 1)

	var count int64
	require.NoError(t, testDB.Model(&model.Cart{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCart_ConcurrentAddsAccumulate(t *testing.T) {
	resetDB(t)
	seedGuest(t, guestA, "plain-a")
	carts := NewCartGormRepository(testDB)
	ctx := context.Background()

	cartID, err := carts.GetOrCreateID(ctx, model.GuestIdentity(guestA))
	require.NoError(t, err)

	// 2タブから同時に1つずつ
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			return carts.AddQuantity(ctx, cartID, "var1", 1)
		})
	}
	require.NoError(t, g.Wait())

	items, err := carts.ListByCartID(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].Quantity)
}

func TestCart_ItemQuantities(t *testing.T) {
	resetDB(t)
	seedGuest(t, guestA, "plain-a")
	carts := NewCartGormRepository(testDB)
	ctx := context.Background()

	cartID, err := carts.GetOrCreateID(ctx, model.GuestIdentity(guestA))
	require.NoError(t, err)

	require.NoError(t, carts.AddQuantity(ctx, cartID, "var1", 2))
	require.NoError(t, carts.AddQuantity(ctx, cartID, "var1", 3))
	require.NoError(t, carts.SetQuantity(ctx, cartID, "var2", 4))
	require.NoError(t, carts.SetQuantity(ctx, cartID, "var2", 1))

	items, err := carts.ListByCartID(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(5), items[0].Quantity)
	assert.Equal(t, int64(1), items[1].Quantity)

	require.NoError(t, carts.SetQuantity(ctx, cartID, "var1", 0))
	require.NoError(t, carts.DeleteItem(ctx, cartID, "missing"))
	items, err = carts.ListByCartID(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "var2", items[0].VariantID)

	// 消した行に足すと新しい行になる
	require.NoError(t, carts.AddQuantity(ctx, cartID, "var1", 4))
	items, err = carts.ListByCartID(ctx, cartID)
	require.NoError(t, err)
	got := map[string]int64{}
	for _, it := range items {
		got[it.VariantID] = it.Quantity
	}
	assert.Equal(t, map[string]int64{"var1": 4, "var2": 1}, got)
}

func TestGuestConversion_MergesCarts(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	seedGuest(t, guestA, "plain-a")

	user := &model.User{Email: "a@example.com", Role: model.RoleUser, IsActive: true}
	require.NoError(t, NewUserGormRepository(testDB).Create(ctx, user))

	carts := NewCartGormRepository(testDB)
	guestCart, err := carts.GetOrCreateID(ctx, model.GuestIdentity(guestA))
	require.NoError(t, err)
	require.NoError(t, carts.AddQuantity(ctx, guestCart, "var1", 2))
	require.NoError(t, carts.AddQuantity(ctx, guestCart, "var2", 1))

	userCart, err := carts.GetOrCreateID(ctx, model.UserIdentity(user.ID, model.RoleUser))
	require.NoError(t, err)
	require.NoError(t, carts.AddQuantity(ctx, userCart, "var1", 1))

	guests := NewGuestSessionGormRepository(testDB)
	uc := usecase.NewGuestUsecase(guests, NewTxManagerGorm(testDB), usecase.UUIDGenerator{}, usecase.SystemClock{}, time.Hour, zap.NewNop())

	out, err := uc.Convert(ctx, "plain-a", user.ID)
	require.NoError(t, err)
	assert.True(t, out.Merged)
	assert.Equal(t, userCart, out.CartID)

	items, err := carts.ListByCartID(ctx, userCart)
	require.NoError(t, err)
	got := map[string]int64{}
	for _, it := range items {
		got[it.VariantID] = it.Quantity
	}
	assert.Equal(t, map[string]int64{"var1": 3, "var2": 1}, got)

	_, err = carts.FindByOwner(ctx, model.GuestIdentity(guestA))
	assert.Error(t, err)
	_, err = guests.FindByTokenHash(ctx, usecase.HashToken("plain-a"))
	assert.Error(t, err)
}

func TestGuestConversion_PendingOrderFollowsMergedCart(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	seedGuest(t, guestA, "plain-a")

	user := &model.User{Email: "a@example.com", Role: model.RoleUser, IsActive: true}
	require.NoError(t, NewUserGormRepository(testDB).Create(ctx, user))
	userID := model.UserIdentity(user.ID, model.RoleUser)

	carts := NewCartGormRepository(testDB)
	userCart, err := carts.GetOrCreateID(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, carts.AddQuantity(ctx, userCart, "var3", 1))

	guestCart, err := carts.GetOrCreateID(ctx, model.GuestIdentity(guestA))
	require.NoError(t, err)
	require.NoError(t, carts.AddQuantity(ctx, guestCart, "var1", 2))

	// ゲストのままチェックアウトへ
	provider := payment.NewFakeProvider("http://localhost")
	session, err := provider.CreateSession(ctx, usecase.CheckoutSessionInput{})
	require.NoError(t, err)
	gid := guestA
	orders := NewOrderGormRepository(testDB)
	require.NoError(t, orders.Create(ctx, &model.Order{
		GuestSessionID:    &gid,
		CartID:            guestCart,
		Status:            model.OrderStatusPending,
		TotalPrice:        5000,
		Currency:          "jpy",
		ProviderSessionID: session.ID,
		Items: []model.OrderItem{
			{VariantID: "var1", ProductNameSnapshot: "Tee", UnitPriceSnapshot: 2500, Quantity: 2},
		},
	}))

	// 戻る前にログイン
	tx := NewTxManagerGorm(testDB)
	guests := usecase.NewGuestUsecase(NewGuestSessionGormRepository(testDB), tx, usecase.UUIDGenerator{}, usecase.SystemClock{}, time.Hour, zap.NewNop())
	out, err := guests.Convert(ctx, "plain-a", user.ID)
	require.NoError(t, err)
	require.True(t, out.Merged)

	checkout := usecase.NewCheckoutUsecase(carts, carts, NewProductGormRepository(testDB), orders,
		NewUserGormRepository(testDB), tx, provider, usecase.SystemClock{}, "jpy", "http://localhost", zap.NewNop())
	order, err := checkout.Complete(ctx, userID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAID", order.Status)

	items, err := carts.ListByCartID(ctx, userCart)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "var3", items[0].VariantID)
}

func TestGuestSession_DeleteByIDRemovesCart(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	seedGuest(t, guestA, "plain-a")

	carts := NewCartGormRepository(testDB)
	cartID, err := carts.GetOrCreateID(ctx, model.GuestIdentity(guestA))
	require.NoError(t, err)
	require.NoError(t, carts.AddQuantity(ctx, cartID, "var1", 1))

	guests := NewGuestSessionGormRepository(testDB)
	require.NoError(t, guests.DeleteByID(ctx, guestA))
	assert.ErrorIs(t, guests.DeleteByID(ctx, guestA), repo.ErrNotFound)

	_, err = carts.FindByOwner(ctx, model.GuestIdentity(guestA))
	assert.ErrorIs(t, err, repo.ErrNotFound)
	var n int64
	require.NoError(t, testDB.Model(&model.CartItem{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func seedCatalog(t *testing.T) {
	t.Helper()
	black := model.Color{Slug: "black", Name: "Black"}
	white := model.Color{Slug: "white", Name: "White"}
	m := model.Size{Slug: "m", Label: "M", SortOrder: 2}
	l := model.Size{Slug: "l", Label: "L", SortOrder: 3}
	require.NoError(t, testDB.Create(&black).Error)
	require.NoError(t, testDB.Create(&white).Error)
	require.NoError(t, testDB.Create(&m).Error)
	require.NoError(t, testDB.Create(&l).Error)

	sale := int64(1500)
	products := []struct {
		p        model.Product
		variants []model.Variant
	}{
		{
			p: model.Product{Slug: "black-tee", Name: "Black Tee", Gender: model.GenderMen, IsActive: true, Featured: true},
			variants: []model.Variant{
				{ID: "bt-m", ColorID: black.ID, SizeID: m.ID, Price: 2500},
				{ID: "bt-l", ColorID: black.ID, SizeID: l.ID, Price: 2500, SalePrice: &sale},
			},
		},
		{
			p: model.Product{Slug: "white-tee", Name: "White Tee", Gender: model.GenderWomen, IsActive: true},
			variants: []model.Variant{
				{ID: "wt-m", ColorID: white.ID, SizeID: m.ID, Price: 3000},
			},
		},
		{
			p: model.Product{Slug: "hidden-tee", Name: "Hidden Tee", Gender: model.GenderMen, IsActive: false},
			variants: []model.Variant{
				{ID: "ht-m", ColorID: black.ID, SizeID: m.ID, Price: 1000},
			},
		},
	}
	for _, pr := range products {
		p := pr.p
		require.NoError(t, testDB.Create(&p).Error)
		for _, v := range pr.variants {
			v.ProductID = p.ID
			require.NoError(t, testDB.Create(&v).Error)
		}
	}
}

func TestProduct_ListPublicFilters(t *testing.T) {
	resetDB(t)
	seedCatalog(t)
	products := NewProductGormRepository(testDB)
	ctx := context.Background()

	tests := []struct {
		name  string
		query url.Values
		want  []string
	}{
		{name: "all public", query: url.Values{}, want: []string{"black-tee", "white-tee"}},
		{name: "color", query: url.Values{"color": {"white"}}, want: []string{"white-tee"}},
		{name: "size and gender", query: url.Values{"size": {"l"}, "gender": {"men"}}, want: []string{"black-tee"}},
		{name: "max price uses sale", query: url.Values{"maxPrice": {"20"}}, want: []string{"black-tee"}},
		{name: "price desc", query: url.Values{"sort": {"price_desc"}}, want: []string{"white-tee", "black-tee"}},
		{name: "unknown color", query: url.Values{"color": {"purple"}}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := products.ListPublic(ctx, catalog.ParsePlan(tt.query))
			require.NoError(t, err)

			slugs := make([]string, 0, len(items))
			for _, p := range items {
				slugs = append(slugs, p.Slug)
			}
			assert.Equal(t, tt.want, slugs)
			assert.Equal(t, int64(len(tt.want)), total)
		})
	}
}

func TestProduct_FindVariantsUsesEffectivePrice(t *testing.T) {
	resetDB(t)
	seedCatalog(t)

	details, err := NewProductGormRepository(testDB).FindVariants(context.Background(), []string{"bt-l", "ht-m"})
	require.NoError(t, err)
	require.Len(t, details, 2)

	byID := map[string]model.VariantDetail{}
	for _, d := range details {
		byID[d.VariantID] = d
	}
	assert.Equal(t, int64(1500), byID["bt-l"].Price)
	assert.True(t, byID["bt-l"].IsActive)
	assert.False(t, byID["ht-m"].IsActive)
}
