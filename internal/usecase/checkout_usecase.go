package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
)

// 決済プロバイダが使えない（ブレーカーが開いている等）
var ErrProviderUnavailable = errors.New("checkout provider unavailable")

type CheckoutLine struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type CheckoutSessionInput struct {
	Lines           []CheckoutLine
	Currency        string
	SuccessURL      string
	CancelURL       string
	ClientReference string
	CustomerEmail   string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// ホスト型チェックアウトの約束
type CheckoutProvider interface {
	CreateSession(ctx context.Context, in CheckoutSessionInput) (CheckoutSession, error)
	SessionPaid(ctx context.Context, sessionID string) (bool, error)
}

type StartCheckoutOutput struct {
	URL string `json:"url"`
}

type CheckoutUsecase struct {
	carts    repo.CartRepository
	items    repo.CartItemRepository
	products repo.ProductRepository
	orders   repo.OrderRepository
	users    repo.UserRepository
	tx       repo.TransactionManager
	provider CheckoutProvider
	clock    Clock
	currency string
	baseURL  string
	log      *zap.Logger
}

func NewCheckoutUsecase(
	carts repo.CartRepository,
	items repo.CartItemRepository,
	products repo.ProductRepository,
	orders repo.OrderRepository,
	users repo.UserRepository,
	tx repo.TransactionManager,
	provider CheckoutProvider,
	clock Clock,
	currency string,
	baseURL string,
	log *zap.Logger,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		carts:    carts,
		items:    items,
		products: products,
		orders:   orders,
		users:    users,
		tx:       tx,
		provider: provider,
		clock:    clock,
		currency: currency,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log,
	}
}

// チェックアウトを開始してリダイレクト先を返す。価格はここで読み直す
func (u *CheckoutUsecase) Start(ctx context.Context, id model.Identity) (StartCheckoutOutput, error) {
	if !id.Resolved() {
		return StartCheckoutOutput{}, errIdentityRequired
	}

	cart, err := u.carts.FindByOwner(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}
	if err != nil {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.items.ListByCartID(ctx, cart.ID)
	if err != nil {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.VariantID)
	}
	details, err := u.products.FindVariants(ctx, ids)
	if err != nil {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	byID := make(map[string]model.VariantDetail, len(details))
	for _, d := range details {
		byID[d.VariantID] = d
	}

	order := model.Order{
		CartID:   cart.ID,
		Status:   model.OrderStatusPending,
		Currency: u.currency,
	}
	if id.IsUser() {
		uid := id.UserID
		order.UserID = &uid
	} else {
		gid := id.GuestID
		order.GuestSessionID = &gid
	}

	in := CheckoutSessionInput{
		Currency:        u.currency,
		SuccessURL:      u.baseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       u.baseURL + "/cart",
		ClientReference: fmt.Sprintf("cart-%d", cart.ID),
	}
	for _, it := range items {
		d, ok := byID[it.VariantID]
		if !ok || !d.IsActive {
			continue
		}
		name := d.Name
		if d.Color != "" || d.Size != "" {
			name = fmt.Sprintf("%s (%s / %s)", d.Name, d.Color, d.Size)
		}
		in.Lines = append(in.Lines, CheckoutLine{Name: name, UnitAmount: d.Price, Quantity: it.Quantity})
		order.Items = append(order.Items, model.OrderItem{
			VariantID:           it.VariantID,
			ProductNameSnapshot: name,
			UnitPriceSnapshot:   d.Price,
			Quantity:            it.Quantity,
		})
		order.TotalPrice += d.Price * it.Quantity
	}
	if len(in.Lines) == 0 {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	if id.IsUser() {
		if user, err := u.users.FindByID(ctx, id.UserID); err == nil {
			in.CustomerEmail = user.Email
		}
	}

	session, err := u.provider.CreateSession(ctx, in)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("provider_error").Inc()
		u.log.Error("create checkout session", zap.Int64("cart_id", cart.ID), zap.Error(err))
		if errors.Is(err, ErrProviderUnavailable) {
			return StartCheckoutOutput{}, NewHTTPError(http.StatusServiceUnavailable, "checkout unavailable")
		}
		return StartCheckoutOutput{}, NewHTTPError(http.StatusBadGateway, "checkout failed")
	}
	order.ProviderSessionID = session.ID

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().Create(ctx, &order); err != nil {
			return err
		}
		after, _ := json.Marshal(map[string]interface{}{"order_id": order.ID, "total": order.TotalPrice})
		return r.AuditLogs().Create(ctx, auditFor(id, model.AuditActionStartCheckout, order.ID, string(after), u.clock))
	})
	if err != nil {
		return StartCheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("started").Inc()
	return StartCheckoutOutput{URL: session.URL}, nil
}

// 決済完了の戻り。支払い済みならPAIDにして買った明細をカートから外す
func (u *CheckoutUsecase) Complete(ctx context.Context, id model.Identity, sessionID string) (OrderOutput, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid session_id")
	}
	if !id.Resolved() {
		return OrderOutput{}, errIdentityRequired
	}

	order, err := u.orders.FindByProviderSessionID(ctx, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !order.OwnedBy(id) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if order.Status != model.OrderStatusPending {
		return toOrderOutput(order), nil
	}

	paid, err := u.provider.SessionPaid(ctx, sessionID)
	if err != nil {
		u.log.Error("check checkout session", zap.String("session_id", sessionID), zap.Error(err))
		return OrderOutput{}, NewHTTPError(http.StatusBadGateway, "checkout status unavailable")
	}
	if !paid {
		return toOrderOutput(order), nil
	}

	now := u.clock.Now()
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().MarkPaid(ctx, order.ID, now); err != nil {
			return err
		}
		for _, it := range order.Items {
			if err := r.CartItems().DeleteItem(ctx, order.CartID, it.VariantID); err != nil {
				return err
			}
		}
		return r.AuditLogs().Create(ctx, auditFor(id, model.AuditActionCompleteCheckout, order.ID, "", u.clock))
	})
	if errors.Is(err, repo.ErrNotFound) {
		//同時に確定された
		order.Status = model.OrderStatusPaid
		return toOrderOutput(order), nil
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("paid").Inc()
	order.Status = model.OrderStatusPaid
	order.PaidAt = &now
	return toOrderOutput(order), nil
}

func auditFor(id model.Identity, action model.AuditAction, orderID int64, after string, clock Clock) model.AuditLog {
	return model.AuditLog{
		ActorUserID:  id.UserID,
		ActorGuestID: id.GuestID,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		AfterJSON:    after,
		CreatedAt:    clock.Now(),
	}
}
