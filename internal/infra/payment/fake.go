package payment

import (
	"context"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/usecase"
)

// STRIPE_SECRET_KEY が無い開発環境用。作ったセッションは即支払い済み扱い
type FakeProvider struct {
	baseURL string

	mu       sync.Mutex
	sessions map[string]usecase.CheckoutSessionInput
}

func NewFakeProvider(baseURL string) *FakeProvider {
	return &FakeProvider{
		baseURL:  baseURL,
		sessions: make(map[string]usecase.CheckoutSessionInput),
	}
}

func (p *FakeProvider) CreateSession(_ context.Context, in usecase.CheckoutSessionInput) (usecase.CheckoutSession, error) {
	id := "cs_fake_" + uuid.NewString()

	p.mu.Lock()
	p.sessions[id] = in
	p.mu.Unlock()

	q := url.Values{}
	q.Set("session_id", id)
	return usecase.CheckoutSession{
		ID:  id,
		URL: p.baseURL + "/checkout/success?" + q.Encode(),
	}, nil
}

func (p *FakeProvider) SessionPaid(_ context.Context, sessionID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.sessions[sessionID]
	return ok, nil
}

// テスト用
func (p *FakeProvider) Session(id string) (usecase.CheckoutSessionInput, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	in, ok := p.sessions[id]
	return in, ok
}
