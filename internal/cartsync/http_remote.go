package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// ゲストセッションを作り直しても401のまま
var ErrGuestSessionUnavailable = errors.New("guest session unavailable")

// 2xx以外の応答
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Code)
}

type cartItemBody struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

// HTTPRemote はストアフロントのカートAPIを叩く。Cookieはjarに持つ
type HTTPRemote struct {
	base   string
	client *http.Client

	guestMu sync.Mutex
}

func NewHTTPRemote(baseURL string, client *http.Client) (*HTTPRemote, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url must be absolute: %q", baseURL)
	}

	if client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "cookie jar")
		}
		client = &http.Client{Jar: jar, Timeout: 15 * time.Second}
	}
	if client.Jar == nil {
		return nil, errors.New("http client needs a cookie jar")
	}

	return &HTTPRemote{
		base:   strings.TrimRight(u.String(), "/"),
		client: client,
	}, nil
}

// 未認証（401）は空カートとして扱う
func (r *HTTPRemote) Fetch(ctx context.Context) ([]Line, error) {
	resp, err := r.do(ctx, http.MethodGet, "/cart", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: "fetch cart", Code: resp.StatusCode}
	}

	var body struct {
		Items []Line `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return body.Items, nil
}

func (r *HTTPRemote) Add(ctx context.Context, variantID string, qty int64) error {
	return r.write(ctx, "add line", http.MethodPost, "/cart/items", cartItemBody{VariantID: variantID, Quantity: qty})
}

func (r *HTTPRemote) SetQuantity(ctx context.Context, variantID string, qty int64) error {
	return r.write(ctx, "set quantity", http.MethodPut, "/cart/items", cartItemBody{VariantID: variantID, Quantity: qty})
}

func (r *HTTPRemote) Remove(ctx context.Context, variantID string) error {
	return r.write(ctx, "remove line", http.MethodDelete, "/cart/items/"+url.PathEscape(variantID), nil)
}

func (r *HTTPRemote) Clear(ctx context.Context) error {
	return r.write(ctx, "clear cart", http.MethodDelete, "/cart", nil)
}

// 401ならゲストセッションを作って1回だけやり直す
func (r *HTTPRemote) write(ctx context.Context, op, method, path string, body any) error {
	code, err := r.send(ctx, method, path, body)
	if err != nil {
		return err
	}

	if code == http.StatusUnauthorized {
		if err := r.ensureGuest(ctx); err != nil {
			return err
		}
		code, err = r.send(ctx, method, path, body)
		if err != nil {
			return err
		}
		if code == http.StatusUnauthorized {
			return errors.Wrap(ErrGuestSessionUnavailable, op)
		}
	}

	if code < 200 || code >= 300 {
		return &StatusError{Op: op, Code: code}
	}
	return nil
}

// 同時に401を受けた行が並んでもゲスト作成は順番に
func (r *HTTPRemote) ensureGuest(ctx context.Context) error {
	r.guestMu.Lock()
	defer r.guestMu.Unlock()

	code, err := r.send(ctx, http.MethodPost, "/session/guest", nil)
	if err != nil {
		return errors.Wrapf(ErrGuestSessionUnavailable, "create guest session: %v", err)
	}
	if code < 200 || code >= 300 {
		return errors.Wrapf(ErrGuestSessionUnavailable, "create guest session: status %d", code)
	}
	return nil
}

func (r *HTTPRemote) send(ctx context.Context, method, path string, body any) (int, error) {
	resp, err := r.do(ctx, method, path, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (r *HTTPRemote) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode body")
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.base+path, rd)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	return resp, nil
}
