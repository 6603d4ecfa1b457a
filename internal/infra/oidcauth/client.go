package oidcauth

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-faster/errors"
	"golang.org/x/oauth2"

	auth "storefront/internal/usecase/auth_usecase"
)

var ErrMissingIDToken = errors.New("no id_token in token response")

// 認可コードフローのクライアント
type Client struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// issuerのdiscoveryを取りに行くので起動時に1回だけ呼ぶ
func New(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string) (*Client, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "oidc discovery")
	}

	return &Client{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// codeをトークンに交換してIDトークンを検証する
func (c *Client) Exchange(ctx context.Context, code string) (auth.OAuthClaims, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return auth.OAuthClaims{}, errors.Wrap(err, "exchange code")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return auth.OAuthClaims{}, ErrMissingIDToken
	}

	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return auth.OAuthClaims{}, errors.Wrap(err, "verify id_token")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return auth.OAuthClaims{}, errors.Wrap(err, "decode claims")
	}

	return auth.OAuthClaims{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}
