package gcp

import (
	"context"

	"github.com/DefangLabs/openai-access-gateway/internal/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// TokenProvider hands out fresh access tokens from the ambient application
// default credentials. The underlying source caches and refreshes, so every
// request gets a token that is valid right now without hammering the token
// endpoint.
type TokenProvider struct {
	source oauth2.TokenSource
}

func NewTokenProvider(ctx context.Context) (*TokenProvider, error) {
	source, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, errors.NewCredentialError("failed to discover application default credentials: " + err.Error())
	}

	return &TokenProvider{
		source: oauth2.ReuseTokenSource(nil, source),
	}, nil
}

func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	token, err := p.source.Token()
	if err != nil {
		return "", errors.NewCredentialError("failed to fetch access token: " + err.Error())
	}

	return token.AccessToken, nil
}
