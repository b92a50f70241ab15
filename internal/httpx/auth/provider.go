package auth

import (
	"context"
	"fmt"
)

// Identity is what an OAuth provider knows about the user after a successful
// code exchange.
type Identity struct {
	Email      string
	Name       string
	ProviderID string
}

// Provider exchanges an OAuth authorization code for an identity.
type Provider interface {
	Exchange(ctx context.Context, provider, code string) (*Identity, error)
}

// MockProvider accepts any non-empty code for the supported providers and
// returns a fixed identity. It stands in until real OAuth flows land.
type MockProvider struct{}

func (MockProvider) Exchange(_ context.Context, provider, code string) (*Identity, error) {
	if provider != "github" && provider != "google" {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	if code == "" {
		return nil, fmt.Errorf("empty authorization code")
	}
	return &Identity{
		Email:      "dev@usecogent.io",
		Name:       "Dev User",
		ProviderID: "mock-" + provider + "-id",
	}, nil
}
