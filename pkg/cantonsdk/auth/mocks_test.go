package auth

import "context"

// MockProvider is a hand-written Provider that counts calls per grant.
type MockProvider struct {
	PasswordFunc          func(ctx context.Context, username, password string) (*Token, error)
	RefreshFunc           func(ctx context.Context, refreshToken string) (*Token, error)
	ClientCredentialsFunc func(ctx context.Context, clientSecret string) (*Token, error)

	PasswordCalls          int
	RefreshCalls           int
	ClientCredentialsCalls int
}

func (m *MockProvider) Password(ctx context.Context, username, password string) (*Token, error) {
	m.PasswordCalls++
	if m.PasswordFunc != nil {
		return m.PasswordFunc(ctx, username, password)
	}
	return &Token{AccessToken: "password-token", RefreshToken: "refresh-1", ExpiresIn: 300}, nil
}

func (m *MockProvider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	m.RefreshCalls++
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return &Token{AccessToken: "refreshed-token", RefreshToken: "refresh-2", ExpiresIn: 300}, nil
}

func (m *MockProvider) ClientCredentials(ctx context.Context, clientSecret string) (*Token, error) {
	m.ClientCredentialsCalls++
	if m.ClientCredentialsFunc != nil {
		return m.ClientCredentialsFunc(ctx, clientSecret)
	}
	return &Token{AccessToken: "machine-token", ExpiresIn: 300}, nil
}
