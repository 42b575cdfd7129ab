package service

import (
	"context"
	"testing"
	"time"

	"ecom-service/config"
	"ecom-service/internal/auth"
	"ecom-service/internal/redisclient"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSignup(t *testing.T) {
	req := SignupRequest{Name: " Asha ", Email: " Asha@Example.COM ", Mobile: "9876543210", Password: "longenough"}
	require.NoError(t, normalizeSignup(&req))
	assert.Equal(t, "Asha", req.Name)
	assert.Equal(t, "asha@example.com", req.Email)

	bad := []SignupRequest{
		{Name: "", Email: "a@b.co", Mobile: "9876543210", Password: "longenough"},
		{Name: "A", Email: "no-at-sign", Mobile: "9876543210", Password: "longenough"},
		{Name: "A", Email: "a@localhost", Mobile: "9876543210", Password: "longenough"},
		{Name: "A", Email: "a@b.co", Mobile: "98765", Password: "longenough"},
		{Name: "A", Email: "a@b.co", Mobile: "98765abcde", Password: "longenough"},
		{Name: "A", Email: "a@b.co", Mobile: "9876543210", Password: "short"},
	}
	for _, r := range bad {
		r := r
		assert.True(t, IsKind(normalizeSignup(&r), KindInvalid), "%+v", r)
	}
}

func TestAdminSignupRequiresToken(t *testing.T) {
	tokens := auth.NewTokenManager("secret", time.Hour)
	req := SignupRequest{Name: "A", Email: "a@b.co", Mobile: "9876543210", Password: "longenough", AdminToken: "guess"}

	s := NewAuthService(nil, nil, tokens, nil, config.AuthConfig{AdminRegistrationToken: "letmein"})
	_, err := s.AdminSignup(context.Background(), req)
	assert.True(t, IsKind(err, KindForbidden))

	// an unset registration token disables admin signup entirely
	s = NewAuthService(nil, nil, tokens, nil, config.AuthConfig{})
	req.AdminToken = ""
	_, err = s.AdminSignup(context.Background(), req)
	assert.True(t, IsKind(err, KindForbidden))
}

func newTestRedis(t *testing.T) (*redisclient.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisclient.NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestLoginThrottled(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()
	cfg := config.AuthConfig{LoginMaxAttempts: 2, LoginWindow: time.Minute}

	for i := 0; i < 2; i++ {
		_, err := rc.RecordLoginFailure(ctx, "asha@example.com", cfg.LoginWindow)
		require.NoError(t, err)
	}

	s := NewAuthService(nil, rc, auth.NewTokenManager("secret", time.Hour), nil, cfg)
	_, err := s.Login(ctx, LoginRequest{Email: "Asha@example.com", Password: "whatever1"})
	assert.True(t, IsKind(err, KindTooManyRequests))
}

func TestAuthenticateAndLogout(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()
	tokens := auth.NewTokenManager("secret", time.Hour)
	s := NewAuthService(nil, rc, tokens, nil, config.AuthConfig{})

	token, _, err := tokens.Issue(7, "a@b.co", "customer")
	require.NoError(t, err)

	claims, err := s.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.CustomerID)

	require.NoError(t, s.Logout(ctx, claims))
	_, err = s.Authenticate(ctx, token)
	assert.True(t, IsKind(err, KindUnauthorized))

	_, err = s.Authenticate(ctx, "not-a-token")
	assert.True(t, IsKind(err, KindUnauthorized))
}

func TestCheckWithoutToken(t *testing.T) {
	s := NewAuthService(nil, nil, auth.NewTokenManager("secret", time.Hour), nil, config.AuthConfig{})
	res := s.Check(context.Background(), "")
	assert.False(t, res.IsAuthenticated)
	assert.Nil(t, res.User)

	res = s.Check(context.Background(), "garbage")
	assert.False(t, res.IsAuthenticated)
}

type fakeProvider struct {
	identity *auth.GoogleIdentity
	state    string
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	f.state = state
	return "https://accounts.example.com/auth?state=" + state
}

func (f *fakeProvider) Exchange(context.Context, string) (*auth.GoogleIdentity, error) {
	return f.identity, nil
}

func TestGoogleLoginState(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()
	provider := &fakeProvider{identity: &auth.GoogleIdentity{Subject: "g-1", Email: "a@b.co", EmailVerified: false}}
	s := NewAuthService(nil, rc, auth.NewTokenManager("secret", time.Hour), provider, config.AuthConfig{})

	url, err := s.GoogleLoginURL(ctx)
	require.NoError(t, err)
	assert.Contains(t, url, provider.state)

	_, err = s.GoogleCallback(ctx, "forged", "code")
	assert.True(t, IsKind(err, KindUnauthorized))

	// state is valid but the identity is unverified
	_, err = s.GoogleCallback(ctx, provider.state, "code")
	assert.True(t, IsKind(err, KindUnauthorized))

	// states are single use
	_, err = s.GoogleCallback(ctx, provider.state, "code")
	assert.True(t, IsKind(err, KindUnauthorized))
}

func TestGoogleLoginDisabled(t *testing.T) {
	s := NewAuthService(nil, nil, auth.NewTokenManager("secret", time.Hour), nil, config.AuthConfig{})
	_, err := s.GoogleLoginURL(context.Background())
	assert.True(t, IsKind(err, KindNotFound))
}
