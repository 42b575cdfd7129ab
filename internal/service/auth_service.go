package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecom-service/config"
	"ecom-service/internal/auth"
	"ecom-service/internal/models"
	"ecom-service/internal/redisclient"
	"ecom-service/internal/store"
	"ecom-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const oauthStateTTL = 10 * time.Minute

// IdentityProvider is an OAuth login provider
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleIdentity, error)
}

// AuthService handles signup, login and token lifecycle
type AuthService struct {
	store  *store.Store
	redis  *redisclient.Client
	tokens *auth.TokenManager
	google IdentityProvider
	cfg    config.AuthConfig
	logger *zap.Logger
}

// NewAuthService creates an auth service. google may be nil when OAuth
// login is not configured.
func NewAuthService(
	store *store.Store,
	redis *redisclient.Client,
	tokens *auth.TokenManager,
	google IdentityProvider,
	cfg config.AuthConfig,
) *AuthService {
	return &AuthService{
		store:  store,
		redis:  redis,
		tokens: tokens,
		google: google,
		cfg:    cfg,
		logger: util.Named("auth"),
	}
}

type SignupRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required"`
	Mobile     string `json:"mobile" binding:"required"`
	Password   string `json:"password" binding:"required"`
	AdminToken string `json:"admin_token"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResult is returned by every successful login
type AuthResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      *models.Customer `json:"user"`
}

// CheckResult never fails; an unusable token yields IsAuthenticated=false
type CheckResult struct {
	IsAuthenticated bool             `json:"is_authenticated"`
	User            *models.Customer `json:"user"`
}

// normalizeSignup trims fields, lower-cases the email and enforces the
// account rules.
func normalizeSignup(req *SignupRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Mobile = strings.TrimSpace(req.Mobile)

	if req.Name == "" {
		return Invalid("name is required")
	}
	at := strings.LastIndex(req.Email, "@")
	if at < 1 || !strings.Contains(req.Email[at+1:], ".") {
		return Invalid("invalid email format")
	}
	if len(req.Mobile) != 10 || strings.Trim(req.Mobile, "0123456789") != "" {
		return Invalid("mobile number must be 10 digits")
	}
	if len(req.Password) < 8 {
		return Invalid("password must be at least 8 characters")
	}
	return nil
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	return s.register(ctx, req, models.RoleCustomer)
}

// AdminSignup registers an admin when the registration token matches
func (s *AuthService) AdminSignup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	expected := s.cfg.AdminRegistrationToken
	if expected == "" || subtle.ConstantTimeCompare([]byte(req.AdminToken), []byte(expected)) != 1 {
		s.logger.Warn("Admin signup with invalid registration token", zap.String("email", req.Email))
		return nil, Forbidden("invalid admin registration token")
	}
	return s.register(ctx, req, models.RoleAdmin)
}

func (s *AuthService) register(ctx context.Context, req SignupRequest, role string) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	if err := normalizeSignup(&req); err != nil {
		return nil, err
	}

	emailTaken, mobileTaken, err := s.store.CustomerConflicts(ctx, req.Email, req.Mobile)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing customers: %w", err)
	}
	if emailTaken {
		return nil, Conflict("email already registered")
	}
	if mobileTaken {
		return nil, Conflict("mobile number already registered")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	mobile := req.Mobile
	c := &models.Customer{
		Name:         req.Name,
		Email:        req.Email,
		Mobile:       &mobile,
		PasswordHash: &hash,
		Role:         role,
	}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		util.SpanError(span, err)
		return nil, storeErr(err, "customer")
	}

	s.logger.Info("Customer registered",
		zap.Int64("customer_id", c.ID),
		zap.String("role", role))
	return s.issue(c)
}

func (s *AuthService) issue(c *models.Customer) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(c.ID, c.Email, c.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: c}, nil
}

// Login verifies email and password. Repeated failures for the same email
// within the login window are refused with 429.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, Invalid("email and password are required")
	}

	if s.redis != nil && s.cfg.LoginMaxAttempts > 0 {
		failures, err := s.redis.LoginFailures(ctx, email)
		if err != nil {
			s.logger.Warn("Login throttle check failed", zap.Error(err))
		} else if failures >= int64(s.cfg.LoginMaxAttempts) {
			util.LoginAttemptsTotal.WithLabelValues("throttled").Inc()
			return nil, TooManyRequests("too many failed login attempts, try again later")
		}
	}

	c, err := s.store.GetCustomerByEmail(ctx, email)
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}
	ok := false
	if c != nil && c.PasswordHash != nil {
		if ok, err = auth.CheckPassword(*c.PasswordHash, req.Password); err != nil {
			return nil, err
		}
	}
	if !ok {
		s.recordFailure(ctx, email)
		return nil, Unauthorized("Invalid email or password")
	}

	if s.redis != nil {
		if err := s.redis.ResetLoginFailures(ctx, email); err != nil {
			s.logger.Warn("Failed to reset login failures", zap.Error(err))
		}
	}
	util.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Successful login", zap.Int64("customer_id", c.ID))
	return s.issue(c)
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	util.LoginAttemptsTotal.WithLabelValues("failure").Inc()
	s.logger.Info("Failed login attempt", zap.String("email", email))
	if s.redis == nil {
		return
	}
	if _, err := s.redis.RecordLoginFailure(ctx, email, s.cfg.LoginWindow); err != nil {
		s.logger.Warn("Failed to record login failure", zap.Error(err))
	}
}

// Authenticate parses a bearer token and rejects revoked ones
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, Unauthorized("invalid or expired token")
	}
	if s.redis != nil {
		revoked, err := s.redis.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, Unauthorized("token has been revoked")
		}
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.redis == nil {
		return nil
	}
	ttl := claims.TTL()
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.logger.Info("Logout", zap.Int64("customer_id", claims.CustomerID))
	return nil
}

func (s *AuthService) Check(ctx context.Context, token string) CheckResult {
	if token == "" {
		return CheckResult{}
	}
	claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return CheckResult{}
	}
	c, err := s.store.GetCustomer(ctx, claims.CustomerID)
	if err != nil {
		return CheckResult{}
	}
	return CheckResult{IsAuthenticated: true, User: c}
}

func (s *AuthService) Me(ctx context.Context, customerID int64) (*models.Customer, error) {
	c, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, storeErr(err, "customer")
	}
	return c, nil
}

// GoogleLoginURL starts the OAuth flow with a fresh CSRF state
func (s *AuthService) GoogleLoginURL(ctx context.Context) (string, error) {
	if s.google == nil || s.redis == nil {
		return "", NotFound("google login is not enabled")
	}
	state := uuid.New().String()
	if err := s.redis.SaveOAuthState(ctx, state, oauthStateTTL); err != nil {
		return "", fmt.Errorf("failed to save oauth state: %w", err)
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback finishes the OAuth flow. The customer is matched by
// google_id, then by email (linking the account), and created otherwise.
func (s *AuthService) GoogleCallback(ctx context.Context, state, code string) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.GoogleCallback")
	defer span.End()

	if s.google == nil || s.redis == nil {
		return nil, NotFound("google login is not enabled")
	}
	if state == "" || code == "" {
		return nil, Invalid("state and code are required")
	}
	valid, err := s.redis.ConsumeOAuthState(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("failed to check oauth state: %w", err)
	}
	if !valid {
		return nil, Unauthorized("invalid or expired oauth state")
	}

	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("Google token exchange failed", zap.Error(err))
		util.SpanError(span, err)
		return nil, Unauthorized("google authentication failed")
	}
	if !identity.EmailVerified {
		return nil, Unauthorized("google account email is not verified")
	}

	c, err := s.upsertGoogleCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}
	util.LoginAttemptsTotal.WithLabelValues("oauth").Inc()
	return s.issue(c)
}

func (s *AuthService) upsertGoogleCustomer(ctx context.Context, id *auth.GoogleIdentity) (*models.Customer, error) {
	c, err := s.store.GetCustomerByGoogleID(ctx, id.Subject)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	email := strings.ToLower(id.Email)
	c, err = s.store.GetCustomerByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.store.LinkGoogleID(ctx, c.ID, id.Subject); err != nil {
			return nil, storeErr(err, "customer")
		}
		subject := id.Subject
		c.GoogleID = &subject
		s.logger.Info("Linked google account", zap.Int64("customer_id", c.ID))
		return c, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = email
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		}
	}
	subject := id.Subject
	c = &models.Customer{
		Name:     name,
		Email:    email,
		Role:     models.RoleCustomer,
		GoogleID: &subject,
	}
	if err := s.store.CreateCustomer(ctx, c); err != nil {
		return nil, storeErr(err, "customer")
	}
	s.logger.Info("Customer registered via google", zap.Int64("customer_id", c.ID))
	return c, nil
}
