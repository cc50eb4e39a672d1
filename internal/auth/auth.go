// Package auth handles signup, login and the JWTs that identify users on
// the HTTP API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fblacp/scales/internal/domain"
	"github.com/fblacp/scales/internal/logger"
	"github.com/fblacp/scales/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password. The two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned by ParseToken.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidSignup is returned when required signup fields are missing.
	ErrInvalidSignup = errors.New("email and password are required")
)

// Claims are the JWT claims issued at login. Subject holds the user ID.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service implements account operations on top of a UserRepository.
type Service struct {
	users  store.UserRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a Service signing tokens with secret. A non-positive
// ttl uses DefaultTokenTTL.
func NewService(users store.UserRepository, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Signup creates an account. Username defaults to the local part of the
// email.
func (s *Service) Signup(ctx context.Context, email, username, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("Signup: %w", ErrInvalidSignup)
	}
	if username == "" {
		username, _, _ = strings.Cut(email, "@")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("Signup: hashing password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("Signup: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("user_id", user.ID).Msg("User signed up")
	return user, nil
}

// Login checks the password and returns the user with a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", fmt.Errorf("Login: %w", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, "", fmt.Errorf("Login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("Login: %w", ErrInvalidCredentials)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("Login: %w", err)
	}
	return user, token, nil
}

// GetUserByID returns the account for an authenticated user ID.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetUserByID: %w", err)
	}
	return user, nil
}

// IssueToken signs an HS256 token for user.
func (s *Service) IssueToken(user *domain.User) (string, error) {
	now := s.now()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("IssueToken: signing: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token and returns the user ID it was issued for.
func (s *Service) ParseToken(token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", fmt.Errorf("ParseToken: %w", ErrInvalidToken)
	}
	return claims.Subject, nil
}
