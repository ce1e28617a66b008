package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDisabled           = errors.New("authentication is not configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Service guards the API with a single administrator password. With no
// secret configured it is disabled and every request is let through.
type Service struct {
	secret       string
	passwordHash string
	ttl          time.Duration
	now          func() time.Time
}

func NewService(secret, passwordHash string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{secret: secret, passwordHash: passwordHash, ttl: ttl, now: time.Now}
}

func (s *Service) Enabled() bool {
	return s != nil && s.secret != ""
}

type Token struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Login exchanges the administrator password for a bearer token.
func (s *Service) Login(password string) (Token, error) {
	if !s.Enabled() {
		return Token{}, ErrDisabled
	}
	if password == "" || CheckPassword(s.passwordHash, password) != nil {
		return Token{}, ErrInvalidCredentials
	}
	now := s.now().UTC()
	claims := Claims{Role: AdminSubject}
	claims.Subject = AdminSubject
	signed, err := GenerateToken(s.secret, claims, now, s.ttl)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: now.Add(s.ttl)}, nil
}

func (s *Service) Verify(token string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	claims, err := ParseToken(s.secret, token)
	if err != nil || claims.Subject != AdminSubject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
