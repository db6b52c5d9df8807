package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// =============================================================================
// Operator Tokens
// =============================================================================
// Callers of the adapter's /v1 routes present an HS256 bearer token naming
// the operator (a trading desk or an upstream service). Tokens are issued
// with "etrade operator token" and validated by the service middleware.
// =============================================================================

const defaultIssuer = "broker-etrade"

// Config holds JWT configuration
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Claims identifies the operator calling the adapter
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// Name returns the operator, falling back to the subject for tokens minted
// by other services.
func (c *Claims) Name() string {
	if c.Operator != "" {
		return c.Operator
	}
	return c.Subject
}

// IssuedToken is a signed token and its expiry
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int       `json:"expires_in"`
}

// Manager issues and validates operator tokens
type Manager struct {
	config *Config
	now    func() time.Time
}

// NewManager creates a new token manager
func NewManager(cfg *Config) *Manager {
	if cfg.TTL == 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaultIssuer
	}
	return &Manager{config: cfg, now: time.Now}
}

// Issue signs a token for operator
func (m *Manager) Issue(operator string) (*IssuedToken, error) {
	if operator == "" {
		return nil, fmt.Errorf("operator is required")
	}
	if m.config.Secret == "" {
		return nil, fmt.Errorf("jwt secret is not configured")
	}

	jti, err := newTokenID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token ID: %w", err)
	}

	now := m.now()
	expires := now.Add(m.config.TTL)
	claims := &Claims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{
		Token:     signed,
		ExpiresAt: expires,
		ExpiresIn: int(m.config.TTL.Seconds()),
	}, nil
}

// Validate parses a token and returns its claims
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.Secret), nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Name() == "" {
		return nil, fmt.Errorf("token names no operator")
	}

	return claims, nil
}

func newTokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
