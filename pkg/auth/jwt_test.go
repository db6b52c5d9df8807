package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestManager_Issue(t *testing.T) {
	manager := NewManager(&Config{
		Secret: "test-secret",
		TTL:    8 * time.Hour,
	})

	issued, err := manager.Issue("desk-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if issued.Token == "" {
		t.Error("Token should not be empty")
	}

	if issued.ExpiresIn != 28800 {
		t.Errorf("ExpiresIn = %d, want 28800", issued.ExpiresIn)
	}

	claims, err := manager.Validate(issued.Token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Name() != "desk-1" {
		t.Errorf("Name() = %s, want desk-1", claims.Name())
	}
	if claims.Issuer != "broker-etrade" {
		t.Errorf("Issuer = %s, want broker-etrade", claims.Issuer)
	}
	if claims.ID == "" {
		t.Error("ID should not be empty")
	}
}

func TestManager_IssueErrors(t *testing.T) {
	if _, err := NewManager(&Config{Secret: "s"}).Issue(""); err == nil {
		t.Error("Issue() should require an operator")
	}
	if _, err := NewManager(&Config{}).Issue("desk-1"); err == nil {
		t.Error("Issue() should require a secret")
	}
}

func TestManager_Validate(t *testing.T) {
	manager := NewManager(&Config{Secret: "test-secret"})

	sign := func(claims *Claims, secret string) string {
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name     string
		token    string
		wantErr  bool
		wantName string
	}{
		{"garbage", "invalid-token", true, ""},
		{"wrong secret", sign(&Claims{Operator: "ops", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, "other"), true, ""},
		{"expired", sign(&Claims{Operator: "ops", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		}}, "test-secret"), true, ""},
		{"no operator", sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, "test-secret"), true, ""},
		{"operator claim", sign(&Claims{Operator: "desk-2", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}}, "test-secret"), false, "desk-2"},
		{"subject fallback", sign(&Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "portfolio-service", ExpiresAt: future}}, "test-secret"), false, "portfolio-service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := manager.Validate(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && claims.Name() != tt.wantName {
				t.Errorf("Name() = %s, want %s", claims.Name(), tt.wantName)
			}
		})
	}
}

func TestManager_ExpiresWithClock(t *testing.T) {
	manager := NewManager(&Config{Secret: "test-secret", TTL: time.Minute})
	start := time.Now()
	manager.now = func() time.Time { return start }

	issued, err := manager.Issue("desk-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	manager.now = func() time.Time { return start.Add(2 * time.Minute) }
	if _, err := manager.Validate(issued.Token); err == nil {
		t.Error("Validate() should reject a token past its TTL")
	}
}
