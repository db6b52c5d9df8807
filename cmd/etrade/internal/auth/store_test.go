package auth

import (
	"testing"
	"time"
)

func TestSaveLoadClear(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	stored, err := Load()
	if err != nil || stored != nil {
		t.Fatalf("Load() = %v, %v, want nil, nil", stored, err)
	}

	issued := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC)
	if err := Save(&StoredTokens{
		OAuthToken:       "tok",
		OAuthTokenSecret: "secret",
		Sandbox:          true,
		IssuedAt:         issued,
		ExpiresAt:        NextExpiry(issued),
	}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	stored, err = Load()
	if err != nil || stored == nil {
		t.Fatalf("Load() = %v, %v", stored, err)
	}
	creds := stored.Credentials("ck", "cs")
	if creds.Token != "tok" || creds.TokenSecret != "secret" || creds.ConsumerKey != "ck" {
		t.Errorf("Credentials() = %+v", creds)
	}

	if err := Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if stored, _ := Load(); stored != nil {
		t.Error("tokens should be gone after Clear()")
	}
	if err := Clear(); err != nil {
		t.Errorf("Clear() on missing file error = %v", err)
	}
}

func TestNextExpiry(t *testing.T) {
	tests := []struct {
		name   string
		issued time.Time
		// hours until expiry
		wantBefore time.Duration
	}{
		{"afternoon eastern", time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC), 24 * time.Hour},
		{"just after midnight eastern", time.Date(2025, 3, 14, 5, 0, 0, 0, time.UTC), 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expiry := NextExpiry(tt.issued)
			if !expiry.After(tt.issued) {
				t.Errorf("expiry %v should be after %v", expiry, tt.issued)
			}
			if expiry.Sub(tt.issued) > tt.wantBefore {
				t.Errorf("expiry %v is more than %v after %v", expiry, tt.wantBefore, tt.issued)
			}
			tokens := StoredTokens{ExpiresAt: expiry}
			if tokens.Expired(tt.issued) {
				t.Error("tokens should be valid when issued")
			}
			if !tokens.Expired(expiry) {
				t.Error("tokens should be expired at the expiry instant")
			}
		})
	}
}
