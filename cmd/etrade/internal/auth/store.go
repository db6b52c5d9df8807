package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/klinvest/broker-etrade/pkg/oauth1"
)

// StoredTokens is the access token pair saved by "etrade auth login"
type StoredTokens struct {
	OAuthToken       string    `json:"oauth_token"`
	OAuthTokenSecret string    `json:"oauth_token_secret"`
	Sandbox          bool      `json:"sandbox"`
	IssuedAt         time.Time `json:"issued_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Expired reports whether E*TRADE has already invalidated the tokens
func (s *StoredTokens) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Credentials combines the stored token pair with the consumer credentials
func (s *StoredTokens) Credentials(consumerKey, consumerSecret string) oauth1.Credentials {
	return oauth1.Credentials{
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		Token:          s.OAuthToken,
		TokenSecret:    s.OAuthTokenSecret,
	}
}

// NextExpiry returns when tokens issued at t stop working. E*TRADE expires
// access tokens at midnight US Eastern time.
func NextExpiry(t time.Time) time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.AddDate(0, 0, 1)
}

func getTokenFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".etrade", "tokens.json"), nil
}

func Save(tokens *StoredTokens) error {
	path, err := getTokenFilePath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Load returns nil without error when no tokens are stored
func Load() (*StoredTokens, error) {
	path, err := getTokenFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var tokens StoredTokens
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, err
	}

	return &tokens, nil
}

func Clear() error {
	path, err := getTokenFilePath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
