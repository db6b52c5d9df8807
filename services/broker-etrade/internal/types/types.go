package types

import (
	"time"

	"github.com/klinvest/broker-etrade/pkg/models"
)

// InitializeRequest configures the broker session
type InitializeRequest struct {
	ConsumerKey      string `json:"consumer_key"`
	ConsumerSecret   string `json:"consumer_secret"`
	OAuthToken       string `json:"oauth_token,omitempty"`
	OAuthTokenSecret string `json:"oauth_token_secret,omitempty"`
	IsSandbox        *bool  `json:"is_sandbox,omitempty"` // defaults to true
}

// Sandbox reports the requested environment
func (r *InitializeRequest) Sandbox() bool {
	return r.IsSandbox == nil || *r.IsSandbox
}

// InitializeResponse reports whether the session was configured
type InitializeResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
	RequiresAuth bool   `json:"requires_auth,omitempty"`
	AuthURL      string `json:"auth_url,omitempty"`
}

type GetAccountsRequest struct{}

type GetAccountsResponse struct {
	Accounts []models.AccountSummary `json:"accounts"`
}

// GetPositionsRequest accepts either the public account ID or the
// accountIdKey returned in the account extensions
type GetPositionsRequest struct {
	AccountID string `json:"account_id"`
}

type GetPositionsResponse struct {
	Positions []models.Position `json:"positions"`
}

type SubmitOrderRequest struct {
	AccountID string              `json:"account_id"`
	Order     models.OrderRequest `json:"order"`
}

type SubmitOrderResponse struct {
	Order models.Order `json:"order"`
}

// StatusResponse describes the session for operators
type StatusResponse struct {
	State          string     `json:"state"`
	Environment    string     `json:"environment,omitempty"`
	AccountsSynced bool       `json:"accounts_synced"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	TrackedOrders  int        `json:"tracked_orders"`
	Submissions    uint64     `json:"submissions"`
}

// RequestTokenResponse is returned by the first leg of the OAuth flow
type RequestTokenResponse struct {
	OAuthToken   string `json:"oauth_token"`
	AuthorizeURL string `json:"authorize_url"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// AccessTokenRequest completes the OAuth flow with the verifier code shown
// by E*TRADE after the account holder approves access
type AccessTokenRequest struct {
	OAuthToken    string `json:"oauth_token"`
	OAuthVerifier string `json:"oauth_verifier"`
	IsSandbox     *bool  `json:"is_sandbox,omitempty"`
}

// Sandbox reports the requested environment
func (r *AccessTokenRequest) Sandbox() bool {
	return r.IsSandbox == nil || *r.IsSandbox
}
