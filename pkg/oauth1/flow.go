package oauth1

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OutOfBand is the callback value for flows where the user copies the
// verifier code by hand.
const OutOfBand = "oob"

// Endpoint describes the three URLs of a provider's token flow.
type Endpoint struct {
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
}

// RequestToken is the temporary credential obtained in the first leg.
type RequestToken struct {
	Token             string    `json:"oauth_token"`
	Secret            string    `json:"oauth_token_secret"`
	CallbackConfirmed bool      `json:"oauth_callback_confirmed"`
	IssuedAt          time.Time `json:"issued_at"`
}

// Flow runs the three-legged OAuth 1.0a authorization.
type Flow struct {
	consumerKey    string
	consumerSecret string
	callback       string
	endpoint       Endpoint
	httpClient     *http.Client
	signerOpts     []SignerOption
}

// NewFlow creates a flow for a consumer. An empty callback means out-of-band.
func NewFlow(consumerKey, consumerSecret, callback string, endpoint Endpoint, httpClient *http.Client, opts ...SignerOption) *Flow {
	if callback == "" {
		callback = OutOfBand
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Flow{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		callback:       callback,
		endpoint:       endpoint,
		httpClient:     httpClient,
		signerOpts:     opts,
	}
}

// RequestToken obtains a temporary request token.
func (f *Flow) RequestToken(ctx context.Context) (*RequestToken, error) {
	signer := NewSigner(Credentials{
		ConsumerKey:    f.consumerKey,
		ConsumerSecret: f.consumerSecret,
	}, f.signerOpts...)

	values, err := f.tokenCall(ctx, signer, f.endpoint.RequestTokenURL, Param{Key: "oauth_callback", Value: f.callback})
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}

	rt := &RequestToken{
		Token:             values.Get("oauth_token"),
		Secret:            values.Get("oauth_token_secret"),
		CallbackConfirmed: values.Get("oauth_callback_confirmed") == "true",
		IssuedAt:          time.Now().UTC(),
	}
	if rt.Token == "" || rt.Secret == "" {
		return nil, fmt.Errorf("request token: response missing oauth_token or oauth_token_secret")
	}
	return rt, nil
}

// AuthorizeURL is the page where the account holder approves the request
// token. E*TRADE expects the consumer key and token as key/token.
func (f *Flow) AuthorizeURL(requestToken string) string {
	q := url.Values{}
	q.Set("key", f.consumerKey)
	q.Set("token", requestToken)
	return f.endpoint.AuthorizeURL + "?" + q.Encode()
}

// AccessToken exchanges an authorized request token and its verifier for the
// long-lived token pair.
func (f *Flow) AccessToken(ctx context.Context, rt *RequestToken, verifier string) (Credentials, error) {
	if rt == nil || rt.Token == "" {
		return Credentials{}, fmt.Errorf("access token: request token is required")
	}
	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return Credentials{}, fmt.Errorf("access token: verifier is required")
	}

	signer := NewSigner(Credentials{
		ConsumerKey:    f.consumerKey,
		ConsumerSecret: f.consumerSecret,
		Token:          rt.Token,
		TokenSecret:    rt.Secret,
	}, f.signerOpts...)

	values, err := f.tokenCall(ctx, signer, f.endpoint.AccessTokenURL, Param{Key: "oauth_verifier", Value: verifier})
	if err != nil {
		return Credentials{}, fmt.Errorf("access token: %w", err)
	}

	creds := Credentials{
		ConsumerKey:    f.consumerKey,
		ConsumerSecret: f.consumerSecret,
		Token:          values.Get("oauth_token"),
		TokenSecret:    values.Get("oauth_token_secret"),
	}
	if !creds.HasToken() {
		return Credentials{}, fmt.Errorf("access token: response missing oauth_token or oauth_token_secret")
	}
	return creds, nil
}

func (f *Flow) tokenCall(ctx context.Context, signer *Signer, endpoint string, extra Param) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", signer.AuthorizationHeader(http.MethodGet, endpoint, extra))

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	values, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	return values, nil
}
