// Package oauth1 implements OAuth 1.0a request signing (HMAC-SHA1) and the
// three-legged token flow used by the E*TRADE API.
package oauth1

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureMethod = "HMAC-SHA1"
	Version         = "1.0"
)

// Credentials is the consumer and token pair used to sign requests.
// Token and TokenSecret are empty while requesting a request token.
type Credentials struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	Token          string `json:"oauth_token"`
	TokenSecret    string `json:"oauth_token_secret"`
}

// HasToken reports whether both halves of the token pair are present.
func (c Credentials) HasToken() bool {
	return c.Token != "" && c.TokenSecret != ""
}

// Param is a single signed parameter. Order matters for header rendering.
type Param struct {
	Key   string
	Value string
}

// Signer produces OAuth 1.0a signatures and Authorization headers.
// It is safe for concurrent use.
type Signer struct {
	creds Credentials
	now   func() time.Time
	nonce func() string
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// WithNonceSource overrides the nonce generator.
func WithNonceSource(nonce func() string) SignerOption {
	return func(s *Signer) {
		s.nonce = nonce
	}
}

// NewSigner creates a signer for the given credentials.
func NewSigner(creds Credentials, opts ...SignerOption) *Signer {
	s := &Signer{
		creds: creds,
		now:   time.Now,
		nonce: NewNonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewNonce returns 16 lowercase hex digits of a random uint64.
func NewNonce() string {
	return fmt.Sprintf("%016x", rand.Uint64())
}

// Signature computes the base64 HMAC-SHA1 signature over the base string
// built from method, rawURL and params. The input order of params does not
// affect the result.
func (s *Signer) Signature(method, rawURL string, params []Param) string {
	base := BaseString(method, rawURL, params)

	mac := hmac.New(sha1.New, []byte(s.signingKey()))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Signer) signingKey() string {
	return Encode(s.creds.ConsumerSecret) + "&" + Encode(s.creds.TokenSecret)
}

// BaseString builds METHOD&enc(url)&enc(sorted params).
func BaseString(method, rawURL string, params []Param) string {
	sorted := make([]Param, len(params))
	copy(sorted, params)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Key != sorted[j].Key {
			return sorted[i].Key < sorted[j].Key
		}
		return sorted[i].Value < sorted[j].Value
	})

	pairs := make([]string, len(sorted))
	for i, p := range sorted {
		pairs[i] = Encode(p.Key) + "=" + Encode(p.Value)
	}

	return strings.ToUpper(method) + "&" + Encode(rawURL) + "&" + Encode(strings.Join(pairs, "&"))
}

// AuthorizationHeader returns the full "OAuth ..." header value for a request.
// extra carries additional protocol parameters such as oauth_callback or
// oauth_verifier; they are signed and rendered after the standard set.
func (s *Signer) AuthorizationHeader(method, rawURL string, extra ...Param) string {
	params := s.protocolParams(extra)
	params = append(params, Param{Key: "oauth_signature", Value: s.Signature(method, rawURL, params)})

	rendered := make([]string, len(params))
	for i, p := range params {
		rendered[i] = p.Key + `="` + Encode(p.Value) + `"`
	}
	return "OAuth " + strings.Join(rendered, ", ")
}

func (s *Signer) protocolParams(extra []Param) []Param {
	params := make([]Param, 0, 6+len(extra)+1)
	params = append(params, Param{Key: "oauth_consumer_key", Value: s.creds.ConsumerKey})
	if s.creds.Token != "" {
		params = append(params, Param{Key: "oauth_token", Value: s.creds.Token})
	}
	params = append(params,
		Param{Key: "oauth_signature_method", Value: SignatureMethod},
		Param{Key: "oauth_timestamp", Value: strconv.FormatInt(s.now().Unix(), 10)},
		Param{Key: "oauth_nonce", Value: s.nonce()},
		Param{Key: "oauth_version", Value: Version},
	)
	return append(params, extra...)
}
