package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/klinvest/broker-etrade/pkg/errors"
	"github.com/klinvest/broker-etrade/pkg/etrade"
	"github.com/klinvest/broker-etrade/pkg/logger"
	"github.com/klinvest/broker-etrade/pkg/metrics"
	"github.com/klinvest/broker-etrade/pkg/models"
	"github.com/klinvest/broker-etrade/pkg/oauth1"
	"github.com/klinvest/broker-etrade/pkg/telemetry"
	"github.com/klinvest/broker-etrade/services/broker-etrade/internal/types"
)

// State is the authentication state of a Session
type State string

const (
	Uninitialized State = "uninitialized"
	Authenticated State = "authenticated"
)

const (
	msgNotInitialized = "broker not initialized or OAuth not completed"
	msgNoAccounts     = "no accounts returned by E*TRADE"
)

var errMissingConsumer = errors.New("missing required configuration: consumer_key or consumer_secret")

// ClientFactory builds the E*TRADE client for an authenticated session
type ClientFactory func(creds oauth1.Credentials, sandbox bool) etrade.BrokerageClient

// DefaultClientFactory returns a factory for signed REST clients. baseURL
// overrides the environment host when non-empty.
func DefaultClientFactory(baseURL string, httpClient *http.Client) ClientFactory {
	return func(creds oauth1.Credentials, sandbox bool) etrade.BrokerageClient {
		return etrade.NewClient(&etrade.Config{
			Credentials: creds,
			Sandbox:     sandbox,
			BaseURL:     baseURL,
			HTTPClient:  httpClient,
		})
	}
}

type Option func(*Session)

func WithClientFactory(f ClientFactory) Option {
	return func(s *Session) { s.newClient = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithServiceName(name string) Option {
	return func(s *Session) { s.service = name }
}

// Session owns the credentials, the E*TRADE client and the order ledger.
// Every entry point holds the mutex for its whole duration, vendor round
// trips included, so operations are serialized.
type Session struct {
	mu sync.Mutex

	state   State
	creds   oauth1.Credentials
	sandbox bool
	client  etrade.BrokerageClient
	ledger  *Ledger

	// accountKeys maps public account IDs to accountIdKey from the last sync
	accountKeys map[string]string
	synced      bool
	lastSync    time.Time

	newClient ClientFactory
	now       func() time.Time
	service   string
	log       zerolog.Logger
}

func New(opts ...Option) *Session {
	s := &Session{
		state:       Uninitialized,
		ledger:      NewLedger(),
		accountKeys: make(map[string]string),
		newClient:   DefaultClientFactory("", nil),
		now:         time.Now,
		service:     etrade.BrokerID,
		log:         logger.Component("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize configures the session. A full token pair authenticates it; a
// consumer key and secret alone succeed but report that the OAuth
// authorization step is still required.
func (s *Session) Initialize(ctx context.Context, req types.InitializeRequest) types.InitializeResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, span := telemetry.StartSpan(ctx, "session.initialize")

	if req.ConsumerKey == "" || req.ConsumerSecret == "" {
		telemetry.EndSpan(span, errMissingConsumer)
		return types.InitializeResponse{
			Success: false,
			Error:   "Missing required configuration: consumer_key or consumer_secret",
		}
	}

	sandbox := req.Sandbox()
	creds := oauth1.Credentials{
		ConsumerKey:    req.ConsumerKey,
		ConsumerSecret: req.ConsumerSecret,
		Token:          req.OAuthToken,
		TokenSecret:    req.OAuthTokenSecret,
	}

	if creds.Token == "" || creds.TokenSecret == "" {
		telemetry.EndSpan(span, nil)
		s.log.Info().Bool("sandbox", sandbox).Msg("Consumer configured, OAuth authorization required")
		return types.InitializeResponse{
			Success:      true,
			Message:      "E*TRADE broker initialized. OAuth authorization required.",
			RequiresAuth: true,
			AuthURL:      etrade.AuthorizeURL,
		}
	}

	s.creds = creds
	s.sandbox = sandbox
	s.client = s.newClient(creds, sandbox)
	s.state = Authenticated
	s.accountKeys = make(map[string]string)

	span.SetAttributes(attribute.String("etrade.environment", environment(sandbox)))
	telemetry.EndSpan(span, nil)
	metrics.SetSessionAuthenticated(s.service, true)
	s.log.Info().Str("environment", environment(sandbox)).Msg("Session authenticated")

	return types.InitializeResponse{
		Success: true,
		Message: fmt.Sprintf("E*TRADE broker initialized (%s)", environment(sandbox)),
	}
}

// GetAccounts lists the accounts with balances and positions. Failures come
// back as a single account with ID "error".
func (s *Session) GetAccounts(ctx context.Context, _ types.GetAccountsRequest) types.GetAccountsResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "session.get_accounts")

	if s.client == nil {
		telemetry.EndSpan(span, errNotInitialized())
		return types.GetAccountsResponse{Accounts: []models.AccountSummary{s.errorAccount(msgNotInitialized)}}
	}

	accounts, err := s.client.ListAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = errors.New(msgNoAccounts)
	}
	telemetry.EndSpan(span, err)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to fetch accounts")
		return types.GetAccountsResponse{Accounts: []models.AccountSummary{s.errorAccount(err.Error())}}
	}

	s.accountKeys = make(map[string]string, len(accounts))
	for _, acct := range accounts {
		if key, ok := acct.Extensions["account_id_key"].(string); ok && key != "" {
			s.accountKeys[acct.ID] = key
		}
	}
	s.synced = true
	s.lastSync = s.now().UTC()
	metrics.SetAccountsSynced(s.service, len(accounts))

	return types.GetAccountsResponse{Accounts: accounts}
}

// GetPositions returns the holdings of an account, or an empty list on any
// failure.
func (s *Session) GetPositions(ctx context.Context, req types.GetPositionsRequest) types.GetPositionsResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "session.get_positions")
	empty := types.GetPositionsResponse{Positions: []models.Position{}}

	if s.client == nil {
		telemetry.EndSpan(span, errNotInitialized())
		return empty
	}

	positions, err := s.client.GetPositions(ctx, s.accountKey(req.AccountID))
	telemetry.EndSpan(span, err)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", req.AccountID).Msg("Failed to fetch positions")
		return empty
	}
	if positions == nil {
		positions = []models.Position{}
	}
	return types.GetPositionsResponse{Positions: positions}
}

// SubmitOrder validates and places an order. Anything short of acceptance by
// E*TRADE yields a rejected order carrying the reason in extensions.
func (s *Session) SubmitOrder(ctx context.Context, req types.SubmitOrderRequest) types.SubmitOrderResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "session.submit_order")
	span.SetAttributes(
		attribute.String("order.symbol", req.Order.SymbolID),
		attribute.String("order.side", string(req.Order.Side)),
		attribute.String("order.type", string(req.Order.Type)),
	)

	order, err := s.submit(ctx, req)
	telemetry.EndSpan(span, err)
	if err != nil {
		s.log.Error().Err(err).
			Str("account_id", req.AccountID).
			Str("symbol", req.Order.SymbolID).
			Msg("Order failed")
		order = s.rejectedOrder(req.Order, reason(err))
	}

	metrics.RecordBrokerOrder(s.service, string(req.Order.Side), string(req.Order.Type), string(order.Status))
	return types.SubmitOrderResponse{Order: *order}
}

func (s *Session) submit(ctx context.Context, req types.SubmitOrderRequest) (*models.Order, error) {
	if s.client == nil {
		return nil, errNotInitialized()
	}
	if err := req.Order.Validate(); err != nil {
		return nil, err
	}

	order, err := s.client.SubmitOrder(ctx, s.accountKey(req.AccountID), &req.Order)
	if err != nil {
		return nil, err
	}
	if order.PersonaID == "" {
		order.PersonaID = req.Order.PersonaID
	}

	n := s.ledger.Insert(*order)
	metrics.SetTrackedOrders(s.service, s.ledger.Len())
	s.log.Debug().Str("order_id", order.ID).Uint64("submissions", n).Msg("Order tracked")
	return order, nil
}

// Order returns an order submitted through this session.
func (s *Session) Order(id string) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Lookup(id)
}

func (s *Session) Status() types.StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := types.StatusResponse{
		State:          string(s.state),
		AccountsSynced: s.synced,
		TrackedOrders:  s.ledger.Len(),
		Submissions:    s.ledger.Submissions(),
	}
	if s.state == Authenticated {
		status.Environment = environment(s.sandbox)
	}
	if s.synced {
		t := s.lastSync
		status.LastSyncAt = &t
	}
	return status
}

// State returns the current authentication state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Sandbox reports the environment of the authenticated client.
func (s *Session) Sandbox() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sandbox
}

// accountKey resolves a public account ID to its accountIdKey. Unknown
// values are assumed to already be keys.
func (s *Session) accountKey(accountID string) string {
	if key, ok := s.accountKeys[accountID]; ok {
		return key
	}
	return accountID
}

func (s *Session) errorAccount(msg string) models.AccountSummary {
	return models.AccountSummary{
		ID:        "error",
		Name:      "Error: " + msg,
		BrokerID:  etrade.BrokerID,
		IsPaper:   true,
		Balance:   models.ZeroBalance("USD"),
		Positions: []models.Position{},
		UpdatedAt: s.now().UTC(),
	}
}

func (s *Session) rejectedOrder(req models.OrderRequest, msg string) *models.Order {
	now := s.now().UTC()
	return &models.Order{
		ID:        fmt.Sprintf("error_%d", now.UnixMilli()),
		Request:   req,
		Status:    models.OrderStatusRejected,
		CreatedAt: now,
		UpdatedAt: now,
		Extensions: map[string]any{
			"error": msg,
		},
		PersonaID: req.PersonaID,
	}
}

func errNotInitialized() error {
	return apperrors.ErrBrokerNotInitialized.WithMessage(msgNotInitialized)
}

func reason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func environment(sandbox bool) string {
	if sandbox {
		return "sandbox"
	}
	return "production"
}
