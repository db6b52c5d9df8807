package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/klinvest/broker-etrade/pkg/errors"
	"github.com/klinvest/broker-etrade/pkg/events"
	"github.com/klinvest/broker-etrade/pkg/logger"
	"github.com/klinvest/broker-etrade/pkg/oauth1"
	"github.com/klinvest/broker-etrade/pkg/response"
	"github.com/klinvest/broker-etrade/services/broker-etrade/internal/session"
	"github.com/klinvest/broker-etrade/services/broker-etrade/internal/types"
)

// Handler exposes the broker session over HTTP
type Handler struct {
	session   *session.Session
	flow      *oauth1.Flow
	tokens    oauth1.RequestTokenStore
	publisher events.Publisher
	service   string
}

// New creates a broker handler. flow may be nil when no consumer key is
// configured, in which case the OAuth endpoints report missing credentials.
func New(
	sess *session.Session,
	flow *oauth1.Flow,
	tokens oauth1.RequestTokenStore,
	publisher events.Publisher,
	service string,
) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Handler{
		session:   sess,
		flow:      flow,
		tokens:    tokens,
		publisher: publisher,
		service:   service,
	}
}

// Register mounts the broker routes on r
func (h *Handler) Register(r fiber.Router) {
	r.Post("/initialize", h.Initialize)
	r.Post("/accounts", h.GetAccounts)
	r.Post("/positions", h.GetPositions)
	r.Post("/orders", h.SubmitOrder)
	r.Get("/orders/:id", h.GetOrder)
	r.Get("/status", h.Status)

	oauth := r.Group("/oauth")
	oauth.Post("/request-token", h.RequestToken)
	oauth.Post("/access-token", h.AccessToken)
}

// Initialize configures the session from request credentials
func (h *Handler) Initialize(c *fiber.Ctx) error {
	var req types.InitializeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithDetails(err)
	}

	before := h.session.State()
	resp := h.session.Initialize(c.UserContext(), req)
	if before != session.Authenticated && h.session.State() == session.Authenticated {
		h.publishAuthenticated(c.UserContext(), req.Sandbox())
	}

	return response.Success(c, resp)
}

// GetAccounts lists accounts. The request body is optional.
func (h *Handler) GetAccounts(c *fiber.Ctx) error {
	var req types.GetAccountsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.ErrValidation.WithDetails(err)
		}
	}

	return response.Success(c, h.session.GetAccounts(c.UserContext(), req))
}

func (h *Handler) GetPositions(c *fiber.Ctx) error {
	var req types.GetPositionsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithDetails(err)
	}
	if req.AccountID == "" {
		return apperrors.ErrValidation.WithDetails("account_id is required")
	}

	return response.Success(c, h.session.GetPositions(c.UserContext(), req))
}

// SubmitOrder places an order and publishes its outcome. Rejections are
// returned as data with status 200.
func (h *Handler) SubmitOrder(c *fiber.Ctx) error {
	var req types.SubmitOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithDetails(err)
	}

	ctx := c.UserContext()
	resp := h.session.SubmitOrder(ctx, req)

	topic, event := events.NewOrderEvent(h.service, req.AccountID, &resp.Order, h.session.Sandbox())
	event.WithMetadata("request_id", response.GetRequestID(c))
	if err := h.publisher.Publish(ctx, topic, event); err != nil {
		logger.Warn().Err(err).Str("order_id", resp.Order.ID).Str("topic", topic).Msg("Failed to publish order event")
	}

	return response.Success(c, resp)
}

// GetOrder reads an order from the local ledger
func (h *Handler) GetOrder(c *fiber.Ctx) error {
	id := c.Params("id")
	order, ok := h.session.Order(id)
	if !ok {
		return apperrors.ErrOrderNotFound.WithDetails("order " + id + " was not submitted through this session")
	}
	return response.Success(c, types.SubmitOrderResponse{Order: order})
}

func (h *Handler) Status(c *fiber.Ctx) error {
	return response.Success(c, h.session.Status())
}

// RequestToken starts the OAuth authorization and returns the page the
// account holder must visit
func (h *Handler) RequestToken(c *fiber.Ctx) error {
	if h.flow == nil {
		return apperrors.ErrMissingCredentials
	}

	ctx := c.UserContext()
	rt, err := h.flow.RequestToken(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to obtain request token")
		return apperrors.ErrBrokerUnavailable.WithError(err)
	}

	if err := h.tokens.Save(ctx, rt); err != nil {
		logger.Error().Err(err).Msg("Failed to store request token")
		return apperrors.ErrInternal.WithError(err)
	}

	return response.Success(c, types.RequestTokenResponse{
		OAuthToken:   rt.Token,
		AuthorizeURL: h.flow.AuthorizeURL(rt.Token),
		ExpiresIn:    int(oauth1.RequestTokenTTL / time.Second),
	})
}

// AccessToken exchanges the verifier for an access token and authenticates
// the session with it
func (h *Handler) AccessToken(c *fiber.Ctx) error {
	if h.flow == nil {
		return apperrors.ErrMissingCredentials
	}

	var req types.AccessTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.ErrValidation.WithDetails(err)
	}
	if req.OAuthToken == "" || req.OAuthVerifier == "" {
		return apperrors.ErrValidation.WithDetails("oauth_token and oauth_verifier are required")
	}

	ctx := c.UserContext()
	rt, err := h.tokens.Take(ctx, req.OAuthToken)
	if err != nil {
		if errors.Is(err, oauth1.ErrRequestTokenNotFound) {
			return apperrors.ErrRequestTokenExpired
		}
		return apperrors.ErrInternal.WithError(err)
	}

	creds, err := h.flow.AccessToken(ctx, rt, req.OAuthVerifier)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to obtain access token")
		return apperrors.ErrBrokerUnavailable.WithError(err)
	}

	resp := h.session.Initialize(ctx, types.InitializeRequest{
		ConsumerKey:      creds.ConsumerKey,
		ConsumerSecret:   creds.ConsumerSecret,
		OAuthToken:       creds.Token,
		OAuthTokenSecret: creds.TokenSecret,
		IsSandbox:        req.IsSandbox,
	})
	if resp.Success {
		h.publishAuthenticated(ctx, req.Sandbox())
	}

	return response.Success(c, resp)
}

func (h *Handler) publishAuthenticated(ctx context.Context, sandbox bool) {
	env := "production"
	if sandbox {
		env = "sandbox"
	}
	event := events.NewEvent(events.EventTypeSessionAuthenticated, h.service, events.SessionAuthenticatedPayload{
		Environment:     env,
		AuthenticatedAt: time.Now().UTC(),
	})
	if err := h.publisher.Publish(ctx, events.TopicSessionAuthenticated, event); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish session event")
	}
}
