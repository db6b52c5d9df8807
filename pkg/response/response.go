package response

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/klinvest/broker-etrade/pkg/telemetry"
)

// =============================================================================
// Standard API Response Envelope
// =============================================================================
// Success Response:
//
//	{
//	  "data": { ... },
//	  "meta": {
//	    "request_id": "uuid",
//	    "timestamp": "2026-01-31T12:00:00Z"
//	  }
//	}
//
// Error Response:
//
//	{
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "Invalid input",
//	    "details": ["symbol is required"]
//	  },
//	  "meta": { ... }
//	}
//
// Broker operations that degrade into error-shaped domain values (error
// account, rejected order) are still success envelopes.
// =============================================================================

// Response is the standard API response envelope
type Response struct {
	Data  any        `json:"data,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
	Meta  Meta       `json:"meta"`
}

// ErrorBody contains error details
type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Meta contains request metadata
type Meta struct {
	RequestID string    `json:"request_id"`
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// Success returns a successful response with data
func Success(c *fiber.Ctx, data any) error {
	return c.JSON(Response{
		Data: data,
		Meta: buildMeta(c),
	})
}

func buildMeta(c *fiber.Ctx) Meta {
	requestID := GetRequestID(c)
	if requestID == "" {
		requestID = uuid.New().String()
		c.Locals("request_id", requestID)
	}

	return Meta{
		RequestID: requestID,
		TraceID:   telemetry.TraceID(c.UserContext()),
		Timestamp: time.Now().UTC(),
		Version:   "v1",
	}
}

// GetRequestID extracts request ID from context
func GetRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok && id != "" {
		return id
	}
	return c.Get("X-Request-ID")
}
