package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/klinvest/broker-etrade/pkg/errors"
	"github.com/klinvest/broker-etrade/pkg/logger"
)

// ErrorHandler is a Fiber error handler that converts errors to standard response format
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= fiber.StatusInternalServerError {
			logger.Error().Err(err).Str("path", c.Path()).Str("request_id", GetRequestID(c)).Msg("request failed")
		}
		return c.Status(appErr.HTTPStatus).JSON(Response{
			Error: &ErrorBody{
				Code:    appErr.Code,
				Message: appErr.Message,
				Details: detailsOf(appErr.Details),
			},
			Meta: buildMeta(c),
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(Response{
			Error: &ErrorBody{
				Code:    httpStatusToErrorCode(fiberErr.Code),
				Message: fiberErr.Message,
			},
			Meta: buildMeta(c),
		})
	}

	logger.Error().Err(err).Str("path", c.Path()).Str("request_id", GetRequestID(c)).Msg("unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(Response{
		Error: &ErrorBody{
			Code:    apperrors.ErrInternal.Code,
			Message: apperrors.ErrInternal.Message,
		},
		Meta: buildMeta(c),
	})
}

func detailsOf(details any) []string {
	switch d := details.(type) {
	case string:
		return []string{d}
	case []string:
		return d
	case error:
		return []string{d.Error()}
	}
	return nil
}

func httpStatusToErrorCode(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case fiber.StatusTooManyRequests:
		return "RATE_LIMITED"
	case fiber.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
