package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/coursegate/coursegate/internal/hotmart"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
	webhookdomain "github.com/coursegate/coursegate/internal/webhook/domain"
)

const (
	codeInvalidEmail    = "INVALID_EMAIL"
	codeInvalidRequest  = "INVALID_REQUEST"
	codeInvalidJSON     = "INVALID_JSON"
	codeAuthError       = "AUTH_ERROR"
	codeAccessDenied    = "ACCESS_DENIED"
	codeRateLimit       = "RATE_LIMIT"
	codeHotmartAPIError = "HOTMART_API_ERROR"
	codeInternalError   = "INTERNAL_ERROR"
)

// Rate-limited upstream calls without a Retry-After hint fall back to this.
const defaultRetryAfterSeconds = 60

var ErrInvalidRequest = errors.New("invalid request")

type errorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, subscriberdomain.ErrInvalidEmail),
		errors.Is(err, webhookdomain.ErrInvalidEmailFormat):
		return http.StatusBadRequest, errorResponse{
			Error:   "Validation failed",
			Message: "invalid email format",
			Code:    codeInvalidEmail,
		}
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, webhookdomain.ErrEmailNotFound),
		errors.Is(err, webhookdomain.ErrNameRequired):
		return http.StatusBadRequest, errorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
			Code:    codeInvalidRequest,
		}
	case errors.Is(err, webhookdomain.ErrInvalidPayload):
		return http.StatusBadRequest, errorResponse{
			Error:   "Validation failed",
			Message: "request body is not valid JSON",
			Code:    codeInvalidJSON,
		}
	}

	var apiErr *hotmart.APIError
	if errors.As(err, &apiErr) {
		return mapHotmartError(apiErr)
	}

	return http.StatusInternalServerError, errorResponse{
		Error:   "Internal error",
		Message: "internal server error",
		Code:    codeInternalError,
	}
}

func mapHotmartError(apiErr *hotmart.APIError) (int, errorResponse) {
	switch apiErr.StatusCode {
	case http.StatusUnauthorized:
		return http.StatusUnauthorized, errorResponse{
			Error:   "Hotmart authentication failed",
			Message: apiErr.Message,
			Code:    codeAuthError,
		}
	case http.StatusForbidden:
		return http.StatusForbidden, errorResponse{
			Error:   "Hotmart access denied",
			Message: apiErr.Message,
			Code:    codeAccessDenied,
		}
	case http.StatusTooManyRequests:
		retryAfter := apiErr.RetryAfter
		if retryAfter <= 0 {
			retryAfter = defaultRetryAfterSeconds
		}
		return http.StatusTooManyRequests, errorResponse{
			Error:      "Hotmart rate limit exceeded",
			Message:    apiErr.Message,
			Code:       codeRateLimit,
			RetryAfter: retryAfter,
		}
	default:
		return http.StatusBadGateway, errorResponse{
			Error:   "Hotmart API error",
			Message: apiErr.Message,
			Code:    codeHotmartAPIError,
		}
	}
}
