package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	analyticsdomain "github.com/emberhollow/storefront/internal/analytics/domain"
	"github.com/emberhollow/storefront/internal/auth/session"
	catalogdomain "github.com/emberhollow/storefront/internal/catalog/domain"
	checkoutdomain "github.com/emberhollow/storefront/internal/checkout/domain"
	orderdomain "github.com/emberhollow/storefront/internal/order/domain"
	paymentdomain "github.com/emberhollow/storefront/internal/payment/domain"
	pointsdomain "github.com/emberhollow/storefront/internal/points/domain"
	promotiondomain "github.com/emberhollow/storefront/internal/promotion/domain"
	purchasedomain "github.com/emberhollow/storefront/internal/purchase/domain"
	refunddomain "github.com/emberhollow/storefront/internal/refund/domain"
	reviewdomain "github.com/emberhollow/storefront/internal/review/domain"
	"github.com/emberhollow/storefront/internal/token"
	userdomain "github.com/emberhollow/storefront/internal/user/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

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
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return ErrInvalidRequest
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    err.Error(),
			Message: "invalid request",
		}
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    err.Error(),
			Message: "conflict",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, checkoutdomain.ErrProviderFailure):
		return http.StatusBadGateway, errorPayload{
			Type:    "provider_failure",
			Message: "payment provider unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, checkoutdomain.ErrNoItems),
		errors.Is(err, checkoutdomain.ErrInvalidQuantity),
		errors.Is(err, checkoutdomain.ErrUnknownItem),
		errors.Is(err, checkoutdomain.ErrEmailRequired),
		errors.Is(err, checkoutdomain.ErrInvalidProvider),
		errors.Is(err, checkoutdomain.ErrPromotionRejected),
		errors.Is(err, catalogdomain.ErrInvalidID),
		errors.Is(err, catalogdomain.ErrInvalidName),
		errors.Is(err, catalogdomain.ErrInvalidPrice),
		errors.Is(err, catalogdomain.ErrInvalidQuantity),
		errors.Is(err, promotiondomain.ErrInvalidID),
		errors.Is(err, promotiondomain.ErrInvalidCode),
		errors.Is(err, promotiondomain.ErrInvalidType),
		errors.Is(err, userdomain.ErrInvalidEmail),
		errors.Is(err, userdomain.ErrWeakPassword),
		errors.Is(err, userdomain.ErrInvalidRole),
		errors.Is(err, reviewdomain.ErrInvalidRating),
		errors.Is(err, reviewdomain.ErrInvalidID),
		errors.Is(err, reviewdomain.ErrEmailRequired),
		errors.Is(err, purchasedomain.ErrInvalidID),
		errors.Is(err, purchasedomain.ErrInvalidSupplier),
		errors.Is(err, purchasedomain.ErrInvalidItems),
		errors.Is(err, purchasedomain.ErrUnknownProduct),
		errors.Is(err, pointsdomain.ErrInvalidPoints),
		errors.Is(err, refunddomain.ErrInvalidItems),
		errors.Is(err, analyticsdomain.ErrInvalidWindow),
		errors.Is(err, orderdomain.ErrInvalidOrder),
		errors.Is(err, orderdomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return true
	default:
		return false
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, userdomain.ErrInvalidCredentials),
		errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrStaleTimestamp),
		errors.Is(err, token.ErrTokenNotFound),
		errors.Is(err, token.ErrTokenExpired):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, promotiondomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, userdomain.ErrNotFound),
		errors.Is(err, reviewdomain.ErrNotFound),
		errors.Is(err, reviewdomain.ErrProductNotFound),
		errors.Is(err, purchasedomain.ErrNotFound),
		errors.Is(err, pointsdomain.ErrUserNotFound),
		errors.Is(err, refunddomain.ErrOrderNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, userdomain.ErrEmailTaken),
		errors.Is(err, catalogdomain.ErrDuplicateSlug),
		errors.Is(err, catalogdomain.ErrDuplicateVariant),
		errors.Is(err, catalogdomain.ErrInsufficientStock),
		errors.Is(err, promotiondomain.ErrDuplicate),
		errors.Is(err, promotiondomain.ErrCapExceeded),
		errors.Is(err, orderdomain.ErrAlreadyExists),
		errors.Is(err, orderdomain.ErrNotCancellable),
		errors.Is(err, pointsdomain.ErrInsufficientPoints),
		errors.Is(err, refunddomain.ErrOrderNotRefunded),
		errors.Is(err, refunddomain.ErrOverRefund):
		return true
	default:
		return false
	}
}

// classifyErrorForLog buckets handler errors for the request log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "server_error", payload.Type
	}
	return "client_error", payload.Type
}
