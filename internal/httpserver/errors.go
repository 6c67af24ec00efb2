package httpserver

import (
	"errors"
	"net/http"

	"giftdrive-storefront/internal/domain"
	checkoutsvc "giftdrive-storefront/internal/service/checkout"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const upstreamMessage = "The gift-drive service is not responding right now. Please try again."

var preconditionErrors = []error{
	domain.ErrMissingCartID,
	domain.ErrEmptyCart,
	domain.ErrNonPositiveTotal,
	domain.ErrVariantRequired,
	domain.ErrVariantUnavailable,
	domain.ErrNotPurchasable,
	domain.ErrBlockingIssues,
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var vErr *domain.ValidationError
	var tErr *domain.InvalidTransitionError
	switch {
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &tErr):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrNeedAlreadyInCart):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	}
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusBadGateway
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var vErr *domain.ValidationError
	if errors.As(err, &vErr) && vErr.Field != "" {
		body["field"] = vErr.Field
	}
	switch status {
	case http.StatusNotFound:
		body["error"] = "not found"
	case http.StatusBadGateway:
		logger.Error("upstream failure",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		body["error"] = upstreamMessage
	}
	c.JSON(status, body)
}

// writeResultError sends the error together with a partial step result so
// the donor can still see the blocking issues.
func writeResultError(c *gin.Context, logger *zap.Logger, err error, result *checkoutsvc.StepResult) {
	status := statusFor(err)
	if status != http.StatusUnprocessableEntity || result == nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "result": result})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
