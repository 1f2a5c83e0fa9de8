// internal/utils/response.go
package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shopora/shopora-backend/internal/apperrors"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	if message == "" {
		message = "Invalid request"
	}
	ErrorResponse(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = "You are not authorized to access this resource"
	}
	ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}

func NotFoundResponse(c *gin.Context, resource string) {
	ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", resource+" not found", nil)
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, "CONFLICT", message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", message, nil)
}

func ValidationErrorResponse(c *gin.Context, errs []ValidationError) {
	ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", errs)
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

// DomainErrorResponse maps the apperrors taxonomy to HTTP status codes in
// one place. Unknown errors become a generic 500; the detail is logged, not
// leaked.
func DomainErrorResponse(c *gin.Context, err error) {
	var (
		validation *apperrors.ValidationError
		notFound   *apperrors.NotFoundError
		multiStore *apperrors.MultiStoreViolation
		stock      *apperrors.InsufficientStock
		authn      *apperrors.AuthenticationError
		authz      *apperrors.AuthorizationError
		signature  *apperrors.SignatureVerificationError
	)

	switch {
	case errors.As(err, &validation):
		BadRequestResponse(c, validation.Message, nil)
	case errors.As(err, &notFound):
		NotFoundResponse(c, notFound.Resource)
	case errors.As(err, &multiStore):
		ErrorResponse(c, http.StatusConflict, "MULTI_STORE_VIOLATION", multiStore.Error(), nil)
	case errors.As(err, &stock):
		ErrorResponse(c, http.StatusConflict, "INSUFFICIENT_STOCK", stock.Error(), nil)
	case errors.As(err, &authn):
		UnauthorizedResponse(c, authn.Message)
	case errors.As(err, &authz):
		ForbiddenResponse(c, authz.Message)
	case errors.As(err, &signature):
		ErrorResponse(c, http.StatusBadRequest, "INVALID_SIGNATURE", "webhook signature verification failed", nil)
	default:
		logrus.WithError(err).Error("Unhandled service error")
		InternalErrorResponse(c, "")
	}
}
