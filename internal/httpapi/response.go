package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dshills/styletwin/internal/engine"
	"github.com/dshills/styletwin/internal/llm"
	"github.com/dshills/styletwin/internal/schema"
	"github.com/dshills/styletwin/internal/store"
	"github.com/dshills/styletwin/internal/vecmath"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// classify maps an engine error to an HTTP status and error code.
func classify(err error) (int, string) {
	var ve *schema.ValidationError
	var pe *llm.ProviderError
	var mbe *http.MaxBytesError
	switch {
	case errors.Is(err, engine.ErrMissingInput):
		return http.StatusBadRequest, "missing_input"
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "profile_not_found"
	case errors.Is(err, engine.ErrStyleVectorUnset):
		return http.StatusNotFound, "style_vector_unset"
	case errors.Is(err, vecmath.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity, "dimension_mismatch"
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, "invalid_input"
	case errors.As(err, &pe):
		return http.StatusBadGateway, "provider_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
