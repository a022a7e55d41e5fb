package llm

import (
	"context"
	"errors"
	"net/http"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	openai "github.com/openai/openai-go"

	"github.com/dshills/styletwin/internal/schema"
)

// Retryable reports whether a failed provider call may succeed if repeated:
// rate limiting, server errors, timeouts, empty responses, and transport
// failures. Validation errors, cancellation, and other 4xx responses are
// final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var ve *schema.ValidationError
	if errors.As(err, &ve) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNoContent) {
		return true
	}
	var oe *openai.Error
	if errors.As(err, &oe) {
		return retryableStatus(oe.StatusCode)
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return retryableStatus(ae.StatusCode)
	}
	var pe *ProviderError
	return errors.As(err, &pe)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
