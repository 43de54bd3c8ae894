package textgen

import (
	"context"
	"errors"
	"fmt"
)

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrUnavailable indicates the generation service could not be reached at all
// (network failure, timeout). Errors from Generate wrap it so callers can
// distinguish "service down" from an upstream rejection.
var ErrUnavailable = errors.New("text generation service unavailable")

// UpstreamError is a non-2xx response from the completion endpoint.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion endpoint returned %d: %s", e.StatusCode, e.Body)
}
