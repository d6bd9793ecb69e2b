package generation

import (
	"context"
	"fmt"
)

// Response statuses reported by a Provider.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Request is one image generation call.
type Request struct {
	Prompt          string
	NegativePrompt  string
	ReferenceImages []string
	AspectRatio     string
	Resolution      string
}

// Image is one generated output.
type Image struct {
	Data     []byte
	MIMEType string
}

// Response is the outcome of a generation call.
// Status is StatusSuccess with at least one image, or StatusError with Error set.
type Response struct {
	Status string
	Images []Image
	Error  string
}

// Err converts a provider-reported failure into an error. It returns nil
// for a successful response.
func (r *Response) Err() error {
	if r == nil {
		return fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	if r.Status == StatusSuccess {
		if len(r.Images) == 0 {
			return fmt.Errorf("%w: success without images", ErrInvalidResponse)
		}
		return nil
	}
	if r.Error == "" {
		return ErrGenerationFailed
	}
	return fmt.Errorf("%w: %s", ErrGenerationFailed, r.Error)
}

// Provider generates images from a prompt and reference images.
// Version: 1.0
type Provider interface {
	// Generate performs one generation attempt.
	//
	// Parameters:
	//   - ctx: Context for the call; cancellation aborts the attempt
	//   - req: Prompt, reference images and output shape
	//
	// Returns:
	//   - A Response whose Status reports the provider outcome
	//   - An error for transport or configuration failures (see errors.go)
	Generate(ctx context.Context, req Request) (*Response, error)
}
