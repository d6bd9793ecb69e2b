package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyPrompt is returned when a request carries no prompt text.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrUnsupportedReference is returned for reference images that are neither URLs nor paths.
	ErrUnsupportedReference = errors.New("unsupported reference image location")
)
