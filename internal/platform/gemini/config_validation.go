package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/atelier-api/internal/config"
	"github.com/phrazzld/atelier-api/internal/generation"
)

// validateConfig checks the LLM settings the provider cannot run without.
//
// Parameters:
//   - ctx: Context for logging
//   - logger: Logger for recording validation results
//   - cfg: The LLM configuration to validate
//
// Returns:
//   - An error wrapping generation.ErrInvalidConfig if validation fails
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "Missing Gemini API key")
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		logger.ErrorContext(ctx, "Missing Gemini model name")
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ReferenceFetchTimeout <= 0 {
		logger.WarnContext(ctx, "Invalid reference fetch timeout",
			"value", cfg.ReferenceFetchTimeout,
			"action", "using default value")
	}

	return nil
}
