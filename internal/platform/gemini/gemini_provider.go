package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/atelier-api/internal/config"
	"github.com/phrazzld/atelier-api/internal/generation"
	"google.golang.org/genai"
)

// contentGenerator is the subset of the genai Models service the provider
// uses. Tests substitute a fake.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// referenceSource loads reference images for a request.
type referenceSource interface {
	Load(ctx context.Context, location string) (ReferenceImage, error)
}

// Provider implements generation.Provider with Gemini image models.
type Provider struct {
	// logger is used for structured logging
	logger *slog.Logger

	// models issues GenerateContent calls
	models contentGenerator

	// references loads reference images
	references referenceSource

	// model is the name of the Gemini model to use
	model string
}

var _ generation.Provider = (*Provider)(nil)

// NewProvider creates a Provider backed by a Gemini API client.
//
// Parameters:
//   - ctx: Context for client initialization
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing API key, model name and fetch timeout
//
// Returns:
//   - A properly initialized Provider or an error if initialization fails
func NewProvider(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return newProvider(logger, client.Models, NewReferenceLoader(cfg.ReferenceFetchTimeout), cfg.ModelName), nil
}

func newProvider(logger *slog.Logger, models contentGenerator, refs referenceSource, model string) *Provider {
	return &Provider{
		logger:     logger.With("component", "gemini_provider"),
		models:     models,
		references: refs,
		model:      model,
	}
}

// Generate performs one image generation call.
//
// Transport failures and reference fetch failures caused by the remote side
// wrap generation.ErrTransientFailure. Safety blocks wrap
// generation.ErrContentBlocked. A response without image parts is reported
// as a Response with StatusError.
func (p *Provider) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	parts := []*genai.Part{genai.NewPartFromText(buildPromptText(req))}
	for _, location := range req.ReferenceImages {
		ref, err := p.references.Load(ctx, location)
		if err != nil {
			return nil, err
		}
		parts = append(parts, genai.NewPartFromBytes(ref.Data, ref.MIMEType))
	}

	p.logger.DebugContext(ctx, "Making Gemini API call",
		"model", p.model,
		"reference_count", len(req.ReferenceImages),
		"aspect_ratio", req.AspectRatio,
		"resolution", req.Resolution)

	resp, err := p.models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	return parseResponse(resp)
}

// buildPromptText renders the request into the single text part Gemini
// receives. The image models take output shape and exclusions as
// instructions rather than parameters.
func buildPromptText(req generation.Request) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Prompt))
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		b.WriteString("\n\nAvoid: ")
		b.WriteString(neg)
	}
	if req.AspectRatio != "" {
		b.WriteString("\n\nAspect ratio: ")
		b.WriteString(req.AspectRatio)
	}
	if req.Resolution != "" {
		b.WriteString("\nResolution: ")
		b.WriteString(req.Resolution)
	}
	return b.String()
}

// parseResponse extracts inline image parts from the first candidate.
func parseResponse(resp *genai.GenerateContentResponse) (*generation.Response, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked (%s)",
			generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return &generation.Response{Status: generation.StatusError, Error: "no candidates returned"}, nil
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return &generation.Response{Status: generation.StatusError, Error: "empty content in response"}, nil
	}

	var (
		images []generation.Image
		text   strings.Builder
	)
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			images = append(images, generation.Image{Data: part.InlineData.Data, MIMEType: mimeType})
			continue
		}
		text.WriteString(part.Text)
	}

	if len(images) == 0 {
		msg := "no image in response"
		if t := strings.TrimSpace(text.String()); t != "" {
			msg = msg + ": " + t
		}
		return &generation.Response{Status: generation.StatusError, Error: msg}, nil
	}
	return &generation.Response{Status: generation.StatusSuccess, Images: images}, nil
}
