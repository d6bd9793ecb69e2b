package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptyTemplateName is returned when a template has no display name.
var ErrEmptyTemplateName = errors.New("template name cannot be empty")

// TemplateConfig is the configuration blob of a detail template.
// A non-empty Prompt replaces the worker-resolved prompt for tasks using the template.
type TemplateConfig struct {
	Prompt string         `json:"prompt,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Template is a named, reusable configuration for detail tasks.
type Template struct {
	ID         int64
	Name       string
	CoverImage string
	Config     TemplateConfig
	IsActive   bool
	CreatedAt  time.Time
}

// NewTemplate creates an active template.
func NewTemplate(name, coverImage string, cfg TemplateConfig) (*Template, error) {
	t := &Template{
		Name:       strings.TrimSpace(name),
		CoverImage: coverImage,
		Config:     cfg,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the template's fields.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return NewValidationError("name", "cannot be empty", ErrEmptyTemplateName)
	}
	return nil
}

// PromptOverride returns the template's prompt and whether it should replace
// the resolved prompt.
func (t *Template) PromptOverride() (string, bool) {
	if t == nil {
		return "", false
	}
	p := strings.TrimSpace(t.Config.Prompt)
	return p, p != ""
}
