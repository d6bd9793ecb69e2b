package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TaskPayload is the type-specific part of a generation task.
// It is a closed set: only TryonPayload, DetailPayload and ModelPayload
// implement it.
type TaskPayload interface {
	TaskType() TaskType
	ReferenceImages() []string
	Validate() error
	isTaskPayload()
}

// DefaultTryonSeed asks the provider to pick its own seed.
const DefaultTryonSeed = -1

// TryonPayload describes a virtual try-on request.
type TryonPayload struct {
	PersonImage  string  `json:"person_image"`
	GarmentImage string  `json:"garment_image"`
	Category     string  `json:"category"`
	Seed         int     `json:"seed"`
	MaskImage    *string `json:"mask_image,omitempty"`
}

// DetailPayload describes a product detail-page request.
// TemplateID is required at creation. A stored task reads back nil once its
// template has been deleted.
type DetailPayload struct {
	InputImage   string         `json:"input_image"`
	TemplateID   *int64         `json:"template_id,omitempty"`
	ExtraOptions map[string]any `json:"extra_options,omitempty"`
}

// ModelPayload describes a model photo request.
type ModelPayload struct {
	BaseModel         *string        `json:"base_model,omitempty"`
	LoraConfig        map[string]any `json:"lora_config,omitempty"`
	NumInferenceSteps *int           `json:"num_inference_steps,omitempty"`
	GuidanceScale     *float64       `json:"guidance_scale,omitempty"`
}

var (
	_ TaskPayload = TryonPayload{}
	_ TaskPayload = DetailPayload{}
	_ TaskPayload = ModelPayload{}
)

func (TryonPayload) isTaskPayload()  {}
func (DetailPayload) isTaskPayload() {}
func (ModelPayload) isTaskPayload()  {}

// TaskType implements TaskPayload.
func (TryonPayload) TaskType() TaskType { return TaskTypeTryon }

// TaskType implements TaskPayload.
func (DetailPayload) TaskType() TaskType { return TaskTypeDetail }

// TaskType implements TaskPayload.
func (ModelPayload) TaskType() TaskType { return TaskTypeModel }

// ReferenceImages returns person, garment and, when present, mask images.
func (p TryonPayload) ReferenceImages() []string {
	images := []string{p.PersonImage, p.GarmentImage}
	if p.MaskImage != nil && *p.MaskImage != "" {
		images = append(images, *p.MaskImage)
	}
	return images
}

// ReferenceImages returns the detail input image.
func (p DetailPayload) ReferenceImages() []string {
	return []string{p.InputImage}
}

// ReferenceImages returns nothing; model tasks are prompt-only.
func (ModelPayload) ReferenceImages() []string {
	return nil
}

// Validate implements TaskPayload.
func (p TryonPayload) Validate() error {
	if strings.TrimSpace(p.PersonImage) == "" {
		return NewValidationError("tryon.person_image", "is required", ErrValidation)
	}
	if strings.TrimSpace(p.GarmentImage) == "" {
		return NewValidationError("tryon.garment_image", "is required", ErrValidation)
	}
	return nil
}

// Validate implements TaskPayload.
func (p DetailPayload) Validate() error {
	if strings.TrimSpace(p.InputImage) == "" {
		return NewValidationError("detail.input_image", "is required", ErrValidation)
	}
	if p.TemplateID == nil {
		return NewValidationError("detail.template_id", "is required", ErrValidation)
	}
	if *p.TemplateID <= 0 {
		return NewValidationError("detail.template_id", "must be positive", ErrInvalidID)
	}
	return nil
}

// Validate implements TaskPayload.
func (p ModelPayload) Validate() error {
	if p.NumInferenceSteps != nil && *p.NumInferenceSteps <= 0 {
		return NewValidationError("model.num_inference_steps", "must be positive", ErrValidation)
	}
	if p.GuidanceScale != nil && *p.GuidanceScale < 0 {
		return NewValidationError("model.guidance_scale", "cannot be negative", ErrValidation)
	}
	return nil
}

// MarshalPayload encodes a payload for storage.
func MarshalPayload(p TaskPayload) ([]byte, error) {
	if p == nil {
		return nil, ErrPayloadMismatch
	}
	return json.Marshal(p)
}

// UnmarshalPayload decodes a stored payload for the given task type.
func UnmarshalPayload(taskType TaskType, data []byte) (TaskPayload, error) {
	switch taskType {
	case TaskTypeTryon:
		p := TryonPayload{Seed: DefaultTryonSeed}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: tryon payload: %v", ErrPayloadMismatch, err)
		}
		return p, nil
	case TaskTypeDetail:
		var p DetailPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: detail payload: %v", ErrPayloadMismatch, err)
		}
		return p, nil
	case TaskTypeModel:
		var p ModelPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: model payload: %v", ErrPayloadMismatch, err)
		}
		return p, nil
	default:
		return nil, ErrInvalidTaskType
	}
}
