package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskType discriminates the generation task variants.
type TaskType string

// Supported task types.
const (
	TaskTypeTryon  TaskType = "tryon"
	TaskTypeDetail TaskType = "detail"
	TaskTypeModel  TaskType = "model"
)

// Valid reports whether t is a supported task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeTryon, TaskTypeDetail, TaskTypeModel:
		return true
	default:
		return false
	}
}

// TaskStatus represents the lifecycle state of a generation task.
type TaskStatus string

// Task status values. Queued is the only initial state; succeeded and
// failed are terminal.
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusSucceeded  TaskStatus = "succeeded"
	TaskStatusFailed     TaskStatus = "failed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusProcessing, TaskStatusSucceeded, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed
}

// AspectRatio is the requested output aspect ratio.
type AspectRatio string

// Supported aspect ratios.
const (
	AspectRatio1x1  AspectRatio = "1:1"
	AspectRatio2x3  AspectRatio = "2:3"
	AspectRatio3x2  AspectRatio = "3:2"
	AspectRatio3x4  AspectRatio = "3:4"
	AspectRatio4x3  AspectRatio = "4:3"
	AspectRatio4x5  AspectRatio = "4:5"
	AspectRatio5x4  AspectRatio = "5:4"
	AspectRatio9x16 AspectRatio = "9:16"
	AspectRatio16x9 AspectRatio = "16:9"
	AspectRatio21x9 AspectRatio = "21:9"
	AspectRatio6x9  AspectRatio = "6:9"
)

// AspectRatios lists every supported aspect ratio.
var AspectRatios = []AspectRatio{
	AspectRatio1x1, AspectRatio2x3, AspectRatio3x2, AspectRatio3x4,
	AspectRatio4x3, AspectRatio4x5, AspectRatio5x4, AspectRatio9x16,
	AspectRatio16x9, AspectRatio21x9, AspectRatio6x9,
}

// Valid reports whether r is a supported aspect ratio.
func (r AspectRatio) Valid() bool {
	for _, candidate := range AspectRatios {
		if r == candidate {
			return true
		}
	}
	return false
}

// Quality is the output resolution tier.
type Quality string

// Supported quality tiers.
const (
	Quality1K Quality = "1K"
	Quality2K Quality = "2K"
	Quality4K Quality = "4K"
)

// DefaultQuality is used when a request does not name a tier.
const DefaultQuality = Quality1K

// Valid reports whether q is a supported quality tier.
func (q Quality) Valid() bool {
	return q == Quality1K || q == Quality2K || q == Quality4K
}

// GenerationFailedCode is recorded on tasks that exhausted their retries.
const GenerationFailedCode = "GENERATION_FAILED"

// TaskResult holds the ordered output image URLs of a succeeded task.
type TaskResult struct {
	Images []string `json:"images"`
}

// TaskError holds the failure details of a failed task.
type TaskError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GenerationTask is one unit of requested image generation.
type GenerationTask struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Type   TaskType

	// Payload always matches Type; NewGenerationTask enforces this.
	Payload TaskPayload

	UserPrompt      string
	Selections      map[string][]string
	Prompt          string
	NegativePrompt  string
	PromptAssembled bool

	AspectRatio AspectRatio
	Quality     Quality
	Platform    string

	Status     TaskStatus
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	Result     *TaskResult
	Error      *TaskError

	IsDeleted bool
}

// NewTaskParams carries the inputs for creating a task.
type NewTaskParams struct {
	UserID      uuid.UUID
	Payload     TaskPayload
	UserPrompt  string
	Selections  map[string][]string
	AspectRatio AspectRatio
	Quality     Quality
	Platform    string
}

// NewGenerationTask creates a queued task from params.
// The task type is taken from the payload, so a mismatched pair cannot be built.
func NewGenerationTask(p NewTaskParams) (*GenerationTask, error) {
	if p.Quality == "" {
		p.Quality = DefaultQuality
	}

	t := &GenerationTask{
		ID:          uuid.New(),
		UserID:      p.UserID,
		Payload:     p.Payload,
		UserPrompt:  p.UserPrompt,
		Selections:  p.Selections,
		AspectRatio: p.AspectRatio,
		Quality:     p.Quality,
		Platform:    p.Platform,
		Status:      TaskStatusQueued,
		CreatedAt:   time.Now().UTC(),
	}
	if p.Payload != nil {
		t.Type = p.Payload.TaskType()
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the task's fields and lifecycle invariants.
func (t *GenerationTask) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if t.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty", ErrInvalidID)
	}
	if !t.Type.Valid() {
		return NewValidationError("task_type", "is not supported", ErrInvalidTaskType)
	}
	if t.Payload == nil {
		return NewValidationError("payload", "is required for task type "+string(t.Type), ErrPayloadMismatch)
	}
	if t.Payload.TaskType() != t.Type {
		return NewValidationError("payload", "does not match task type "+string(t.Type), ErrPayloadMismatch)
	}
	if err := t.Payload.Validate(); err != nil {
		return err
	}
	if !t.AspectRatio.Valid() {
		return NewValidationError("aspect_ratio", "is not supported", ErrInvalidAspectRatio)
	}
	if !t.Quality.Valid() {
		return NewValidationError("quality", "is not supported", ErrInvalidQuality)
	}
	if !t.Status.Valid() {
		return NewValidationError("status", "is not valid", ErrInvalidTaskStatus)
	}
	if (t.Result != nil) != (t.Status == TaskStatusSucceeded) {
		return NewValidationError("result", "must be set exactly when the task succeeded", ErrValidation)
	}
	if (t.Error != nil) != (t.Status == TaskStatusFailed) {
		return NewValidationError("error", "must be set exactly when the task failed", ErrValidation)
	}
	return nil
}

// SetPrompt stores an assembled prompt pair on the task.
func (t *GenerationTask) SetPrompt(positive, negative string) {
	t.Prompt = positive
	t.NegativePrompt = negative
	t.PromptAssembled = true
}

// MarkProcessing moves a queued task to processing and records its start time.
func (t *GenerationTask) MarkProcessing(now time.Time) error {
	if t.Status != TaskStatusQueued {
		return ErrInvalidTransition
	}
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	return nil
}

// MarkSucceeded moves a processing task to succeeded with the given result.
func (t *GenerationTask) MarkSucceeded(result TaskResult, now time.Time) error {
	if t.Status != TaskStatusProcessing {
		return ErrInvalidTransition
	}
	if result.Images == nil {
		result.Images = []string{}
	}
	t.Status = TaskStatusSucceeded
	t.Result = &result
	t.FinishedAt = &now
	return nil
}

// MarkFailed moves a processing task to failed with the given error.
func (t *GenerationTask) MarkFailed(taskErr TaskError, now time.Time) error {
	if t.Status != TaskStatusProcessing {
		return ErrInvalidTransition
	}
	t.Status = TaskStatusFailed
	t.Error = &taskErr
	t.FinishedAt = &now
	return nil
}

// ReferenceImages returns the input images the provider should see for this task.
func (t *GenerationTask) ReferenceImages() []string {
	if t.Payload == nil {
		return nil
	}
	return t.Payload.ReferenceImages()
}
