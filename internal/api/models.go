package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/service"
	"github.com/phrazzld/atelier-api/internal/store"
)

// CreateTaskRequest defines the payload for the task creation endpoint.
// Exactly the sub-object matching TaskType is used; the others are ignored.
type CreateTaskRequest struct {
	TaskType    string              `json:"task_type"    validate:"required,oneof=tryon detail model"`
	Prompt      string              `json:"prompt"       validate:"max=2000"`
	Selections  map[string][]string `json:"selections"`
	AspectRatio string              `json:"aspect_ratio"`
	Quality     string              `json:"quality"`
	Platform    string              `json:"platform"     validate:"max=50"`

	Tryon  *TryonParams  `json:"tryon"  validate:"required_if=TaskType tryon"`
	Detail *DetailParams `json:"detail" validate:"required_if=TaskType detail"`
	Model  *ModelParams  `json:"model"`
}

// TryonParams are the virtual try-on inputs.
type TryonParams struct {
	PersonImage  string  `json:"person_image"  validate:"required"`
	GarmentImage string  `json:"garment_image" validate:"required"`
	Category     string  `json:"category"      validate:"required,max=32"`
	Seed         *int    `json:"seed"`
	MaskImage    *string `json:"mask_image"`
}

// DetailParams are the product detail-page inputs.
type DetailParams struct {
	InputImage   string         `json:"input_image"  validate:"required"`
	TemplateID   *int64         `json:"template_id"  validate:"required,gt=0"`
	ExtraOptions map[string]any `json:"extra_options"`
}

// ModelParams are the optional model photo tuning inputs.
type ModelParams struct {
	BaseModel         *string        `json:"base_model"`
	LoraConfig        map[string]any `json:"lora_config"`
	NumInferenceSteps *int           `json:"num_inference_steps" validate:"omitempty,gt=0"`
	GuidanceScale     *float64       `json:"guidance_scale"      validate:"omitempty,gte=0"`
}

// payload builds the domain payload for the requested task type.
func (r CreateTaskRequest) payload() (domain.TaskPayload, error) {
	switch domain.TaskType(r.TaskType) {
	case domain.TaskTypeTryon:
		if r.Tryon == nil {
			return nil, domain.NewValidationError("tryon", "is required", domain.ErrPayloadMismatch)
		}
		seed := domain.DefaultTryonSeed
		if r.Tryon.Seed != nil {
			seed = *r.Tryon.Seed
		}
		return domain.TryonPayload{
			PersonImage:  r.Tryon.PersonImage,
			GarmentImage: r.Tryon.GarmentImage,
			Category:     r.Tryon.Category,
			Seed:         seed,
			MaskImage:    r.Tryon.MaskImage,
		}, nil
	case domain.TaskTypeDetail:
		if r.Detail == nil {
			return nil, domain.NewValidationError("detail", "is required", domain.ErrPayloadMismatch)
		}
		return domain.DetailPayload{
			InputImage:   r.Detail.InputImage,
			TemplateID:   r.Detail.TemplateID,
			ExtraOptions: r.Detail.ExtraOptions,
		}, nil
	case domain.TaskTypeModel:
		var p domain.ModelPayload
		if r.Model != nil {
			p = domain.ModelPayload{
				BaseModel:         r.Model.BaseModel,
				LoraConfig:        r.Model.LoraConfig,
				NumInferenceSteps: r.Model.NumInferenceSteps,
				GuidanceScale:     r.Model.GuidanceScale,
			}
		}
		return p, nil
	default:
		return nil, domain.NewValidationError("task_type", "is not supported", domain.ErrInvalidTaskType)
	}
}

// toInput converts the request into a service input for userID.
func (r CreateTaskRequest) toInput(userID uuid.UUID) (service.CreateTaskInput, error) {
	payload, err := r.payload()
	if err != nil {
		return service.CreateTaskInput{}, err
	}
	return service.CreateTaskInput{
		UserID:      userID,
		Payload:     payload,
		UserPrompt:  r.Prompt,
		Selections:  r.Selections,
		AspectRatio: domain.AspectRatio(r.AspectRatio),
		Quality:     domain.Quality(r.Quality),
		Platform:    r.Platform,
	}, nil
}

// CreateTaskResponse is returned when a task has been accepted.
type CreateTaskResponse struct {
	TaskID    uuid.UUID         `json:"task_id"`
	Status    domain.TaskStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// TaskResponse is the client view of a generation task.
type TaskResponse struct {
	ID             uuid.UUID           `json:"id"`
	TaskType       domain.TaskType     `json:"task_type"`
	Status         domain.TaskStatus   `json:"status"`
	Payload        domain.TaskPayload  `json:"payload"`
	UserPrompt     string              `json:"user_prompt,omitempty"`
	Selections     map[string][]string `json:"selections,omitempty"`
	Prompt         string              `json:"prompt,omitempty"`
	NegativePrompt string              `json:"negative_prompt,omitempty"`
	AspectRatio    domain.AspectRatio  `json:"aspect_ratio"`
	Quality        domain.Quality      `json:"quality"`
	Platform       string              `json:"platform,omitempty"`
	Result         *domain.TaskResult  `json:"result,omitempty"`
	Error          *domain.TaskError   `json:"error,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
}

// TaskListResponse is one page of tasks.
type TaskListResponse struct {
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Data     []TaskResponse `json:"data"`
}

// TemplateRequest defines the payload for template create and update.
type TemplateRequest struct {
	Name       string                `json:"name"        validate:"required,max=100"`
	CoverImage string                `json:"cover_image" validate:"max=500"`
	Config     domain.TemplateConfig `json:"config"`
	IsActive   *bool                 `json:"is_active"`
}

// PromptGroupFields are the group fields shared by create and update.
// Omitted fields keep their current value on update.
type PromptGroupFields struct {
	Description      *string `json:"description"`
	InputType        *string `json:"input_type"         validate:"omitempty,oneof=single multiple"`
	IsMultiple       *bool   `json:"is_multiple"`
	IsRequired       *bool   `json:"is_required"`
	Placeholder      *string `json:"placeholder"        validate:"omitempty,max=200"`
	DefaultOptionKey *string `json:"default_option_key" validate:"omitempty,max=50"`
	SortOrder        *int    `json:"sort_order"         validate:"omitempty,gte=0"`
	IsActive         *bool   `json:"is_active"`
}

// CreatePromptGroupRequest defines the payload for creating a prompt group.
type CreatePromptGroupRequest struct {
	GroupKey  string `json:"group_key"  validate:"required,max=50"`
	GroupName string `json:"group_name" validate:"required,max=100"`
	PromptGroupFields
}

// UpdatePromptGroupRequest defines the payload for patching a prompt group.
// The group key cannot change.
type UpdatePromptGroupRequest struct {
	GroupName *string `json:"group_name" validate:"omitempty,max=100"`
	PromptGroupFields
}

// PromptOptionFields are the option fields shared by create and update.
type PromptOptionFields struct {
	PromptText     *string `json:"prompt_text"`
	NegativePrompt *string `json:"negative_prompt"`
	PromptOrder    *int    `json:"prompt_order"    validate:"omitempty,min=1,max=3"`
	ImageURL       *string `json:"image_url"       validate:"omitempty,max=500"`
	Description    *string `json:"description"`
	SortOrder      *int    `json:"sort_order"      validate:"omitempty,gte=0"`
	IsActive       *bool   `json:"is_active"`
	IsDefault      *bool   `json:"is_default"`
}

// CreatePromptOptionRequest defines the payload for creating a prompt option.
type CreatePromptOptionRequest struct {
	GroupID     int64  `json:"group_id"     validate:"required,gt=0"`
	OptionKey   string `json:"option_key"   validate:"required,max=50"`
	OptionLabel string `json:"option_label" validate:"required,max=100"`
	PromptOptionFields
}

// UpdatePromptOptionRequest defines the payload for patching a prompt option.
// The owning group and option key cannot change.
type UpdatePromptOptionRequest struct {
	OptionLabel *string `json:"option_label" validate:"omitempty,max=100"`
	PromptOptionFields
}

// TemplateResponse is the client view of a detail template.
type TemplateResponse struct {
	ID         int64                 `json:"id"`
	Name       string                `json:"name"`
	CoverImage string                `json:"cover_image,omitempty"`
	Config     domain.TemplateConfig `json:"config"`
	IsActive   bool                  `json:"is_active"`
	CreatedAt  time.Time             `json:"created_at"`
}

// AssemblePromptRequest defines the payload for the prompt preview endpoint.
type AssemblePromptRequest struct {
	TaskType   string              `json:"task_type"  validate:"required,oneof=tryon detail model"`
	Selections map[string][]string `json:"selections"`
	Prompt     string              `json:"prompt"     validate:"max=2000"`
}

// SignUploadRequest asks for a presigned URL for an object.
// ExpiresSeconds defaults to the configured lifetime.
type SignUploadRequest struct {
	ObjectName     string `json:"object_name"     validate:"required,max=512"`
	ExpiresSeconds int    `json:"expires_seconds" validate:"omitempty,gt=0,lte=64800"`
}

// DeleteUploadRequest names an object to remove.
type DeleteUploadRequest struct {
	ObjectName string `json:"object_name" validate:"required,max=512"`
}

// Base64UploadRequest carries a file inline. ContentType is sniffed from
// the data when empty.
type Base64UploadRequest struct {
	File        string `json:"file"         validate:"required"`
	Filename    string `json:"filename"     validate:"max=255"`
	ContentType string `json:"content_type" validate:"max=100"`
}

// UploadResponse describes a stored object.
type UploadResponse struct {
	URL         string `json:"url"`
	Filename    string `json:"filename,omitempty"`
	ObjectName  string `json:"object_name"`
	Size        int    `json:"size"`
	ContentType string `json:"content_type"`
}

// UploadBatchResponse lists the files a batch upload stored.
type UploadBatchResponse struct {
	Files []UploadResponse `json:"files"`
}

// SignUploadResponse carries a presigned URL and its expiry.
type SignUploadResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

func taskToResponse(t *domain.GenerationTask) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		TaskType:       t.Type,
		Status:         t.Status,
		Payload:        t.Payload,
		UserPrompt:     t.UserPrompt,
		Selections:     t.Selections,
		Prompt:         t.Prompt,
		NegativePrompt: t.NegativePrompt,
		AspectRatio:    t.AspectRatio,
		Quality:        t.Quality,
		Platform:       t.Platform,
		Result:         t.Result,
		Error:          t.Error,
		CreatedAt:      t.CreatedAt,
		StartedAt:      t.StartedAt,
		FinishedAt:     t.FinishedAt,
	}
}

func taskPageToResponse(p *store.TaskPage) TaskListResponse {
	data := make([]TaskResponse, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		data = append(data, taskToResponse(t))
	}
	return TaskListResponse{
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
		Data:     data,
	}
}

func templateToResponse(t *domain.Template) TemplateResponse {
	return TemplateResponse{
		ID:         t.ID,
		Name:       t.Name,
		CoverImage: t.CoverImage,
		Config:     t.Config,
		IsActive:   t.IsActive,
		CreatedAt:  t.CreatedAt,
	}
}

func (r TemplateRequest) toInput() service.TemplateInput {
	return service.TemplateInput{
		Name:       r.Name,
		CoverImage: r.CoverImage,
		Config:     r.Config,
		IsActive:   r.IsActive,
	}
}

func (f PromptGroupFields) toInput() service.PromptGroupInput {
	return service.PromptGroupInput{
		Description:      f.Description,
		InputType:        f.InputType,
		IsMultiple:       f.IsMultiple,
		IsRequired:       f.IsRequired,
		Placeholder:      f.Placeholder,
		DefaultOptionKey: f.DefaultOptionKey,
		SortOrder:        f.SortOrder,
		IsActive:         f.IsActive,
	}
}

func (r CreatePromptGroupRequest) toInput() service.PromptGroupInput {
	input := r.PromptGroupFields.toInput()
	input.GroupKey = r.GroupKey
	input.GroupName = &r.GroupName
	return input
}

func (r UpdatePromptGroupRequest) toInput() service.PromptGroupInput {
	input := r.PromptGroupFields.toInput()
	input.GroupName = r.GroupName
	return input
}

func (f PromptOptionFields) toInput() service.PromptOptionInput {
	return service.PromptOptionInput{
		PromptText:     f.PromptText,
		NegativePrompt: f.NegativePrompt,
		PromptOrder:    f.PromptOrder,
		ImageURL:       f.ImageURL,
		Description:    f.Description,
		SortOrder:      f.SortOrder,
		IsActive:       f.IsActive,
		IsDefault:      f.IsDefault,
	}
}

func (r CreatePromptOptionRequest) toInput() service.PromptOptionInput {
	input := r.PromptOptionFields.toInput()
	input.GroupID = r.GroupID
	input.OptionKey = r.OptionKey
	input.OptionLabel = &r.OptionLabel
	return input
}

func (r UpdatePromptOptionRequest) toInput() service.PromptOptionInput {
	input := r.PromptOptionFields.toInput()
	input.OptionLabel = r.OptionLabel
	return input
}
