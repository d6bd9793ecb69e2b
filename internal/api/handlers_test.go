package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/api/shared"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/prompt"
	"github.com/phrazzld/atelier-api/internal/service"
	"github.com/phrazzld/atelier-api/internal/store"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// mockTaskService is a function-field implementation of service.TaskService
type mockTaskService struct {
	createFn func(ctx context.Context, input service.CreateTaskInput) (*domain.GenerationTask, error)
	getFn    func(ctx context.Context, userID, taskID uuid.UUID) (*domain.GenerationTask, error)
	listFn   func(ctx context.Context, userID uuid.UUID, filter store.TaskFilter, page store.Page) (*store.TaskPage, error)
	deleteFn func(ctx context.Context, userID, taskID uuid.UUID) error
}

func (m *mockTaskService) CreateTask(ctx context.Context, input service.CreateTaskInput) (*domain.GenerationTask, error) {
	return m.createFn(ctx, input)
}

func (m *mockTaskService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*domain.GenerationTask, error) {
	return m.getFn(ctx, userID, taskID)
}

func (m *mockTaskService) ListTasks(
	ctx context.Context,
	userID uuid.UUID,
	filter store.TaskFilter,
	page store.Page,
) (*store.TaskPage, error) {
	return m.listFn(ctx, userID, filter, page)
}

func (m *mockTaskService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	return m.deleteFn(ctx, userID, taskID)
}

// mockTemplateService is a function-field implementation of service.TemplateService
type mockTemplateService struct {
	listFn   func(ctx context.Context, activeOnly bool) ([]*domain.Template, error)
	getFn    func(ctx context.Context, id int64) (*domain.Template, error)
	createFn func(ctx context.Context, input service.TemplateInput) (*domain.Template, error)
	updateFn func(ctx context.Context, id int64, input service.TemplateInput) (*domain.Template, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockTemplateService) ListTemplates(ctx context.Context, activeOnly bool) ([]*domain.Template, error) {
	return m.listFn(ctx, activeOnly)
}

func (m *mockTemplateService) GetTemplate(ctx context.Context, id int64) (*domain.Template, error) {
	return m.getFn(ctx, id)
}

func (m *mockTemplateService) CreateTemplate(ctx context.Context, input service.TemplateInput) (*domain.Template, error) {
	return m.createFn(ctx, input)
}

func (m *mockTemplateService) UpdateTemplate(
	ctx context.Context,
	id int64,
	input service.TemplateInput,
) (*domain.Template, error) {
	return m.updateFn(ctx, id, input)
}

func (m *mockTemplateService) DeleteTemplate(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

// mockPromptService is a function-field implementation of service.PromptService
type mockPromptService struct {
	groupsFn  func(ctx context.Context) ([]service.GroupWithOptions, error)
	previewFn func(ctx context.Context, taskType domain.TaskType, selections map[string][]string, userPrompt string) (prompt.Result, error)
}

func (m *mockPromptService) Groups(ctx context.Context) ([]service.GroupWithOptions, error) {
	return m.groupsFn(ctx)
}

func (m *mockPromptService) Preview(
	ctx context.Context,
	taskType domain.TaskType,
	selections map[string][]string,
	userPrompt string,
) (prompt.Result, error) {
	return m.previewFn(ctx, taskType, selections, userPrompt)
}

// mockPromptAdminService is a function-field implementation of service.PromptAdminService
type mockPromptAdminService struct {
	listOptionsFn  func(ctx context.Context, groupID int64, activeOnly bool) ([]domain.PromptConfigOption, error)
	createGroupFn  func(ctx context.Context, input service.PromptGroupInput) (*domain.PromptConfigGroup, error)
	updateGroupFn  func(ctx context.Context, id int64, input service.PromptGroupInput) (*domain.PromptConfigGroup, error)
	createOptionFn func(ctx context.Context, input service.PromptOptionInput) (*domain.PromptConfigOption, error)
	updateOptionFn func(ctx context.Context, id int64, input service.PromptOptionInput) (*domain.PromptConfigOption, error)
}

func (m *mockPromptAdminService) ListGroupOptions(
	ctx context.Context,
	groupID int64,
	activeOnly bool,
) ([]domain.PromptConfigOption, error) {
	return m.listOptionsFn(ctx, groupID, activeOnly)
}

func (m *mockPromptAdminService) CreateGroup(
	ctx context.Context,
	input service.PromptGroupInput,
) (*domain.PromptConfigGroup, error) {
	return m.createGroupFn(ctx, input)
}

func (m *mockPromptAdminService) UpdateGroup(
	ctx context.Context,
	id int64,
	input service.PromptGroupInput,
) (*domain.PromptConfigGroup, error) {
	return m.updateGroupFn(ctx, id, input)
}

func (m *mockPromptAdminService) CreateOption(
	ctx context.Context,
	input service.PromptOptionInput,
) (*domain.PromptConfigOption, error) {
	return m.createOptionFn(ctx, input)
}

func (m *mockPromptAdminService) UpdateOption(
	ctx context.Context,
	id int64,
	input service.PromptOptionInput,
) (*domain.PromptConfigOption, error) {
	return m.updateOptionFn(ctx, id, input)
}

// newRequest builds a request carrying userID (when not nil) and chi path params.
func newRequest(t *testing.T, method, target string, body any, userID uuid.UUID, params map[string]string) *http.Request {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = context.WithValue(ctx, shared.UserIDContextKey, userID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func queuedTask(userID uuid.UUID) *domain.GenerationTask {
	task, err := domain.NewGenerationTask(domain.NewTaskParams{
		UserID:      userID,
		Payload:     domain.ModelPayload{},
		UserPrompt:  "a linen shirt on a mannequin",
		AspectRatio: domain.AspectRatio3x4,
	})
	if err != nil {
		panic(err)
	}
	return task
}
