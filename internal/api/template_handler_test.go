package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplate(id int64) *domain.Template {
	return &domain.Template{
		ID:         id,
		Name:       "Studio white",
		CoverImage: "https://cdn.example.com/cover.png",
		Config:     domain.TemplateConfig{Prompt: "clean white studio backdrop"},
		IsActive:   true,
		CreatedAt:  time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestListTemplates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		query          string
		wantActiveOnly bool
		expectedStatus int
	}{
		{name: "active by default", query: "", wantActiveOnly: true, expectedStatus: http.StatusOK},
		{name: "all", query: "?all=true", wantActiveOnly: false, expectedStatus: http.StatusOK},
		{name: "invalid flag", query: "?all=maybe", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockTemplateService{
				listFn: func(ctx context.Context, activeOnly bool) ([]*domain.Template, error) {
					assert.Equal(t, tt.wantActiveOnly, activeOnly)
					return []*domain.Template{sampleTemplate(1), sampleTemplate(2)}, nil
				},
			}
			h := NewTemplateHandler(svc, testLogger)

			rr := httptest.NewRecorder()
			h.ListTemplates(rr, newRequest(t, http.MethodGet, "/api/templates"+tt.query, nil, uuid.Nil, nil))

			require.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				resp := decodeBody[[]TemplateResponse](t, rr)
				require.Len(t, resp, 2)
				assert.Equal(t, "clean white studio backdrop", resp[0].Config.Prompt)
			}
		})
	}
}

func TestGetTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		id             string
		serviceErr     error
		expectedStatus int
	}{
		{name: "found", id: "4", expectedStatus: http.StatusOK},
		{name: "missing", id: "4", serviceErr: service.ErrTemplateNotFound, expectedStatus: http.StatusNotFound},
		{name: "non numeric id", id: "abc", expectedStatus: http.StatusBadRequest},
		{name: "zero id", id: "0", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockTemplateService{
				getFn: func(ctx context.Context, id int64) (*domain.Template, error) {
					assert.Equal(t, int64(4), id)
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return sampleTemplate(id), nil
				},
			}
			h := NewTemplateHandler(svc, testLogger)

			rr := httptest.NewRecorder()
			h.GetTemplate(rr, newRequest(t, http.MethodGet, "/api/templates/"+tt.id, nil, uuid.Nil,
				map[string]string{"id": tt.id}))

			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestCreateTemplate(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		var got service.TemplateInput
		svc := &mockTemplateService{
			createFn: func(ctx context.Context, input service.TemplateInput) (*domain.Template, error) {
				got = input
				tmpl := sampleTemplate(7)
				tmpl.Name = input.Name
				return tmpl, nil
			},
		}
		h := NewTemplateHandler(svc, testLogger)

		body := map[string]any{
			"name":   "Flat lay",
			"config": map[string]any{"prompt": "flat lay on linen", "layout": map[string]any{"cols": 2}},
		}
		rr := httptest.NewRecorder()
		h.CreateTemplate(rr, newRequest(t, http.MethodPost, "/api/templates", body, uuid.Nil, nil))

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "Flat lay", got.Name)
		assert.Equal(t, "flat lay on linen", got.Config.Prompt)
		assert.Nil(t, got.IsActive)

		resp := decodeBody[TemplateResponse](t, rr)
		assert.Equal(t, int64(7), resp.ID)
	})

	t.Run("name required", func(t *testing.T) {
		t.Parallel()

		h := NewTemplateHandler(&mockTemplateService{}, testLogger)
		rr := httptest.NewRecorder()
		h.CreateTemplate(rr, newRequest(t, http.MethodPost, "/api/templates",
			map[string]any{"cover_image": "x.png"}, uuid.Nil, nil))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeBody[map[string]string](t, rr)
		assert.Equal(t, "Invalid name: required field", resp["error"])
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()

		h := NewTemplateHandler(&mockTemplateService{}, testLogger)
		rr := httptest.NewRecorder()
		h.CreateTemplate(rr, newRequest(t, http.MethodPost, "/api/templates",
			map[string]any{"name": "A", "colour": "red"}, uuid.Nil, nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUpdateTemplate(t *testing.T) {
	t.Parallel()

	inactive := false

	t.Run("updated", func(t *testing.T) {
		t.Parallel()

		svc := &mockTemplateService{
			updateFn: func(ctx context.Context, id int64, input service.TemplateInput) (*domain.Template, error) {
				require.NotNil(t, input.IsActive)
				assert.False(t, *input.IsActive)
				tmpl := sampleTemplate(id)
				tmpl.IsActive = *input.IsActive
				return tmpl, nil
			},
		}
		h := NewTemplateHandler(svc, testLogger)

		rr := httptest.NewRecorder()
		h.UpdateTemplate(rr, newRequest(t, http.MethodPut, "/api/templates/3",
			map[string]any{"name": "Studio white", "is_active": inactive}, uuid.Nil, map[string]string{"id": "3"}))

		require.Equal(t, http.StatusOK, rr.Code)
		resp := decodeBody[TemplateResponse](t, rr)
		assert.False(t, resp.IsActive)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		svc := &mockTemplateService{
			updateFn: func(ctx context.Context, id int64, input service.TemplateInput) (*domain.Template, error) {
				return nil, service.ErrTemplateNotFound
			},
		}
		h := NewTemplateHandler(svc, testLogger)

		rr := httptest.NewRecorder()
		h.UpdateTemplate(rr, newRequest(t, http.MethodPut, "/api/templates/3",
			map[string]any{"name": "Studio white"}, uuid.Nil, map[string]string{"id": "3"}))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestDeleteTemplate(t *testing.T) {
	t.Parallel()

	svc := &mockTemplateService{
		deleteFn: func(ctx context.Context, id int64) error {
			if id == 5 {
				return nil
			}
			return service.ErrTemplateNotFound
		},
	}
	h := NewTemplateHandler(svc, testLogger)

	rr := httptest.NewRecorder()
	h.DeleteTemplate(rr, newRequest(t, http.MethodDelete, "/api/templates/5", nil, uuid.Nil, map[string]string{"id": "5"}))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.DeleteTemplate(rr, newRequest(t, http.MethodDelete, "/api/templates/6", nil, uuid.Nil, map[string]string{"id": "6"}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
