package service

import (
	"context"

	"github.com/phrazzld/atelier-api/internal/domain"
	"github.com/phrazzld/atelier-api/internal/events"
	"github.com/phrazzld/atelier-api/internal/prompt"
	"github.com/stretchr/testify/mock"
)

// MockAssembler is a mock implementation of PromptAssembler
type MockAssembler struct {
	mock.Mock
}

func (m *MockAssembler) Assemble(
	ctx context.Context,
	taskType domain.TaskType,
	selections map[string][]string,
	userPrompt string,
) (prompt.Result, error) {
	args := m.Called(ctx, taskType, selections, userPrompt)
	result, _ := args.Get(0).(prompt.Result)
	return result, args.Error(1)
}

// MockPromptConfig is a mock implementation of store.PromptConfigStore
type MockPromptConfig struct {
	mock.Mock
}

func (m *MockPromptConfig) ActiveSettings(ctx context.Context) (map[string]string, error) {
	args := m.Called(ctx)
	settings, _ := args.Get(0).(map[string]string)
	return settings, args.Error(1)
}

func (m *MockPromptConfig) ActiveGroups(ctx context.Context, keys []string) ([]domain.PromptConfigGroup, error) {
	args := m.Called(ctx, keys)
	groups, _ := args.Get(0).([]domain.PromptConfigGroup)
	return groups, args.Error(1)
}

func (m *MockPromptConfig) ActiveOptions(
	ctx context.Context,
	groupID int64,
	keys []string,
) ([]domain.PromptConfigOption, error) {
	args := m.Called(ctx, groupID, keys)
	options, _ := args.Get(0).([]domain.PromptConfigOption)
	return options, args.Error(1)
}

func (m *MockPromptConfig) ActiveRules(ctx context.Context) ([]domain.PromptCombinationRule, error) {
	args := m.Called(ctx)
	rules, _ := args.Get(0).([]domain.PromptCombinationRule)
	return rules, args.Error(1)
}

// MockEmitter is a mock implementation of events.EventEmitter
type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) EmitEvent(ctx context.Context, event *events.TaskEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func eventOfType(eventType string) any {
	return mock.MatchedBy(func(e *events.TaskEvent) bool { return e.Type == eventType })
}
