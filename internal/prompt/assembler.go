// Package prompt derives positive and negative generation prompts from a
// task's structured selections and the active prompt configuration.
//
// Assembly is total over selections: unknown or inactive groups and options
// are dropped, so a partially invalid selection still yields a usable prompt.
// The only error Assemble returns comes from reading configuration.
package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/atelier-api/internal/domain"
)

// ConfigSource provides the active prompt configuration.
// store.PromptConfigStore satisfies it.
// Version: 1.0
type ConfigSource interface {
	ActiveSettings(ctx context.Context) (map[string]string, error)
	ActiveGroups(ctx context.Context, keys []string) ([]domain.PromptConfigGroup, error)
	ActiveOptions(ctx context.Context, groupID int64, keys []string) ([]domain.PromptConfigOption, error)
	ActiveRules(ctx context.Context) ([]domain.PromptCombinationRule, error)
}

// Result is an assembled prompt pair plus the selections it came from.
type Result struct {
	Positive   string              `json:"positive_prompt"`
	Negative   string              `json:"negative_prompt"`
	Selections map[string][]string `json:"selections"`
}

// Assembler builds prompts from configuration read through a ConfigSource.
type Assembler struct {
	source ConfigSource
	logger *slog.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(source ConfigSource, logger *slog.Logger) (*Assembler, error) {
	if source == nil {
		return nil, fmt.Errorf("config source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		source: source,
		logger: logger.With("component", "prompt_assembler"),
	}, nil
}

// Assemble produces the prompt pair for a task type.
//
// Parameters:
//   - ctx: Context for configuration reads
//   - taskType: Selects the base prompt setting (base_prompt_<type>)
//   - selections: Map of group key to selected option keys
//   - userPrompt: Optional free text placed after the front fragments
//
// Returns:
//   - Result: Positive and negative prompt with the selections echoed back
//   - error: Only when configuration cannot be read
func (a *Assembler) Assemble(
	ctx context.Context,
	taskType domain.TaskType,
	selections map[string][]string,
	userPrompt string,
) (Result, error) {
	settings, err := a.source.ActiveSettings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load prompt settings: %w", err)
	}

	options, err := a.selectedOptions(ctx, selections)
	if err != nil {
		return Result{}, err
	}

	var front, middle, back, negatives []string
	for _, opt := range options {
		switch opt.PromptOrder {
		case domain.PromptOrderFront:
			front = append(front, opt.PromptText)
		case domain.PromptOrderBack:
			back = append(back, opt.PromptText)
		default:
			middle = append(middle, opt.PromptText)
		}
		negatives = append(negatives, opt.NegativePrompt)
	}

	sep := separator(settings)

	positiveParts := make([]string, 0, len(options)+2)
	positiveParts = append(positiveParts, settings[domain.SettingBasePromptPrefix+string(taskType)])
	positiveParts = append(positiveParts, front...)
	positiveParts = append(positiveParts, userPrompt)
	positiveParts = append(positiveParts, middle...)
	positiveParts = append(positiveParts, back...)

	negativeParts := append([]string{settings[domain.SettingGlobalNegativePrompt]}, negatives...)

	positive := join(sep, positiveParts...)
	negative := join(sep, negativeParts...)

	rules, err := a.source.ActiveRules(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load combination rules: %w", err)
	}
	positive, negative = applyRules(rules, selections, positive, negative, sep)

	if limit := maxLength(settings); limit > 0 {
		positive = truncate(positive, limit)
	}

	return Result{
		Positive:   positive,
		Negative:   negative,
		Selections: selections,
	}, nil
}

// Preview assembles without a task, for clients that show the prompt
// before submitting.
func (a *Assembler) Preview(
	ctx context.Context,
	taskType domain.TaskType,
	selections map[string][]string,
	userPrompt string,
) (Result, error) {
	return a.Assemble(ctx, taskType, selections, userPrompt)
}

// selectedOptions resolves selections to active options, ordered by group
// sort order and then option sort order.
func (a *Assembler) selectedOptions(
	ctx context.Context,
	selections map[string][]string,
) ([]domain.PromptConfigOption, error) {
	if len(selections) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(selections))
	for k := range selections {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups, err := a.source.ActiveGroups(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt groups: %w", err)
	}

	var options []domain.PromptConfigOption
	for _, group := range groups {
		optionKeys := selections[group.GroupKey]
		if len(optionKeys) == 0 {
			continue
		}
		groupOptions, err := a.source.ActiveOptions(ctx, group.ID, optionKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to load options for group %q: %w", group.GroupKey, err)
		}
		options = append(options, groupOptions...)
	}

	if resolved := len(groups); resolved < len(keys) {
		a.logger.DebugContext(ctx, "dropped unknown prompt groups",
			"requested", len(keys),
			"resolved", resolved)
	}
	return options, nil
}

// applyRules runs matching rules, highest priority first and by ID within a
// priority.
func applyRules(
	rules []domain.PromptCombinationRule,
	selections map[string][]string,
	positive, negative, sep string,
) (string, string) {
	ordered := make([]domain.PromptCombinationRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, rule := range ordered {
		if !rule.Matches(selections) {
			continue
		}
		if rule.Target == domain.RuleTargetPositive || rule.Target == domain.RuleTargetBoth {
			positive = applyAction(rule, positive, sep)
		}
		if rule.Target == domain.RuleTargetNegative || rule.Target == domain.RuleTargetBoth {
			negative = applyAction(rule, negative, sep)
		}
	}
	return positive, negative
}

func applyAction(rule domain.PromptCombinationRule, text, sep string) string {
	switch rule.ActionType {
	case domain.RuleActionAppend:
		return join(sep, text, rule.ActionPrompt)
	case domain.RuleActionPrepend:
		return join(sep, rule.ActionPrompt, text)
	case domain.RuleActionReplace:
		return rule.ActionPrompt
	case domain.RuleActionRemove:
		if rule.ActionPrompt == "" {
			return text
		}
		return strings.ReplaceAll(text, rule.ActionPrompt, "")
	default:
		return text
	}
}

// join concatenates the non-blank parts with sep.
func join(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func separator(settings map[string]string) string {
	if sep, ok := settings[domain.SettingPromptSeparator]; ok && sep != "" {
		return sep
	}
	return domain.DefaultPromptSeparator
}

func maxLength(settings map[string]string) int {
	n, err := strconv.Atoi(strings.TrimSpace(settings[domain.SettingMaxPromptLength]))
	if err != nil {
		return 0
	}
	return n
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
