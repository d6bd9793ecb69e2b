package domain

import "strings"

// PromptOrder is the placement tier of a positive prompt fragment.
type PromptOrder int

// Placement tiers, in composition order.
const (
	PromptOrderFront  PromptOrder = 1
	PromptOrderMiddle PromptOrder = 2
	PromptOrderBack   PromptOrder = 3
)

// RuleAction is what a combination rule does to its target prompt.
type RuleAction string

// Rule actions.
const (
	RuleActionAppend  RuleAction = "append"
	RuleActionPrepend RuleAction = "prepend"
	RuleActionReplace RuleAction = "replace"
	RuleActionRemove  RuleAction = "remove"
)

// RuleTarget selects which prompt a combination rule mutates.
type RuleTarget string

// Rule targets.
const (
	RuleTargetPositive RuleTarget = "positive"
	RuleTargetNegative RuleTarget = "negative"
	RuleTargetBoth     RuleTarget = "both"
)

// Input shapes for a config group.
const (
	InputTypeSingle   = "single"
	InputTypeMultiple = "multiple"
)

// Well-known prompt setting keys.
const (
	SettingPromptSeparator      = "prompt_separator"
	SettingGlobalNegativePrompt = "global_negative_prompt"
	SettingBasePromptPrefix     = "base_prompt_"
	SettingMaxPromptLength      = "max_prompt_length"
	SettingDefaultResolution    = "default_resolution"
	SettingDefaultAspectRatio   = "default_aspect_ratio"
)

// DefaultPromptSeparator joins fragments when no separator setting exists.
const DefaultPromptSeparator = ", "

// PromptConfigGroup is one axis of customization, e.g. background or lighting.
type PromptConfigGroup struct {
	ID               int64  `json:"id"`
	GroupKey         string `json:"group_key"`
	GroupName        string `json:"group_name"`
	Description      string `json:"description,omitempty"`
	InputType        string `json:"input_type"`
	IsMultiple       bool   `json:"is_multiple"`
	IsRequired       bool   `json:"is_required"`
	Placeholder      string `json:"placeholder,omitempty"`
	DefaultOptionKey string `json:"default_option_key,omitempty"`
	SortOrder        int    `json:"sort_order"`
	IsActive         bool   `json:"is_active"`
	IsSystem         bool   `json:"is_system"`
}

// Validate checks the group's fields.
func (g *PromptConfigGroup) Validate() error {
	switch {
	case strings.TrimSpace(g.GroupKey) == "":
		return NewValidationError("group_key", "cannot be empty", ErrValidation)
	case strings.TrimSpace(g.GroupName) == "":
		return NewValidationError("group_name", "cannot be empty", ErrValidation)
	case g.InputType != InputTypeSingle && g.InputType != InputTypeMultiple:
		return NewValidationError("input_type", "must be single or multiple", ErrValidation)
	}
	return nil
}

// PromptConfigOption is a selectable value within a group.
type PromptConfigOption struct {
	ID             int64       `json:"id"`
	GroupID        int64       `json:"group_id"`
	OptionKey      string      `json:"option_key"`
	OptionLabel    string      `json:"option_label"`
	PromptText     string      `json:"prompt_text"`
	NegativePrompt string      `json:"negative_prompt,omitempty"`
	PromptOrder    PromptOrder `json:"prompt_order"`
	ImageURL       string      `json:"image_url,omitempty"`
	Description    string      `json:"description,omitempty"`
	SortOrder      int         `json:"sort_order"`
	IsActive       bool        `json:"is_active"`
	IsDefault      bool        `json:"is_default"`
}

// Valid reports whether o is one of the three placement tiers.
func (o PromptOrder) Valid() bool {
	return o >= PromptOrderFront && o <= PromptOrderBack
}

// Validate checks the option's fields.
func (o *PromptConfigOption) Validate() error {
	switch {
	case o.GroupID <= 0:
		return NewValidationError("group_id", "must be positive", ErrInvalidID)
	case strings.TrimSpace(o.OptionKey) == "":
		return NewValidationError("option_key", "cannot be empty", ErrValidation)
	case strings.TrimSpace(o.OptionLabel) == "":
		return NewValidationError("option_label", "cannot be empty", ErrValidation)
	case !o.PromptOrder.Valid():
		return NewValidationError("prompt_order", "must be 1, 2 or 3", ErrValidation)
	}
	return nil
}

// PromptCombinationRule mutates an assembled prompt when any of its trigger
// options is selected for its group.
type PromptCombinationRule struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	Condition    map[string][]string `json:"condition"`
	ActionType   RuleAction          `json:"action_type"`
	Target       RuleTarget          `json:"target"`
	ActionPrompt string              `json:"action_prompt"`
	Priority     int                 `json:"priority"`
	IsActive     bool                `json:"is_active"`
}

// Matches reports whether the rule's condition holds for selections.
// Any listed option present under any listed group satisfies it.
func (r PromptCombinationRule) Matches(selections map[string][]string) bool {
	for groupKey, triggers := range r.Condition {
		selected := selections[groupKey]
		for _, trigger := range triggers {
			for _, s := range selected {
				if s == trigger {
					return true
				}
			}
		}
	}
	return false
}

// PromptConfigSetting is a free-form key/value system parameter.
type PromptConfigSetting struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	ValueType   string `json:"value_type"`
	Description string `json:"description,omitempty"`
	GroupName   string `json:"group_name,omitempty"`
	SortOrder   int    `json:"sort_order"`
	IsEditable  bool   `json:"is_editable"`
}
