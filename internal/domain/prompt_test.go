package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptConfigGroupValidate(t *testing.T) {
	t.Parallel()

	valid := func() PromptConfigGroup {
		return PromptConfigGroup{GroupKey: "background", GroupName: "Background", InputType: InputTypeSingle}
	}

	tests := []struct {
		name      string
		mutate    func(*PromptConfigGroup)
		wantField string
	}{
		{name: "valid", mutate: func(*PromptConfigGroup) {}},
		{name: "multiple input", mutate: func(g *PromptConfigGroup) { g.InputType = InputTypeMultiple }},
		{name: "blank key", mutate: func(g *PromptConfigGroup) { g.GroupKey = "  " }, wantField: "group_key"},
		{name: "blank name", mutate: func(g *PromptConfigGroup) { g.GroupName = "" }, wantField: "group_name"},
		{name: "unknown input type", mutate: func(g *PromptConfigGroup) { g.InputType = "slider" }, wantField: "input_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := valid()
			tt.mutate(&g)
			err := g.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestPromptConfigOptionValidate(t *testing.T) {
	t.Parallel()

	valid := func() PromptConfigOption {
		return PromptConfigOption{GroupID: 1, OptionKey: "studio", OptionLabel: "Studio", PromptOrder: PromptOrderMiddle}
	}

	tests := []struct {
		name      string
		mutate    func(*PromptConfigOption)
		wantField string
	}{
		{name: "valid", mutate: func(*PromptConfigOption) {}},
		{name: "back tier", mutate: func(o *PromptConfigOption) { o.PromptOrder = PromptOrderBack }},
		{name: "missing group", mutate: func(o *PromptConfigOption) { o.GroupID = 0 }, wantField: "group_id"},
		{name: "blank key", mutate: func(o *PromptConfigOption) { o.OptionKey = "" }, wantField: "option_key"},
		{name: "blank label", mutate: func(o *PromptConfigOption) { o.OptionLabel = " " }, wantField: "option_label"},
		{name: "unset tier", mutate: func(o *PromptConfigOption) { o.PromptOrder = 0 }, wantField: "prompt_order"},
		{name: "tier out of range", mutate: func(o *PromptConfigOption) { o.PromptOrder = 4 }, wantField: "prompt_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := valid()
			tt.mutate(&o)
			err := o.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantField, verr.Field)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
