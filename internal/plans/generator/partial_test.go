package generator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpilot/stackpilot-backend/internal/plans/plantest"
)

func TestRepairPartial(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{``, ``, false},
		{`no json yet`, ``, false},
		{`{`, `{}`, true},
		{`{"projectN`, `{}`, true},
		{`{"projectName":`, `{}`, true},
		{`{"projectName":"Hyd`, `{"projectName":"Hyd"}`, true},
		{`{"a":"x","b`, `{"a":"x"}`, true},
		{`{"a":"x",`, `{"a":"x"}`, true},
		{`{"a":[1,2`, `{"a":[1]}`, true},
		{`{"a":[1,2,`, `{"a":[1,2]}`, true},
		{`{"a":{"b":[`, `{"a":{"b":[]}}`, true},
		{`{"a":"say \"hi`, `{"a":"say \"hi"}`, true},
		{`{"a":"trailing \`, `{"a":"trailing "}`, true},
		{`{"a":"snow \u26`, `{"a":"snow "}`, true},
		{`{"a":true,"b":fal`, `{"a":true}`, true},
		{"```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{`{"a":1}`, `{"a":1}`, true},
	}
	for _, tt := range tests {
		got, ok := repairPartial(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
			assert.True(t, json.Valid([]byte(got)), "output %q", got)
		}
	}
}

func TestRepairPartial_EveryPrefixOfAPlan(t *testing.T) {
	full := plantest.JSON("id-1")
	for i := 1; i <= len(full); i++ {
		got, ok := repairPartial(full[:i])
		if !ok {
			continue
		}
		var v map[string]any
		require.NoError(t, json.Unmarshal([]byte(got), &v), "prefix %d: %q", i, got)
	}
	got, ok := repairPartial(full)
	require.True(t, ok)
	assert.JSONEq(t, full, got)
}

func TestExtractObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractObject("Here you go:\n```json\n{\"a\":1}\n```"))
	assert.Equal(t, "plain", extractObject(" plain "))
}
