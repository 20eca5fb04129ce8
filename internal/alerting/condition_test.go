package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionMet(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		value     float64
		threshold float64
		want      bool
	}{
		{"exceeds above", "exceeds", 36, 35, true},
		{"exceeds at threshold", "exceeds", 35, 35, false},
		{"below", "below", 10, 12, true},
		{"below at threshold", "below", 12, 12, false},
		{"equals within tolerance", "equals", 35.005, 35, true},
		{"equals outside tolerance", "equals", 35.02, 35, false},
		{"case insensitive", "EXCEEDS", 40, 35, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ConditionMet(tt.condition, tt.value, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionMet_Invalid(t *testing.T) {
	met, err := ConditionMet("greater_than", 100, 1)
	assert.ErrorIs(t, err, ErrInvalidCondition)
	assert.False(t, met)
}
