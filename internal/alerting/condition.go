// Package alerting evaluates user threshold alerts against the freshest
// readings and dispatches notifications subject to a cooldown.
package alerting

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Trigger conditions
const (
	ConditionExceeds = "exceeds"
	ConditionBelow   = "below"
	ConditionEquals  = "equals"
)

// EqualsTolerance is the absolute difference under which "equals" is met
const EqualsTolerance = 0.01

var ErrInvalidCondition = errors.New("invalid trigger condition")

// ConditionMet reports whether value satisfies condition against threshold.
// An unrecognized condition is never met and returns ErrInvalidCondition.
func ConditionMet(condition string, value, threshold float64) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case ConditionExceeds:
		return value > threshold, nil
	case ConditionBelow:
		return value < threshold, nil
	case ConditionEquals:
		return math.Abs(value-threshold) < EqualsTolerance, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidCondition, condition)
	}
}
