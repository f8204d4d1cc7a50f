package validate

import (
	"context"
	"fmt"

	"github.com/jonwraymond/scopectx/hierarchy"
)

// LevelRules configures validation for one hierarchy level.
type LevelRules struct {
	// RequiredKeys must all be present in the payload.
	RequiredKeys []string

	// ReservedKeys may not appear in the payload.
	ReservedKeys []string

	// MaxKeys caps the number of top-level keys. Zero means no cap.
	MaxKeys int

	// MaxDepth caps value nesting (a scalar is depth 1, a map of scalars is
	// depth 2). Zero means no cap.
	MaxDepth int
}

// RuleValidatorConfig configures a RuleValidator.
type RuleValidatorConfig struct {
	// Rules maps each level to its rule set. Levels without an entry accept
	// any payload.
	Rules map[hierarchy.Level]LevelRules

	// DisallowNullValues rejects explicit null values at the top level.
	DisallowNullValues bool
}

// RuleValidator validates payloads against a per-level rule table.
type RuleValidator struct {
	config RuleValidatorConfig
}

// NewRuleValidator creates a validator with the given rule table.
func NewRuleValidator(config RuleValidatorConfig) *RuleValidator {
	return &RuleValidator{config: config}
}

// Validate returns all issues found in data for the given level.
func (v *RuleValidator) Validate(_ context.Context, level hierarchy.Level, data map[string]hierarchy.Value) []Issue {
	var issues []Issue

	if !level.Valid() {
		issues = append(issues, Issue{Field: "level", Message: fmt.Sprintf("unknown level %d", int(level))})
		return issues
	}

	rules, ok := v.config.Rules[level]
	if !ok && !v.config.DisallowNullValues {
		return nil
	}

	for _, key := range rules.RequiredKeys {
		if _, present := data[key]; !present {
			issues = append(issues, Issue{Field: key, Message: "required key is missing"})
		}
	}

	for _, key := range rules.ReservedKeys {
		if _, present := data[key]; present {
			issues = append(issues, Issue{Field: key, Message: "key is reserved at this level"})
		}
	}

	if rules.MaxKeys > 0 && len(data) > rules.MaxKeys {
		issues = append(issues, Issue{
			Field:   "data",
			Message: fmt.Sprintf("payload has %d keys, limit is %d", len(data), rules.MaxKeys),
		})
	}

	for key, val := range data {
		if v.config.DisallowNullValues && val.IsNull() {
			issues = append(issues, Issue{Field: key, Message: "null values are not allowed"})
		}
		if rules.MaxDepth > 0 {
			if d := valueDepth(val); d > rules.MaxDepth {
				issues = append(issues, Issue{
					Field:   key,
					Message: fmt.Sprintf("value nesting depth %d exceeds limit %d", d, rules.MaxDepth),
				})
			}
		}
	}

	return issues
}

func valueDepth(v hierarchy.Value) int {
	switch v.Kind() {
	case hierarchy.KindList:
		max := 0
		elems, _ := v.AsList()
		for _, e := range elems {
			if d := valueDepth(e); d > max {
				max = d
			}
		}
		return max + 1
	case hierarchy.KindMap:
		max := 0
		entries, _ := v.AsMap()
		for _, e := range entries {
			if d := valueDepth(e); d > max {
				max = d
			}
		}
		return max + 1
	default:
		return 1
	}
}

// Ensure RuleValidator implements Validator
var _ Validator = (*RuleValidator)(nil)
