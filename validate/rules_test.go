package validate

import (
	"context"
	"testing"

	"github.com/jonwraymond/scopectx/hierarchy"
)

func TestRuleValidator_Validate(t *testing.T) {
	v := NewRuleValidator(RuleValidatorConfig{
		Rules: map[hierarchy.Level]LevelRules{
			hierarchy.LevelProject: {
				RequiredKeys: []string{"build"},
				ReservedKeys: []string{"_internal"},
				MaxKeys:      3,
				MaxDepth:     2,
			},
		},
	})
	ctx := context.Background()

	tests := []struct {
		name       string
		level      hierarchy.Level
		data       map[string]hierarchy.Value
		wantIssues int
		wantField  string
	}{
		{
			"valid payload",
			hierarchy.LevelProject,
			map[string]hierarchy.Value{"build": hierarchy.String("npm")},
			0, "",
		},
		{
			"missing required key",
			hierarchy.LevelProject,
			map[string]hierarchy.Value{"theme": hierarchy.String("dark")},
			1, "build",
		},
		{
			"reserved key present",
			hierarchy.LevelProject,
			map[string]hierarchy.Value{"build": hierarchy.String("npm"), "_internal": hierarchy.Bool(true)},
			1, "_internal",
		},
		{
			"too many keys",
			hierarchy.LevelProject,
			map[string]hierarchy.Value{
				"build": hierarchy.String("npm"),
				"a":     hierarchy.Number(1),
				"b":     hierarchy.Number(2),
				"c":     hierarchy.Number(3),
			},
			1, "data",
		},
		{
			"nesting too deep",
			hierarchy.LevelProject,
			map[string]hierarchy.Value{
				"build": hierarchy.Map(map[string]hierarchy.Value{
					"inner": hierarchy.Map(map[string]hierarchy.Value{"deep": hierarchy.Number(1)}),
				}),
			},
			1, "build",
		},
		{
			"level without rules accepts anything",
			hierarchy.LevelTask,
			map[string]hierarchy.Value{"whatever": hierarchy.Null()},
			0, "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := v.Validate(ctx, tt.level, tt.data)
			if len(issues) != tt.wantIssues {
				t.Fatalf("Validate returned %d issues (%v), want %d", len(issues), issues, tt.wantIssues)
			}
			if tt.wantIssues > 0 && issues[0].Field != tt.wantField {
				t.Errorf("issue field = %q, want %q", issues[0].Field, tt.wantField)
			}
		})
	}
}

func TestRuleValidator_DisallowNull(t *testing.T) {
	v := NewRuleValidator(RuleValidatorConfig{DisallowNullValues: true})
	ctx := context.Background()

	issues := v.Validate(ctx, hierarchy.LevelBranch, map[string]hierarchy.Value{
		"ok":  hierarchy.Number(1),
		"bad": hierarchy.Null(),
	})
	if len(issues) != 1 {
		t.Fatalf("Validate returned %d issues, want 1", len(issues))
	}
	if issues[0].Field != "bad" {
		t.Errorf("issue field = %q, want %q", issues[0].Field, "bad")
	}
}

func TestRuleValidator_InvalidLevel(t *testing.T) {
	v := NewRuleValidator(RuleValidatorConfig{})
	issues := v.Validate(context.Background(), hierarchy.Level(42), nil)
	if len(issues) != 1 || issues[0].Field != "level" {
		t.Errorf("Validate(bad level) = %v, want one level issue", issues)
	}
}

func TestAcceptAll(t *testing.T) {
	issues := AcceptAll().Validate(context.Background(), hierarchy.LevelGlobal, map[string]hierarchy.Value{
		"anything": hierarchy.Null(),
	})
	if issues != nil {
		t.Errorf("AcceptAll returned issues: %v", issues)
	}
}
