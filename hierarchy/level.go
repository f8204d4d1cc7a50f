package hierarchy

import (
	"errors"
	"fmt"
)

// Level identifies one tier of the context hierarchy. Levels form a fixed
// total order: LevelGlobal < LevelProject < LevelBranch < LevelTask.
type Level int

const (
	LevelGlobal Level = iota
	LevelProject
	LevelBranch
	LevelTask
)

// ErrUnknownLevel indicates a level name that is not part of the hierarchy.
var ErrUnknownLevel = errors.New("hierarchy: unknown level")

// Levels lists all levels in containment order, root first.
var Levels = []Level{LevelGlobal, LevelProject, LevelBranch, LevelTask}

func (l Level) String() string {
	switch l {
	case LevelGlobal:
		return "global"
	case LevelProject:
		return "project"
	case LevelBranch:
		return "branch"
	case LevelTask:
		return "task"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses a level name.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "global":
		return LevelGlobal, nil
	case "project":
		return LevelProject, nil
	case "branch":
		return LevelBranch, nil
	case "task":
		return LevelTask, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l >= LevelGlobal && l <= LevelTask
}

// Parent returns the next level toward the root. ok is false for LevelGlobal,
// which has no parent.
func (l Level) Parent() (parent Level, ok bool) {
	if l <= LevelGlobal || l > LevelTask {
		return 0, false
	}
	return l - 1, true
}

// Below reports whether l is strictly deeper in the hierarchy than other.
func (l Level) Below(other Level) bool {
	return l > other
}
