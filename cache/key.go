package cache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/scopectx/hierarchy"
)

// MaxKeyLength is the maximum allowed length for a cache key string.
const MaxKeyLength = 512

// Sentinel errors for key handling.
var (
	ErrInvalidKey  = errors.New("cache: key is invalid")
	ErrKeyTooLong  = errors.New("cache: key exceeds max length")
	ErrNilResolved = errors.New("cache: resolved value is nil")

	// ErrStaleResolution rejects a PutEntry whose dependencies were
	// invalidated after the caller's Since generation.
	ErrStaleResolution = errors.New("cache: resolution is stale")
)

// Key identifies one cached resolution: the requested level and id within an
// owner scope.
type Key struct {
	Level hierarchy.Level
	ID    string
	Owner string
}

// String renders the key in its canonical form: ctx:<owner>:<level>:<id>.
func (k Key) String() string {
	return "ctx:" + k.Owner + ":" + k.Level.String() + ":" + k.ID
}

// Validate checks that the key can be stored.
func (k Key) Validate() error {
	if !k.Level.Valid() {
		return fmt.Errorf("%w: level %d", ErrInvalidKey, int(k.Level))
	}
	if k.ID == "" || strings.TrimSpace(k.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidKey)
	}
	if strings.ContainsAny(k.ID, ":\n\r") || strings.ContainsAny(k.Owner, ":\n\r") {
		return fmt.Errorf("%w: id and owner must not contain ':' or newlines", ErrInvalidKey)
	}
	if len(k.String()) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

// MatchPattern reports whether a key string matches a glob pattern. Patterns
// support '*' wildcards for prefix, suffix, and infix matching
// ("ctx:u1:branch:*", "*:p1", "ctx:u1:*:feat-*"). A pattern without '*'
// matches only the exact key.
func MatchPattern(pattern, key string) bool {
	if pattern == "" {
		return false
	}
	segs := strings.Split(pattern, "*")
	if len(segs) == 1 {
		return pattern == key
	}

	if !strings.HasPrefix(key, segs[0]) {
		return false
	}
	rest := key[len(segs[0]):]

	last := segs[len(segs)-1]
	if !strings.HasSuffix(rest, last) {
		return false
	}
	rest = rest[:len(rest)-len(last)]

	for _, seg := range segs[1 : len(segs)-1] {
		if seg == "" {
			continue
		}
		idx := strings.Index(rest, seg)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(seg):]
	}
	return true
}
