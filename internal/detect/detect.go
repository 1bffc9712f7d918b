// Package detect classifies environment variable values into named
// types. A registry holds an ordered list of matchers; the first
// matcher that accepts a value decides its type, so registration
// order is priority order.
package detect

import (
	"regexp"

	"github.com/rs/zerolog/log"
)

// Built-in type names, in the order the registry tries them.
// TypeString is the fallback for values no matcher claims and has no
// matcher of its own.
const (
	TypeString      = "string"
	TypeBoolean     = "boolean"
	TypeNumber      = "number"
	TypeLocalhost   = "localhost"
	TypeURL         = "url"
	TypeDatabaseURL = "database_url"
	TypeISODate     = "iso_date"
	TypeISOTime     = "iso_time"
	TypeJSON        = "json"
	TypeHexColor    = "hex_color"
	TypeIPv4        = "ipv4"
)

// Matcher decides whether a value belongs to a named type. Pattern is
// a cheap prefilter, Validate a stricter semantic check, Transform a
// canonicalizer applied to accepted values. Any of the three may be
// nil; a nil Pattern and nil Validate accept every value.
type Matcher struct {
	Name      string
	Pattern   *regexp.Regexp
	Validate  func(string) bool
	Transform func(string) string
	// Digest summarizes behavior carried inside Validate or Transform.
	// Two matchers with the same Name and Pattern but different
	// behavior must differ here, or option fingerprints cannot tell
	// them apart.
	Digest string
}

// match reports whether value belongs to this type and returns its
// canonical form. A panic inside Validate or Transform counts as a
// non-match so a broken matcher cannot take down a parse.
func (m Matcher) match(value string) (canonical string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Str("type", m.Name).Interface("panic", r).Msg("Matcher panicked, skipping")
			canonical, ok = "", false
		}
	}()

	if m.Pattern != nil && !m.Pattern.MatchString(value) {
		return "", false
	}
	if m.Validate != nil && !m.Validate(value) {
		return "", false
	}
	if m.Transform != nil {
		return m.Transform(value), true
	}
	return value, true
}

// Selection controls which built-in matchers a registry includes.
// Custom matchers are never filtered. A nil Selection enables every
// built-in.
type Selection struct {
	// DisableAll drops the entire built-in set.
	DisableAll bool
	// Enabled overrides individual built-ins by name: an explicit
	// false disables a matcher, absent names stay enabled.
	Enabled map[string]bool
}

func (s *Selection) includes(name string) bool {
	if s == nil {
		return true
	}
	if s.DisableAll {
		return false
	}
	if enabled, ok := s.Enabled[name]; ok {
		return enabled
	}
	return true
}

// Registry is an immutable, ordered set of matchers. Detect performs
// no writes, so a single registry is safe for concurrent use.
type Registry struct {
	matchers []Matcher
}

// NewRegistry builds a registry from optional custom matchers and the
// built-in set filtered through sel. Custom matchers come first, so
// user-supplied types shadow the built-ins they overlap with.
func NewRegistry(custom []Matcher, sel *Selection) *Registry {
	builtin := Builtins()
	matchers := make([]Matcher, 0, len(custom)+len(builtin))
	matchers = append(matchers, custom...)
	for _, m := range builtin {
		if sel.includes(m.Name) {
			matchers = append(matchers, m)
		}
	}
	return &Registry{matchers: matchers}
}

// Detect classifies value, returning the type name and the canonical
// form. Values no matcher claims come back as TypeString, unchanged.
func (r *Registry) Detect(value string) (string, string) {
	for _, m := range r.matchers {
		if canonical, ok := m.match(value); ok {
			return m.Name, canonical
		}
	}
	return TypeString, value
}

// Names returns the registered type names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.matchers))
	for i, m := range r.matchers {
		names[i] = m.Name
	}
	return names
}
