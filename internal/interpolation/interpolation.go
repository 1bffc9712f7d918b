// Package interpolation resolves ${NAME} and ${NAME:-default}
// references between the variables of one scope.
package interpolation

import "regexp"

var refPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Resolve substitutes every ${NAME} and ${NAME:-default} reference in
// raw against the same scope and returns the fully resolved mapping.
// Values are collected before any substitution happens, so forward
// references work regardless of definition order. An undefined name
// without a default resolves to the empty string, and a reference
// cycle resolves every participant to the empty string. The input map
// is not modified.
func Resolve(raw map[string]string) map[string]string {
	r := &resolver{
		raw:      raw,
		resolved: make(map[string]string, len(raw)),
		visiting: make(map[string]bool),
		cyclic:   make(map[string]bool),
	}
	out := make(map[string]string, len(raw))
	for key := range raw {
		out[key] = r.resolve(key)
	}
	return out
}

type resolver struct {
	raw      map[string]string
	resolved map[string]string
	visiting map[string]bool
	chain    []string
	cyclic   map[string]bool
}

// resolve returns key's fully substituted value, memoized so each
// variable expands at most once per scope.
func (r *resolver) resolve(key string) string {
	if r.cyclic[key] {
		return ""
	}
	if v, ok := r.resolved[key]; ok {
		return v
	}
	if r.visiting[key] {
		// Re-entering a key still being expanded means every key on
		// the chain back to it participates in the cycle. Marking them
		// all keeps the result independent of which participant was
		// expanded first.
		for i := len(r.chain) - 1; i >= 0; i-- {
			r.cyclic[r.chain[i]] = true
			if r.chain[i] == key {
				break
			}
		}
		return ""
	}
	r.visiting[key] = true
	r.chain = append(r.chain, key)
	value := r.expand(r.raw[key])
	r.chain = r.chain[:len(r.chain)-1]
	delete(r.visiting, key)
	if r.cyclic[key] {
		return ""
	}
	r.resolved[key] = value
	return value
}

func (r *resolver) expand(value string) string {
	return refPattern.ReplaceAllStringFunc(value, func(match string) string {
		groups := refPattern.FindStringSubmatch(match)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]

		if _, defined := r.raw[name]; !defined {
			if hasDefault {
				return def
			}
			return ""
		}
		resolved := r.resolve(name)
		if resolved == "" && hasDefault {
			return def
		}
		return resolved
	})
}
