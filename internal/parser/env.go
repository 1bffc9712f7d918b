// Package parser turns .env-style file content into typed variable
// records. ParseLine is the line-level continuation state machine;
// Parser drives it over whole files, layering interpolation and type
// detection on top of the raw key/value pairs.
package parser

import (
	"path/filepath"

	"github.com/rs/zerolog/log"

	"envlens/internal/detect"
	"envlens/internal/interpolation"
)

// Parser converts file content into variables under a fixed option
// set. The detect registry is compiled once at construction, so a
// single Parser is safe for concurrent use across files.
type Parser struct {
	opts     Options
	registry *detect.Registry
}

// New builds a Parser for the given options.
func New(opts Options) *Parser {
	return &Parser{
		opts:     opts,
		registry: detect.NewRegistry(opts.CustomTypes, opts.Types),
	}
}

// TypeNames returns the active type matcher names in priority order.
func (p *Parser) TypeNames() []string {
	return p.registry.Names()
}

// Parse runs the state machine over one file's lines and returns the
// resulting variables keyed by name. Later duplicates of a key
// overwrite earlier ones. Malformed lines are skipped and never fail
// the file.
func (p *Parser) Parse(path string, lines []string) map[string]Variable {
	type pending struct {
		value   string
		comment string
		quote   string
	}
	entries := make(map[string]pending)
	var order []string

	record := func(ln Line) {
		if _, seen := entries[ln.Key]; !seen {
			order = append(order, ln.Key)
		}
		entries[ln.Key] = pending{value: ln.Value, comment: ln.Comment, quote: ln.Quote}
	}

	var st State
	skipped := 0
	for i, raw := range lines {
		ln, next := ParseLine(raw, st)
		st = next
		if ln.Malformed {
			skipped++
			log.Debug().Str("path", path).Int("line", i+1).Msg("Skipping malformed line")
			continue
		}
		if ln.Emit {
			record(ln)
		}
	}
	// A continuation still open at EOF keeps what it collected.
	if ln, ok := Finalize(st); ok {
		record(ln)
	}

	raw := make(map[string]string, len(entries))
	for k, e := range entries {
		raw[k] = e.value
	}
	resolved := raw
	if p.opts.Interpolate {
		resolved = interpolation.Resolve(raw)
	}

	vars := make(map[string]Variable, len(entries))
	base := filepath.Base(path)
	for _, k := range order {
		e := entries[k]
		value := resolved[k]
		typeName, canonical := p.registry.Detect(value)
		vars[k] = Variable{
			Key:        k,
			Value:      canonical,
			Raw:        value,
			Type:       typeName,
			Comment:    e.comment,
			Quote:      e.quote,
			Source:     path,
			SourceFile: base,
		}
	}

	log.Debug().
		Str("file", base).
		Int("lines", len(lines)).
		Int("variables", len(vars)).
		Int("skipped", skipped).
		Msg("Parsed env file")
	return vars
}
