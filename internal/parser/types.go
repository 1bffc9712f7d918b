package parser

import (
	"fmt"
	"sort"
	"strings"

	"envlens/internal/detect"
	"envlens/internal/textutil"
)

// Variable is one resolved environment variable from a parsed file.
// Value holds the canonical form after any type transform; Raw keeps
// the resolved text as written, for display.
type Variable struct {
	Key        string `json:"key"`
	Value      string `json:"value"`
	Raw        string `json:"raw"`
	Type       string `json:"type"`
	Comment    string `json:"comment,omitempty"`
	Quote      string `json:"quote_char,omitempty"`
	Source     string `json:"source"`
	SourceFile string `json:"source_file"`
}

// Continuation tags the kind of multi-line value in flight.
type Continuation int

const (
	ContinuationNone Continuation = iota
	ContinuationQuoted
	ContinuationBackslash
)

// State carries parser progress across line boundaries within one
// file. The zero value is the idle state. Thread the state returned
// by ParseLine into the next call; never share it across files.
type State struct {
	Kind  Continuation
	Key   string
	Lines []string
	Quote string
}

// Active reports whether a multi-line value is in flight.
func (s State) Active() bool {
	return s.Kind != ContinuationNone
}

// Line is the outcome of parsing one raw line. Emit is true when a
// complete key/value pair is available. A line that neither emits nor
// advances a continuation was blank, a comment, or malformed.
type Line struct {
	Emit      bool
	Key       string
	Value     string
	Comment   string
	Quote     string
	Malformed bool
}

// Options configures a Parser. The zero value parses with every
// built-in type matcher enabled and interpolation off.
type Options struct {
	// Interpolate enables ${NAME} and ${NAME:-default} resolution
	// across each file's values.
	Interpolate bool
	// Types filters the built-in matcher set. Nil enables all.
	Types *detect.Selection
	// CustomTypes are tried before the built-ins, in order.
	CustomTypes []detect.Matcher
}

// Fingerprint identifies the parse-relevant option set. The loader
// stores it alongside its cache so entries built under different
// options are never served.
func (o Options) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "interpolate=%t;", o.Interpolate)
	if o.Types != nil {
		fmt.Fprintf(&b, "disable_all=%t;", o.Types.DisableAll)
		names := make([]string, 0, len(o.Types.Enabled))
		for name := range o.Types.Enabled {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "%s=%t;", name, o.Types.Enabled[name])
		}
	}
	for _, m := range o.CustomTypes {
		b.WriteString("custom=" + m.Name)
		if m.Pattern != nil {
			b.WriteString(":" + m.Pattern.String())
		}
		if m.Digest != "" {
			b.WriteString(":" + m.Digest)
		}
		b.WriteByte(';')
	}
	return textutil.Hash(b.String())
}
