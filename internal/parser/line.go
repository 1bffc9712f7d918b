package parser

import (
	"regexp"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseLine advances the continuation state machine by one raw line.
// It is a pure function of its inputs: feed a file's lines in order,
// threading each returned State into the next call, and collect the
// Lines that have Emit set.
func ParseLine(raw string, st State) (Line, State) {
	switch st.Kind {
	case ContinuationQuoted:
		return continueQuoted(raw, st)
	case ContinuationBackslash:
		return continueBackslash(raw, st)
	}
	return parseIdle(raw)
}

// Finalize completes a continuation left open at end of file. Quoted
// fragments join with newlines, backslash fragments concatenate.
func Finalize(st State) (Line, bool) {
	switch st.Kind {
	case ContinuationQuoted:
		return Line{Emit: true, Key: st.Key, Value: strings.Join(st.Lines, "\n"), Quote: st.Quote}, true
	case ContinuationBackslash:
		return Line{Emit: true, Key: st.Key, Value: strings.Join(st.Lines, "")}, true
	}
	return Line{}, false
}

func parseIdle(raw string) (Line, State) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Line{}, State{}
	}

	eq := indexUnescaped(trimmed, '=')
	if eq < 0 {
		return Line{Malformed: true}, State{}
	}
	key := strings.TrimSpace(trimmed[:eq])
	if !keyPattern.MatchString(key) {
		return Line{Malformed: true}, State{}
	}

	rhsRaw := trimmed[eq+1:]
	rhs := strings.TrimSpace(rhsRaw)
	if rhs == "" {
		return Line{Emit: true, Key: key}, State{}
	}

	if rhs[0] == '"' || rhs[0] == '\'' {
		quote := rhs[0]
		rest := rhs[1:]
		closing := indexUnescaped(rest, quote)
		if closing < 0 {
			return Line{}, State{
				Kind:  ContinuationQuoted,
				Key:   key,
				Quote: string(quote),
				Lines: []string{rest},
			}
		}
		value := rest[:closing]
		_, comment := splitInlineComment(rest[closing+1:])
		return Line{Emit: true, Key: key, Value: value, Comment: comment, Quote: string(quote)}, State{}
	}

	if hasTrailingBackslash(rhs) {
		return Line{}, State{
			Kind:  ContinuationBackslash,
			Key:   key,
			Lines: []string{rhs[:len(rhs)-1]},
		}
	}

	value, comment := splitInlineComment(rhsRaw)
	return Line{Emit: true, Key: key, Value: value, Comment: comment}, State{}
}

func continueQuoted(raw string, st State) (Line, State) {
	trimmed := strings.TrimRight(raw, " \t\r")
	quote := st.Quote[0]
	if n := len(trimmed); n > 0 && trimmed[n-1] == quote && !escapedAt(trimmed, n-1) {
		st.Lines = append(st.Lines, trimmed[:n-1])
		return Line{Emit: true, Key: st.Key, Value: strings.Join(st.Lines, "\n"), Quote: st.Quote}, State{}
	}
	st.Lines = append(st.Lines, raw)
	return Line{}, st
}

func continueBackslash(raw string, st State) (Line, State) {
	trimmed := strings.TrimSpace(raw)
	if hasTrailingBackslash(trimmed) {
		st.Lines = append(st.Lines, trimmed[:len(trimmed)-1])
		return Line{}, st
	}
	st.Lines = append(st.Lines, trimmed)
	return Line{Emit: true, Key: st.Key, Value: strings.Join(st.Lines, "")}, State{}
}

// splitInlineComment separates an unquoted value from a trailing
// comment. A '#' only opens a comment when preceded by whitespace, so
// URL fragments and bare color codes stay part of the value.
func splitInlineComment(rhs string) (string, string) {
	for i := 0; i < len(rhs); i++ {
		if rhs[i] != '#' {
			continue
		}
		if i == 0 || !isSpace(rhs[i-1]) {
			continue
		}
		if escapedAt(rhs, i) {
			continue
		}
		return strings.TrimSpace(rhs[:i]), strings.TrimSpace(rhs[i+1:])
	}
	return strings.TrimSpace(rhs), ""
}

// indexUnescaped returns the index of the first c in s not preceded
// by an odd run of backslashes, or -1.
func indexUnescaped(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c && !escapedAt(s, i) {
			return i
		}
	}
	return -1
}

// escapedAt reports whether the byte at index i sits behind an odd
// run of backslashes.
func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// hasTrailingBackslash reports whether s ends in an unescaped
// backslash, i.e. an odd run of them.
func hasTrailingBackslash(s string) bool {
	n := 0
	for j := len(s) - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
