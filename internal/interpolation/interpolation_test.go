package interpolation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]string
		want map[string]string
	}{
		{
			name: "no references pass through",
			raw:  map[string]string{"A": "plain", "B": "also plain"},
			want: map[string]string{"A": "plain", "B": "also plain"},
		},
		{
			name: "simple reference",
			raw:  map[string]string{"HOST": "db.local", "URL": "http://${HOST}/api"},
			want: map[string]string{"HOST": "db.local", "URL": "http://db.local/api"},
		},
		{
			name: "forward reference",
			raw:  map[string]string{"URL": "http://${HOST}", "HOST": "later.local"},
			want: map[string]string{"URL": "http://later.local", "HOST": "later.local"},
		},
		{
			name: "chained references",
			raw:  map[string]string{"A": "${B}", "B": "${C}", "C": "end"},
			want: map[string]string{"A": "end", "B": "end", "C": "end"},
		},
		{
			name: "reference to interpolated value",
			raw:  map[string]string{"BASE": "http://${HOST}", "HOST": "x", "FULL": "${BASE}/v1"},
			want: map[string]string{"BASE": "http://x", "HOST": "x", "FULL": "http://x/v1"},
		},
		{
			name: "undefined resolves empty",
			raw:  map[string]string{"A": "pre${MISSING}post"},
			want: map[string]string{"A": "prepost"},
		},
		{
			name: "default for undefined",
			raw:  map[string]string{"A": "${MISSING:-fallback}"},
			want: map[string]string{"A": "fallback"},
		},
		{
			name: "default for defined but empty",
			raw:  map[string]string{"EMPTY": "", "A": "${EMPTY:-fallback}"},
			want: map[string]string{"EMPTY": "", "A": "fallback"},
		},
		{
			name: "default ignored when value set",
			raw:  map[string]string{"SET": "real", "A": "${SET:-fallback}"},
			want: map[string]string{"SET": "real", "A": "real"},
		},
		{
			name: "empty default",
			raw:  map[string]string{"A": "x${MISSING:-}y"},
			want: map[string]string{"A": "xy"},
		},
		{
			name: "default applies through a chain",
			raw:  map[string]string{"A": "${B:-fallback}", "B": "${MISSING}"},
			want: map[string]string{"A": "fallback", "B": ""},
		},
		{
			name: "multiple references in one value",
			raw:  map[string]string{"U": "u", "P": "p", "DSN": "${U}:${P}@host"},
			want: map[string]string{"U": "u", "P": "p", "DSN": "u:p@host"},
		},
		{
			name: "two-node cycle resolves empty",
			raw:  map[string]string{"A": "${B}", "B": "${A}"},
			want: map[string]string{"A": "", "B": ""},
		},
		{
			name: "self reference resolves empty",
			raw:  map[string]string{"A": "${A}"},
			want: map[string]string{"A": ""},
		},
		{
			name: "cycle with literal text resolves participants empty",
			raw:  map[string]string{"A": "x${B}", "B": "y${A}"},
			want: map[string]string{"A": "", "B": ""},
		},
		{
			name: "self reference with literal text resolves empty",
			raw:  map[string]string{"A": "x${A}"},
			want: map[string]string{"A": ""},
		},
		{
			name: "cycle does not taint outside referrer",
			raw:  map[string]string{"A": "${B}", "B": "${A}", "C": "pre${A}post"},
			want: map[string]string{"A": "", "B": "", "C": "prepost"},
		},
		{
			name: "three-node cycle resolves participants empty",
			raw:  map[string]string{"A": "a${B}", "B": "b${C}", "C": "c${A}"},
			want: map[string]string{"A": "", "B": "", "C": ""},
		},
		{
			name: "bare dollar is literal",
			raw:  map[string]string{"A": "cost is $5", "B": "$HOME"},
			want: map[string]string{"A": "cost is $5", "B": "$HOME"},
		},
		{
			name: "unterminated brace is literal",
			raw:  map[string]string{"A": "${OOPS"},
			want: map[string]string{"A": "${OOPS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.raw))
		})
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	raw := map[string]string{"HOST": "x", "URL": "http://${HOST}"}
	Resolve(raw)
	assert.Equal(t, "http://${HOST}", raw["URL"])
}

func TestResolveEmptyScope(t *testing.T) {
	assert.Empty(t, Resolve(nil))
	assert.Empty(t, Resolve(map[string]string{}))
}
