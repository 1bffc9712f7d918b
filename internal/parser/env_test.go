package parser

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"envlens/internal/detect"
)

func TestParseSingleAssignment(t *testing.T) {
	p := New(Options{})
	vars := p.Parse("/tmp/.env", []string{"KEY1=value1"})

	require.Len(t, vars, 1)
	v := vars["KEY1"]
	assert.Equal(t, "KEY1", v.Key)
	assert.Equal(t, "value1", v.Value)
	assert.Equal(t, "value1", v.Raw)
	assert.Equal(t, detect.TypeString, v.Type)
	assert.Equal(t, "/tmp/.env", v.Source)
	assert.Equal(t, ".env", v.SourceFile)
}

func TestParseFile(t *testing.T) {
	lines := []string{
		"# service settings",
		"",
		"PORT=8080",
		"DEBUG=yes",
		`NAME="my service"`,
		"EMPTY=",
		"TIMEOUT=30 # seconds",
		`MOTD="line one`,
		`line two"`,
		`PATHS=/usr/bin:\`,
		"/usr/local/bin",
		"not a variable",
		"COLOR=#c0ffee",
	}
	p := New(Options{})
	vars := p.Parse("/etc/app/.env", lines)

	require.Len(t, vars, 8)

	assert.Equal(t, detect.TypeNumber, vars["PORT"].Type)
	assert.Equal(t, "8080", vars["PORT"].Value)

	assert.Equal(t, detect.TypeBoolean, vars["DEBUG"].Type)
	assert.Equal(t, "true", vars["DEBUG"].Value)
	assert.Equal(t, "yes", vars["DEBUG"].Raw)

	assert.Equal(t, "my service", vars["NAME"].Value)
	assert.Equal(t, `"`, vars["NAME"].Quote)

	assert.Equal(t, "", vars["EMPTY"].Value)
	assert.Equal(t, detect.TypeString, vars["EMPTY"].Type)

	assert.Equal(t, "30", vars["TIMEOUT"].Value)
	assert.Equal(t, "seconds", vars["TIMEOUT"].Comment)

	assert.Equal(t, "line one\nline two", vars["MOTD"].Value)
	assert.Equal(t, `"`, vars["MOTD"].Quote)

	assert.Equal(t, "/usr/bin:/usr/local/bin", vars["PATHS"].Value)
	assert.Empty(t, vars["PATHS"].Quote)

	assert.Equal(t, detect.TypeHexColor, vars["COLOR"].Type)

	for _, v := range vars {
		assert.Equal(t, "/etc/app/.env", v.Source)
		assert.Equal(t, ".env", v.SourceFile)
	}
}

func TestParseDuplicateKeysLastWins(t *testing.T) {
	p := New(Options{})
	vars := p.Parse(".env", []string{"K=first", "K=second"})

	require.Len(t, vars, 1)
	assert.Equal(t, "second", vars["K"].Value)
}

func TestParseUnterminatedQuoteKeptAtEOF(t *testing.T) {
	p := New(Options{})
	vars := p.Parse(".env", []string{`KEY="start`, "end"})

	require.Len(t, vars, 1)
	assert.Equal(t, "start\nend", vars["KEY"].Raw)
	assert.Equal(t, `"`, vars["KEY"].Quote)
}

func TestParseMalformedLinesSkipped(t *testing.T) {
	p := New(Options{})
	vars := p.Parse(".env", []string{"GOOD=1", "broken line", "=nokey", "ALSO_GOOD=2"})

	require.Len(t, vars, 2)
	assert.Contains(t, vars, "GOOD")
	assert.Contains(t, vars, "ALSO_GOOD")
}

func TestParseInterpolation(t *testing.T) {
	lines := []string{
		"URL=http://${HOST}:${PORT:-8080}/api",
		"HOST=localhost",
	}
	p := New(Options{Interpolate: true})
	vars := p.Parse(".env", lines)

	assert.Equal(t, "http://localhost:8080/api", vars["URL"].Value)
	assert.Equal(t, detect.TypeLocalhost, vars["URL"].Type)
}

func TestParseInterpolationOffByDefault(t *testing.T) {
	p := New(Options{})
	vars := p.Parse(".env", []string{"HOST=x", "URL=${HOST}"})

	assert.Equal(t, "${HOST}", vars["URL"].Value)
}

func TestParseCustomTypes(t *testing.T) {
	opts := Options{
		CustomTypes: []detect.Matcher{
			{Name: "semver", Pattern: regexp.MustCompile(`^v\d+\.\d+\.\d+$`)},
		},
	}
	p := New(opts)
	vars := p.Parse(".env", []string{"VERSION=v1.2.3", "OTHER=plain"})

	assert.Equal(t, "semver", vars["VERSION"].Type)
	assert.Equal(t, detect.TypeString, vars["OTHER"].Type)
}

func TestParseTypeSelection(t *testing.T) {
	p := New(Options{Types: &detect.Selection{Enabled: map[string]bool{detect.TypeNumber: false}}})
	vars := p.Parse(".env", []string{"N=42", "B=yes"})

	assert.Equal(t, detect.TypeString, vars["N"].Type)
	assert.Equal(t, detect.TypeBoolean, vars["B"].Type)
}

func TestTypeNames(t *testing.T) {
	p := New(Options{})
	names := p.TypeNames()

	assert.Len(t, names, 10)
	assert.Contains(t, names, detect.TypeBoolean)
	assert.Contains(t, names, detect.TypeIPv4)
}

func TestOptionsFingerprint(t *testing.T) {
	base := Options{}
	assert.Equal(t, base.Fingerprint(), Options{}.Fingerprint())

	interp := Options{Interpolate: true}
	assert.NotEqual(t, base.Fingerprint(), interp.Fingerprint())

	sel := Options{Types: &detect.Selection{Enabled: map[string]bool{detect.TypeJSON: false}}}
	assert.NotEqual(t, base.Fingerprint(), sel.Fingerprint())

	custom := Options{CustomTypes: []detect.Matcher{{Name: "x", Pattern: regexp.MustCompile(`^x$`)}}}
	assert.NotEqual(t, base.Fingerprint(), custom.Fingerprint())

	// Same name and pattern, different behavior digest.
	digested := Options{CustomTypes: []detect.Matcher{{Name: "x", Pattern: regexp.MustCompile(`^x$`), Digest: "values=a,b;lowercase=true"}}}
	assert.NotEqual(t, custom.Fingerprint(), digested.Fingerprint())

	// Stable across calls even with multiple selection entries, which
	// exercise map iteration.
	two := Options{Types: &detect.Selection{Enabled: map[string]bool{"a": true, "b": false, "c": true}}}
	assert.Equal(t, two.Fingerprint(), two.Fingerprint())
}
