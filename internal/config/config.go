// Package config carries process-level settings read from the
// environment, plus the optional custom-types definition file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/jsonc"

	"envlens/internal/detect"
)

// Config holds the settings the CLI starts from. Flags override
// individual fields.
type Config struct {
	Workers     int
	LogLevel    string
	Interpolate bool
	TypesFile   string
}

// Load reads configuration from the process environment, after
// loading a local .env file when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Workers:     getEnvInt("ENVLENS_WORKERS", 8),
		LogLevel:    getEnv("ENVLENS_LOG_LEVEL", "info"),
		Interpolate: getEnvBool("ENVLENS_INTERPOLATE", false),
		TypesFile:   getEnv("ENVLENS_TYPES_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-integer env value")
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-boolean env value")
	}
	return fallback
}

// typesFile is the on-disk shape of the custom types definition. The
// file is JSONC, so comments and trailing commas are allowed.
type typesFile struct {
	Types []typeDef `json:"types"`
}

type typeDef struct {
	Name      string   `json:"name"`
	Pattern   string   `json:"pattern"`
	Values    []string `json:"values"`
	Lowercase bool     `json:"lowercase"`
}

// LoadTypesFile reads custom matcher definitions from path. Entries
// that cannot be used (missing name, bad regex, no rule at all) are
// skipped with a warning rather than failing the whole load.
func LoadTypesFile(path string) ([]detect.Matcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading types file: %w", err)
	}
	var tf typesFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &tf); err != nil {
		return nil, fmt.Errorf("parsing types file %s: %w", path, err)
	}

	matchers := make([]detect.Matcher, 0, len(tf.Types))
	for _, def := range tf.Types {
		m, err := buildMatcher(def)
		if err != nil {
			log.Warn().Err(err).Str("type", def.Name).Msg("Skipping custom type")
			continue
		}
		matchers = append(matchers, m)
	}
	log.Debug().Int("count", len(matchers)).Str("path", path).Msg("Loaded custom types")
	return matchers, nil
}

func buildMatcher(def typeDef) (detect.Matcher, error) {
	if def.Name == "" {
		return detect.Matcher{}, fmt.Errorf("missing name")
	}
	if def.Pattern == "" && len(def.Values) == 0 {
		return detect.Matcher{}, fmt.Errorf("needs a pattern or values")
	}

	m := detect.Matcher{Name: def.Name}
	if def.Pattern != "" {
		re, err := regexp.Compile(def.Pattern)
		if err != nil {
			return detect.Matcher{}, fmt.Errorf("compiling pattern: %w", err)
		}
		m.Pattern = re
	}
	if len(def.Values) > 0 {
		allowed := make(map[string]bool, len(def.Values))
		for _, v := range def.Values {
			allowed[strings.ToLower(v)] = true
		}
		m.Validate = func(v string) bool {
			return allowed[strings.ToLower(v)]
		}
	}
	if def.Lowercase {
		m.Transform = strings.ToLower
	}
	m.Digest = fmt.Sprintf("values=%s;lowercase=%t", strings.Join(def.Values, ","), def.Lowercase)
	return m, nil
}
