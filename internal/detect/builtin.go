package detect

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	booleanPattern   = regexp.MustCompile(`^(?i:true|false|yes|no|1|0)$`)
	numberPattern    = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	localhostPattern = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1)(:\d+)?([/?#].*)?$`)
	urlPattern       = regexp.MustCompile(`^https?://`)
	dbURLPattern     = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://[^/@]+@`)
	isoDatePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoTimePattern   = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
	jsonPattern      = regexp.MustCompile(`^[\[{]`)
	hexColorPattern  = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	ipv4Pattern      = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
)

// booleanForms maps every accepted boolean spelling, lowercased, to
// its canonical form.
var booleanForms = map[string]string{
	"true":  "true",
	"yes":   "true",
	"1":     "true",
	"false": "false",
	"no":    "false",
	"0":     "false",
}

// databaseSchemes lists the URL schemes recognized as database
// connection strings.
var databaseSchemes = map[string]bool{
	"postgres":   true,
	"postgresql": true,
	"mysql":      true,
	"mariadb":    true,
	"mongodb":    true,
	"redis":      true,
}

// Builtins returns the built-in matchers in priority order. More
// specific types come before the general ones they overlap with:
// boolean before number ("1" is a boolean), localhost before url.
func Builtins() []Matcher {
	return []Matcher{
		{
			Name:    TypeBoolean,
			Pattern: booleanPattern,
			Transform: func(v string) string {
				return booleanForms[strings.ToLower(v)]
			},
		},
		{
			Name:    TypeNumber,
			Pattern: numberPattern,
			Validate: func(v string) bool {
				_, err := strconv.ParseFloat(v, 64)
				return err == nil
			},
		},
		{
			Name:     TypeLocalhost,
			Pattern:  localhostPattern,
			Validate: validateLocalhost,
		},
		{
			Name:     TypeURL,
			Pattern:  urlPattern,
			Validate: validateURL,
		},
		{
			Name:     TypeDatabaseURL,
			Pattern:  dbURLPattern,
			Validate: validateDatabaseURL,
		},
		{
			Name:    TypeISODate,
			Pattern: isoDatePattern,
			Validate: func(v string) bool {
				_, err := time.Parse("2006-01-02", v)
				return err == nil
			},
		},
		{
			Name:    TypeISOTime,
			Pattern: isoTimePattern,
			Validate: func(v string) bool {
				_, err := time.Parse("15:04:05", v)
				return err == nil
			},
		},
		{
			Name:     TypeJSON,
			Pattern:  jsonPattern,
			Validate: gjson.Valid,
		},
		{
			Name:    TypeHexColor,
			Pattern: hexColorPattern,
		},
		{
			Name:     TypeIPv4,
			Pattern:  ipv4Pattern,
			Validate: validateIPv4,
		},
	}
}

func validateLocalhost(v string) bool {
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		return false
	}
	return u.Port() == "" || validPort(u.Port())
}

func validateURL(v string) bool {
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Hostname() == "" {
		return false
	}
	return u.Port() == "" || validPort(u.Port())
}

// validateDatabaseURL requires the full credential shape: a known
// scheme, user with a non-empty password, host, and a numeric port.
func validateDatabaseURL(v string) bool {
	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	if !databaseSchemes[u.Scheme] {
		return false
	}
	if u.User == nil || u.User.Username() == "" {
		return false
	}
	if pass, set := u.User.Password(); !set || pass == "" {
		return false
	}
	if u.Hostname() == "" {
		return false
	}
	return validPort(u.Port())
}

func validateIPv4(v string) bool {
	for _, octet := range strings.Split(v, ".") {
		n, err := strconv.Atoi(octet)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

func validPort(p string) bool {
	n, err := strconv.Atoi(p)
	return err == nil && n >= 1 && n <= 65535
}
