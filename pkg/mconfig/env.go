// Package mconfig loads process configuration from environment variables
// into a tagged struct, mirroring the teacher's common/os.go SetConfigFromEnvVars.
package mconfig

import (
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// LoadDotEnv loads a local .env file when ENV_NAME is unset or "local".
// Missing files are not an error; this is a convenience for local dev only.
func LoadDotEnv() {
	envName := GetenvOrDefault("ENV_NAME", "local")
	if envName != "local" {
		return
	}

	_ = godotenv.Load()
}

// GetenvOrDefault returns os.Getenv(key), or defaultValue if unset/blank.
func GetenvOrDefault(key, defaultValue string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return defaultValue
	}

	return v
}

// GetenvBoolOrDefault parses os.Getenv(key) as a bool, or returns defaultValue.
func GetenvBoolOrDefault(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return v
}

// GetenvIntOrDefault parses os.Getenv(key) as an int64, or returns defaultValue.
func GetenvIntOrDefault(key string, defaultValue int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultValue
	}

	return v
}

// Load populates s (a pointer to a struct) from environment variables using
// the "env" struct tag. Supported field kinds: string, bool, int family.
// A field may also carry "envDefault" for a fallback value.
func Load(s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errors.New("s must be a non-nil pointer to a struct")
	}

	t := v.Elem().Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		key, ok := field.Tag.Lookup("env")
		if !ok {
			continue
		}

		def := field.Tag.Get("envDefault")

		fv := v.Elem().Field(i)
		if !fv.CanSet() {
			continue
		}

		switch fv.Kind() {
		case reflect.Bool:
			fv.SetBool(GetenvBoolOrDefault(key, def == "true"))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			var defInt int64
			if def != "" {
				defInt, _ = strconv.ParseInt(def, 10, 64)
			}

			fv.SetInt(GetenvIntOrDefault(key, defInt))
		default:
			fv.SetString(GetenvOrDefault(key, def))
		}
	}

	return nil
}

// RequireNonEmpty fails fast if any of the named fields resolved to an empty
// string, per SPEC_FULL.md §6 ("Missing required variables must fail fast").
func RequireNonEmpty(values map[string]string) error {
	var missing []string

	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return errors.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}
