// config/appconfig.go
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AppKey defines a configuration key for an application.
// Apps register their config keys using this type, and the config package
// loads them from config files, environment variables and command-line flags.
type AppKey struct {
	// Name is the key name (e.g., "recipient_email", "smtp_host").
	// This is used as-is for config files and CLI flags.
	// For env vars, it's uppercased and prefixed (e.g., CONTACT_SMTP_HOST).
	Name string

	// Default is the default value if not set elsewhere.
	// Supported types: string, int, int64, bool, []string.
	Default any

	// Desc is a short description for --help output.
	Desc string
}

// AppConfigValues holds the loaded app configuration values.
// Keys are the AppKey.Name values, values are the loaded configuration.
type AppConfigValues map[string]any

// String returns a string value or empty string if not found/wrong type.
func (a AppConfigValues) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Int returns an int value or 0 if not found/wrong type.
// Handles both int and int64 (TOML/Viper returns int64 for integers).
func (a AppConfigValues) Int(key string) int {
	switch v := a[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Int64 returns an int64 value or 0 if not found/wrong type.
// Handles both int64 and int for flexibility.
func (a AppConfigValues) Int64(key string) int64 {
	switch v := a[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Bool returns a bool value or false if not found/wrong type.
func (a AppConfigValues) Bool(key string) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return false
}

// StringSlice returns a []string value or nil if not found/wrong type.
func (a AppConfigValues) StringSlice(key string) []string {
	if v, ok := a[key].([]string); ok {
		return v
	}
	return nil
}

// Duration parses a duration value from the config.
// Accepts:
//   - Duration strings: "10m", "1h30m", "90s", "2h"
//   - Numeric values: interpreted as seconds (e.g., 600 = 10 minutes)
//   - Plain numeric strings: "600" = 600 seconds
//
// Returns the default value if the key is not found, empty, or invalid.
// Use this for timeout, expiry, and interval configurations.
func (a AppConfigValues) Duration(key string, def time.Duration) time.Duration {
	raw := a[key]
	if raw == nil {
		return def
	}
	dur, err := parseDurationFlexible(raw, def)
	if err != nil {
		return def
	}
	return dur
}

// loadAppConfig resolves app keys against the same viper instance as the
// core config, so they share the env prefix and config files
// (e.g. prefix "CONTACT" maps "recipient_email" to CONTACT_RECIPIENT_EMAIL).
// Explicitly set flags win.
func loadAppConfig(logger *zap.Logger, v *viper.Viper, fs *pflag.FlagSet, envPrefix string, keys []AppKey) AppConfigValues {
	if len(keys) == 0 {
		return make(AppConfigValues)
	}

	for _, key := range keys {
		v.SetDefault(key.Name, key.Default)
		_ = v.BindEnv(key.Name)
		if f := fs.Lookup(key.Name); f != nil && f.Changed {
			_ = v.BindPFlag(key.Name, f)
		}
	}

	result := make(AppConfigValues, len(keys))
	for _, key := range keys {
		result[key.Name] = coerce(key.Default, v.Get(key.Name))
	}

	if logger != nil {
		fields := make([]zap.Field, 0, len(keys)+1)
		fields = append(fields, zap.String("env_prefix", envPrefix))
		for _, key := range keys {
			if isSecret(key.Name) {
				fields = append(fields, zap.String(key.Name, "[REDACTED]"))
			} else {
				fields = append(fields, zap.Any(key.Name, result[key.Name]))
			}
		}
		logger.Info("app config loaded", fields...)
	}

	return result
}

// coerce converts env and flag strings to the type of the key's default,
// so accessors like Int and Bool see the right type whatever the source.
func coerce(def, raw any) any {
	if raw == nil {
		return def
	}
	switch def.(type) {
	case string:
		return cast.ToString(raw)
	case int:
		if n, err := cast.ToIntE(raw); err == nil {
			return n
		}
		return def
	case int64:
		if n, err := cast.ToInt64E(raw); err == nil {
			return n
		}
		return def
	case bool:
		if b, err := cast.ToBoolE(raw); err == nil {
			return b
		}
		return def
	case []string:
		if s, ok := raw.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				return def
			}
			var arr []string
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				return arr
			}
			return def
		}
		return cast.ToStringSlice(raw)
	}
	return raw
}

func isSecret(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "key") ||
		strings.Contains(n, "secret") ||
		strings.Contains(n, "password") ||
		strings.Contains(n, "token")
}

// registerAppFlags registers command-line flags for app config keys.
// Must be called before the flag set is parsed. Registering the same key
// twice with the same type is a no-op.
func registerAppFlags(fs *pflag.FlagSet, keys []AppKey) error {
	for _, key := range keys {
		if f := fs.Lookup(key.Name); f != nil {
			if isCoreKey(key.Name) {
				return fmt.Errorf("config key %q conflicts with existing flag", key.Name)
			}
			continue
		}

		switch d := key.Default.(type) {
		case string:
			fs.String(key.Name, d, key.Desc)
		case int:
			fs.Int(key.Name, d, key.Desc)
		case int64:
			fs.Int64(key.Name, d, key.Desc)
		case bool:
			fs.Bool(key.Name, d, key.Desc)
		case []string:
			// For string slices, accept JSON array on command line
			fs.String(key.Name, "", key.Desc+" (JSON array)")
		default:
			return fmt.Errorf("config key %q has unsupported default type %T", key.Name, key.Default)
		}
	}
	return nil
}

func isCoreKey(name string) bool {
	for _, k := range allKeys() {
		if k == name {
			return true
		}
	}
	return false
}
