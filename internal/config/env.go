// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/zonewatch/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "ZONEWATCH_"

func envLogger() zerolog.Logger {
	return log.WithComponent("config")
}

func sensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "password")
}

// lookup returns the variable's value; an empty value counts as unset.
func lookup(logger zerolog.Logger, key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	if v == "" {
		logger.Debug().
			Str("event", "config.env_empty").
			Str("key", key).
			Msg("environment variable is empty, keeping current value")
		return "", false
	}
	return v, true
}

func logSource(logger zerolog.Logger, key string, value any) {
	ev := logger.Debug().
		Str("event", "config.env_override").
		Str("key", key).
		Str("source", "environment")
	if sensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Interface("value", value)
	}
	ev.Msg("using environment variable")
}

// ParseString reads a string from the environment or returns defaultValue.
func ParseString(key, defaultValue string) string {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	logSource(logger, key, v)
	return v
}

// ParseInt reads an integer from the environment. Values that do not parse
// are logged and ignored.
func ParseInt(key string, defaultValue int) int {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("event", "config.env_invalid").
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logSource(logger, key, i)
	return i
}

// ParseFloat reads a float64 from the environment.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger.Warn().
			Str("event", "config.env_invalid").
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	logSource(logger, key, f)
	return f
}

// ParseDuration reads a Go duration ("5s") from the environment.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("event", "config.env_invalid").
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logSource(logger, key, d.String())
	return d
}

// ParseBool reads a boolean from the environment. It accepts true/false,
// 1/0 and yes/no in any case.
func ParseBool(key string, defaultValue bool) bool {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		logSource(logger, key, true)
		return true
	case "false", "0", "no":
		logSource(logger, key, false)
		return false
	default:
		logger.Warn().
			Str("event", "config.env_invalid").
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}

// ParseList reads a comma separated list from the environment.
func ParseList(key string, defaultValue []string) []string {
	logger := envLogger()
	v, ok := lookup(logger, key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	logSource(logger, key, out)
	return out
}
