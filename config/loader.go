package config

// loader.go - configuration loading from a TOML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (LoadFromEnv)
//   3. Config file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	zerr "zing/internal/errors"
	"zing/internal/resolve"
)

// ── Config file ──────────────────────────────────────────────────────

// fileConfig mirrors the accepted TOML keys.  Pointers distinguish an
// absent key from a zero value.
type fileConfig struct {
	Host          *string `toml:"host"`
	Ports         *string `toml:"ports"`
	Family        *string `toml:"family"`
	Cycles        *int    `toml:"cycles"`
	Attempts      *int    `toml:"attempts"`
	TimeoutMS     *int    `toml:"timeout_ms"`
	FailoverDelay *string `toml:"failover_delay"`
	Verbose       *int    `toml:"verbose"`
	JSON          *bool   `toml:"json"`
}

// LoadFile overlays the TOML file at path onto cfg.  Unknown keys are
// rejected so typos do not pass silently.
func LoadFile(path string, cfg *Config) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return &zerr.ConfigError{Field: "config", Value: path, Message: err.Error()}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return &zerr.ConfigError{
			Field:   "config",
			Value:   path,
			Message: "unknown key(s): " + strings.Join(keys, ", "),
			Hint:    "valid keys: host, ports, family, cycles, attempts, timeout_ms, failover_delay, verbose, json",
		}
	}

	if fc.Host != nil {
		cfg.Host = *fc.Host
	}
	if fc.Ports != nil {
		if err := cfg.SetPorts(*fc.Ports); err != nil {
			return err
		}
	}
	if fc.Family != nil {
		fam, err := resolve.ParseFamily(*fc.Family)
		if err != nil {
			return &zerr.ConfigError{Field: "family", Value: *fc.Family, Message: err.Error()}
		}
		cfg.Family = fam
	}
	if fc.Cycles != nil {
		cfg.Cycles = *fc.Cycles
	}
	if fc.Attempts != nil {
		cfg.Attempts = *fc.Attempts
	}
	if fc.TimeoutMS != nil {
		cfg.Timeout = millis(*fc.TimeoutMS)
	}
	if fc.FailoverDelay != nil {
		d, err := time.ParseDuration(*fc.FailoverDelay)
		if err != nil {
			return &zerr.ConfigError{Field: "failover-delay", Value: *fc.FailoverDelay, Message: err.Error()}
		}
		cfg.FailoverDelay = d
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	if fc.JSON != nil {
		cfg.JSON = *fc.JSON
	}
	return nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the ZING_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// ConfigPathFromEnv returns ZING_CONFIG, if set.
func ConfigPathFromEnv() string { return os.Getenv(EnvPrefix + "CONFIG") }

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it after LoadFile and
// before applying CLI flags so that flags take precedence.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv(EnvPrefix + "PORTS"); v != "" {
		if err := cfg.SetPorts(v); err != nil {
			return err
		}
	}
	if v := os.Getenv(EnvPrefix + "FAMILY"); v != "" {
		fam, err := resolve.ParseFamily(v)
		if err != nil {
			return &zerr.ConfigError{Field: "family", Value: v, Message: err.Error()}
		}
		cfg.Family = fam
	}
	for _, e := range []struct {
		key, field string
		set        func(int)
	}{
		{"COUNT", "count", func(n int) { cfg.Cycles = n }},
		{"OPS", "ops", func(n int) { cfg.Attempts = n }},
		{"TIMEOUT", "timeout", func(n int) { cfg.Timeout = millis(n) }},
	} {
		n, ok, err := envInt(e.key, e.field, 1)
		if err != nil {
			return err
		}
		if ok {
			e.set(n)
		}
	}
	if v := os.Getenv(EnvPrefix + "FAILOVER_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return &zerr.ConfigError{
				Field:   "failover-delay",
				Value:   v,
				Message: fmt.Sprintf("%s%s: %v", EnvPrefix, "FAILOVER_DELAY", err),
			}
		}
		cfg.FailoverDelay = d
	}
	if n, ok, err := envInt("VERBOSE", "verbose", 0); err != nil {
		return err
	} else if ok {
		cfg.Verbose = n
	}
	if envBool("JSON") {
		cfg.JSON = true
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

// envInt reads an integer env var.  ok is false when the variable is
// unset or empty; a non-integer or a value below least is a ConfigError
// against field.
func envInt(key, field string, least int) (n int, ok bool, err error) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(v)
	if err != nil {
		return 0, false, &zerr.ConfigError{
			Field:   field,
			Value:   v,
			Message: fmt.Sprintf("%s%s: not an integer", EnvPrefix, key),
		}
	}
	if n < least {
		return 0, false, &zerr.ConfigError{
			Field:   field,
			Value:   v,
			Message: fmt.Sprintf("%s%s: must be at least %d", EnvPrefix, key, least),
		}
	}
	return n, true, nil
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(EnvPrefix + key))
	return v == "1" || v == "true" || v == "yes"
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
