// Package config resolves droidexec's execution defaults and the Factory
// custom model registry. Both files are optional; malformed files degrade to
// built-in defaults with a logged diagnostic.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mylxsw/asteria/log"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"
)

const (
	DefaultTimeout  = 600 * time.Second
	MaxTimeoutLimit = 3600 * time.Second

	// DefaultAutonomy applies when the defaults file names none.
	DefaultAutonomy = "high"

	ConfigFileName = "droid-mcp.config.json"

	EnvConfigPath = "DROID_MCP_CONFIG_PATH"
	EnvExtraArgs  = "DROID_MCP_EXTRA_ARGS"
)

var logger = log.Module("config")

// Defaults holds the contents of droid-mcp.config.json.
type Defaults struct {
	AdditionalArgs    []string `mapstructure:"additional_args"`
	TimeoutSecs       int      `mapstructure:"timeout_secs"`
	DefaultAuto       string   `mapstructure:"default_auto"`
	DefaultModel      string   `mapstructure:"default_model"`
	MaxTimeoutSecs    int      `mapstructure:"max_timeout_secs"`
	AllowHighAutonomy *bool    `mapstructure:"allow_high_autonomy"`
}

// DefaultTimeout is the run timeout used when a request names none.
func (d Defaults) DefaultTimeout() time.Duration {
	switch {
	case d.TimeoutSecs > 0 && time.Duration(d.TimeoutSecs)*time.Second <= MaxTimeoutLimit:
		return time.Duration(d.TimeoutSecs) * time.Second
	case d.TimeoutSecs > 0:
		return MaxTimeoutLimit
	}
	return DefaultTimeout
}

// MaxTimeout is the ceiling every requested timeout is clamped to.
func (d Defaults) MaxTimeout() time.Duration {
	if d.MaxTimeoutSecs > 0 {
		return min(time.Duration(d.MaxTimeoutSecs)*time.Second, MaxTimeoutLimit)
	}
	return MaxTimeoutLimit
}

// ClampTimeout resolves a requested timeout. Zero or negative selects the
// default; anything above the maximum is clamped down.
func (d Defaults) ClampTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		requested = d.DefaultTimeout()
	}
	return min(requested, d.MaxTimeout())
}

// DefaultAutonomy returns the autonomy level applied to requests without one.
func (d Defaults) DefaultAutonomy() string {
	if auto := strings.TrimSpace(d.DefaultAuto); auto != "" {
		return auto
	}
	return DefaultAutonomy
}

// HighAutonomyAllowed reports whether "high" autonomy may be requested.
func (d Defaults) HighAutonomyAllowed() bool {
	return d.AllowHighAutonomy == nil || *d.AllowHighAutonomy
}

// Config is the process-wide configuration. It is built once at startup and
// never mutated afterwards.
type Config struct {
	Defaults Defaults
	Models   *Registry
}

// Load resolves both configuration files from their well-known locations.
func Load() *Config {
	return &Config{
		Defaults: LoadDefaults(DefaultsPath()),
		Models:   LoadRegistry(RegistryPath()),
	}
}

// DefaultsPath returns DROID_MCP_CONFIG_PATH when set, otherwise
// droid-mcp.config.json in the working directory.
func DefaultsPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ConfigFileName)
}

// LoadDefaults reads the execution defaults at path. A missing or malformed
// file yields built-in defaults. A file that loads but leaves out
// allow_high_autonomy disallows high autonomy.
func LoadDefaults(path string) Defaults {
	var d Defaults
	if path != "" {
		loaded, err := readJSON(path, &d)
		switch {
		case err != nil:
			logger.Errorf("failed to load config %s: %v", path, err)
			d = Defaults{}
		case loaded && d.AllowHighAutonomy == nil:
			allow := false
			d.AllowHighAutonomy = &allow
		}
	}

	args := make([]string, 0, len(d.AdditionalArgs))
	for _, arg := range d.AdditionalArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	d.AdditionalArgs = append(args, extraArgsFromEnv()...)
	return d
}

// extraArgsFromEnv splits DROID_MCP_EXTRA_ARGS with shell word rules.
func extraArgsFromEnv() []string {
	raw := strings.TrimSpace(os.Getenv(EnvExtraArgs))
	if raw == "" {
		return nil
	}
	fields, err := shell.Fields(raw, os.Getenv)
	if err != nil {
		logger.Errorf("failed to parse %s: %v", EnvExtraArgs, err)
		return nil
	}
	return fields
}

// readJSON decodes the JSON file at path into out and reports whether a file
// was read. A file that does not exist is not an error and leaves out
// untouched.
func readJSON(path string, out any) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if !info.Mode().IsRegular() {
		return false, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return false, fmt.Errorf("parse: %w", err)
	}
	if err := v.Unmarshal(out); err != nil {
		return false, fmt.Errorf("decode: %w", err)
	}
	return true, nil
}
