package kernel

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ersinkoc/webruntime/pkg/rterror"
)

// Mode selects the kernel's trust level.
type Mode string

const (
	// ModeTrusted is the default mode: plugins and loaded code run with
	// full access to whatever the host grants the runtime.
	ModeTrusted Mode = "trusted"
	// ModeRestricted signals to plugins that they should apply additional
	// caution. The kernel itself does not enforce it, and neither of the
	// standard plugins (vfs, builtin-shims) reads the mode.
	ModeRestricted Mode = "restricted"
)

// Config is the kernel's immutable configuration record (spec §4.10):
// cwd, env, and mode, fixed at kernel construction time.
type Config struct {
	Cwd  string
	Env  map[string]string
	Mode Mode
}

// DefaultConfig returns the zero-value default: cwd "/", empty env, and
// trusted mode.
func DefaultConfig() Config {
	return Config{
		Cwd:  "/",
		Env:  make(map[string]string),
		Mode: ModeTrusted,
	}
}

// configOverride is the shape of an optional YAML override file layered
// on top of DefaultConfig and any .env-supplied environment variables.
type configOverride struct {
	Cwd  string `yaml:"cwd"`
	Mode string `yaml:"mode"`
}

// LoadConfig builds a Config starting from DefaultConfig, merging in
// variables from a dotenv file (read with godotenv, in the style the
// teacher's CLI commands use for loading local environment overrides),
// then applying a YAML override file's cwd/mode, if present. Either path
// may be empty, in which case that source is skipped entirely rather
// than erroring on a missing file.
func LoadConfig(dotenvPath, yamlOverridePath string) (Config, error) {
	cfg := DefaultConfig()

	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			values, err := godotenv.Read(dotenvPath)
			if err != nil {
				return Config{}, rterror.Wrap(rterror.KindInvalidArgument, err, dotenvPath)
			}
			merged := make(map[string]string, len(cfg.Env)+len(values))
			for k, v := range cfg.Env {
				merged[k] = v
			}
			for k, v := range values {
				merged[k] = v
			}
			cfg.Env = merged
		}
	}

	if yamlOverridePath != "" {
		if data, err := os.ReadFile(yamlOverridePath); err == nil {
			var override configOverride
			if err := yaml.Unmarshal(data, &override); err != nil {
				return Config{}, rterror.Wrap(rterror.KindInvalidArgument, err, yamlOverridePath)
			}
			if override.Cwd != "" {
				cfg.Cwd = override.Cwd
			}
			if override.Mode != "" {
				cfg.Mode = Mode(override.Mode)
			}
		}
	}

	return cfg, nil
}
