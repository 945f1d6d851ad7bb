// Package configutil reads json5 configuration files with optional
// local overrides: <name>.<ext> first, then <name>.local.<ext> merged
// on top of it. The local file is for per-machine secrets and tweaks
// and is expected to stay out of version control.
package configutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// the path of the override file next to "dir/app.json5" is
// "dir/app.local.json5"
func localPath(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// ReadConfig parses name and merges the sibling local override on top,
// override values win. When neither file exists it returns
// os.ErrNotExist so callers can distinguish "no config" from a broken
// one.
func ReadConfig[T any](name string) (T, error) {
	var out T

	base, baseErr := os.ReadFile(name)
	if baseErr != nil && !os.IsNotExist(baseErr) {
		return out, baseErr
	}
	if len(base) > 0 {
		if err := json5.Unmarshal(base, &out); err != nil {
			return out, err
		}
	}

	overridePath := localPath(name)
	override, overrideErr := os.ReadFile(overridePath)
	if overrideErr != nil && !os.IsNotExist(overrideErr) {
		return out, overrideErr
	}
	if len(override) > 0 {
		var local T
		if err := json5.Unmarshal(override, &local); err != nil {
			return out, err
		}
		if err := mergo.Merge(&out, local, mergo.WithOverride); err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", overridePath)
	}

	if len(base) == 0 && len(override) == 0 {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks from the working directory up to the
// filesystem root looking for name, reading the first hit with
// ReadConfig. Lets one checked-in config serve every binary run from
// anywhere inside the tree.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	current, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if !os.IsNotExist(err) {
			return config, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return zero, os.ErrNotExist
		}
		current = parent
	}
}
