package config

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/apex/log"
	"github.com/binary-install/sqlcmd-install/pkg/formula"
	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

const (
	// ProjectPath is the formula location looked up in the working
	// directory and its parents.
	ProjectPath = ".config/sqlcmd-install.yml"
	// UserPath is the formula location relative to XDG_CONFIG_HOME.
	UserPath = "sqlcmd-install/formula.yml"
	// BuiltinPath is reported as the source of the embedded formula.
	BuiltinPath = "(built-in)"
)

// ErrNotFound is returned by Discover when no formula file exists.
var ErrNotFound = errors.New("no sqlcmd-install formula found")

//go:embed sqlcmd.yml
var builtin []byte

// Parse decodes a formula document and applies defaults. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func Parse(data []byte) (*formula.Formula, error) {
	var f formula.Formula
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, errors.Wrap(err, "failed to parse formula")
	}
	f.SetDefaults()
	return &f, nil
}

// Load reads and parses a formula file from the given path.
func Load(path string) (*formula.Formula, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read formula file: %s", path)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return f, nil
}

// Default returns the built-in sqlcmd formula.
func Default() *formula.Formula {
	f, err := Parse(builtin)
	if err != nil {
		panic(errors.Wrap(err, "built-in formula"))
	}
	return f
}

// Discover searches the current directory and its parents for
// .config/sqlcmd-install.yml, then the user's XDG config directory.
func Discover() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get current directory")
	}

	for {
		candidate := filepath.Join(dir, ProjectPath)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if path, err := xdg.SearchConfigFile(UserPath); err == nil {
		return path, nil
	}

	return "", ErrNotFound
}

// LoadOrDiscover loads the formula at path, or discovers one when path is
// empty. Without any formula file the built-in formula is returned.
func LoadOrDiscover(path string) (*formula.Formula, string, error) {
	if path == "" {
		found, err := Discover()
		switch {
		case errors.Is(err, ErrNotFound):
			log.Debug("no formula file found, using built-in sqlcmd formula")
			return Default(), BuiltinPath, nil
		case err != nil:
			return nil, "", err
		}
		path = found
	}

	log.Debugf("Reading formula from: %s", path)
	f, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// Builtin returns the raw built-in formula document.
func Builtin() []byte {
	return append([]byte(nil), builtin...)
}

// Save writes f to path as YAML, creating parent directories.
func Save(path string, f *formula.Formula) error {
	data, err := yaml.MarshalWithOptions(f, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return errors.Wrap(err, "failed to encode formula")
	}
	return WriteFile(path, data)
}

// WriteFile writes a formula document to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write formula file: %s", path)
	}
	return nil
}
