package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/binary-install/sqlcmd-install/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCommand(t *testing.T) {
	t.Run("writes project formula", func(t *testing.T) {
		dir := isolate(t)

		_, err := execute(t, "", "init")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(dir, config.ProjectPath))
		require.NoError(t, err)
		assert.Equal(t, config.Builtin(), data)

		// Later commands discover the written file.
		f, source, err := config.LoadOrDiscover("")
		require.NoError(t, err)
		assert.NotEqual(t, config.BuiltinPath, source)
		assert.Equal(t, "microsoft/go-sqlcmd", f.Repo)
	})

	t.Run("stdout", func(t *testing.T) {
		isolate(t)

		out, err := execute(t, "", "init", "-o", "-")
		require.NoError(t, err)
		assert.Equal(t, string(config.Builtin()), out)
		assert.NoFileExists(t, config.ProjectPath)
	})

	t.Run("existing file declined", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "formula.yml")
		require.NoError(t, os.WriteFile(path, []byte("keep"), 0644))

		out, err := execute(t, "n\n", "init", "-o", path)
		assert.ErrorContains(t, err, "operation cancelled")
		assert.Contains(t, out, "already exists. Overwrite? (y/N)")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "keep", string(data))
	})

	t.Run("existing file confirmed", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "formula.yml")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

		_, err := execute(t, "yes\n", "init", "-o", path)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, config.Builtin(), data)
	})

	t.Run("force", func(t *testing.T) {
		dir := isolate(t)
		path := filepath.Join(dir, "formula.yml")
		require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

		_, err := execute(t, "", "init", "-o", path, "--force")
		require.NoError(t, err)
	})
}

func TestPromptForConfirmation(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := promptForConfirmation(strings.NewReader(tt.input), &out, "Overwrite?")
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, "Overwrite? (y/N): ", out.String())
	}
}
