package install

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInstallDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	tests := []struct {
		name    string
		binDir  string
		env     map[string]string
		want    string
		wantErr bool
	}{
		{
			name:   "default falls back to home",
			binDir: "${SQLCMD_INSTALL_BIN:-${HOME}/.local/bin}",
			env:    map[string]string{"SQLCMD_INSTALL_BIN": ""},
			want:   filepath.Join(home, ".local", "bin"),
		},
		{
			name:   "override variable wins",
			binDir: "${SQLCMD_INSTALL_BIN:-${HOME}/.local/bin}",
			env:    map[string]string{"SQLCMD_INSTALL_BIN": filepath.Join(home, "tools")},
			want:   filepath.Join(home, "tools"),
		},
		{
			name:   "tilde prefix",
			binDir: "~/bin",
			want:   filepath.Join(home, "bin"),
		},
		{
			name:   "absolute path",
			binDir: filepath.Join(home, "opt", "bin"),
			want:   filepath.Join(home, "opt", "bin"),
		},
		{
			name:    "empty expansion",
			binDir:  "${SQLCMD_INSTALL_EMPTY}",
			env:     map[string]string{"SQLCMD_INSTALL_EMPTY": ""},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := ResolveInstallDir(tt.binDir)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveInstallDirRelative(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	got, err := ResolveInstallDir("bin")
	require.NoError(t, err)

	want, err := filepath.Abs("bin")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInstallBinary(t *testing.T) {
	writeSource := func(t *testing.T, content string) string {
		t.Helper()
		source := filepath.Join(t.TempDir(), "sqlcmd")
		require.NoError(t, os.WriteFile(source, []byte(content), 0644))
		return source
	}

	t.Run("installs executable", func(t *testing.T) {
		targetDir := t.TempDir()

		targetPath, err := InstallBinary(writeSource(t, "binary"), targetDir, "sqlcmd")
		require.NoError(t, err)
		assert.Equal(t, targetDir, filepath.Dir(targetPath))

		content, err := os.ReadFile(targetPath)
		require.NoError(t, err)
		assert.Equal(t, "binary", string(content))

		if runtime.GOOS != "windows" {
			info, err := os.Stat(targetPath)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
		} else {
			assert.True(t, strings.HasSuffix(targetPath, ".exe"))
		}
	})

	t.Run("replaces existing binary", func(t *testing.T) {
		targetDir := t.TempDir()
		existing := filepath.Join(targetDir, "sqlcmd")
		if runtime.GOOS == "windows" {
			existing += ".exe"
		}
		require.NoError(t, os.WriteFile(existing, []byte("old"), 0755))

		targetPath, err := InstallBinary(writeSource(t, "new"), targetDir, "sqlcmd")
		require.NoError(t, err)
		assert.Equal(t, existing, targetPath)

		content, err := os.ReadFile(targetPath)
		require.NoError(t, err)
		assert.Equal(t, "new", string(content))
	})

	t.Run("creates missing directory", func(t *testing.T) {
		targetDir := filepath.Join(t.TempDir(), "new", "bin")

		targetPath, err := InstallBinary(writeSource(t, "binary"), targetDir, "sqlcmd")
		require.NoError(t, err)
		assert.FileExists(t, targetPath)
	})

	t.Run("leaves no staging files behind", func(t *testing.T) {
		targetDir := t.TempDir()

		_, err := InstallBinary(writeSource(t, "binary"), targetDir, "sqlcmd")
		require.NoError(t, err)

		entries, err := os.ReadDir(targetDir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := InstallBinary(filepath.Join(t.TempDir(), "missing"), t.TempDir(), "sqlcmd")
		assert.Error(t, err)
	})
}

func TestAtomicInstall(t *testing.T) {
	dir := t.TempDir()
	targetPath := filepath.Join(dir, "sqlcmd")
	require.NoError(t, os.WriteFile(targetPath, []byte("old"), 0755))

	tmpFile := filepath.Join(dir, "new.tmp")
	require.NoError(t, os.WriteFile(tmpFile, []byte("new"), 0755))

	require.NoError(t, atomicInstall(tmpFile, targetPath))

	content, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
	assert.NoFileExists(t, tmpFile)
}

func TestDryRunOutput(t *testing.T) {
	got := DryRunOutput(
		"https://github.com/microsoft/go-sqlcmd/releases/download/v1.8.0/sqlcmd-linux-amd64.tar.bz2",
		"/home/user/.local/bin/sqlcmd",
	)
	assert.Equal(t, "Would install https://github.com/microsoft/go-sqlcmd/releases/download/v1.8.0/sqlcmd-linux-amd64.tar.bz2 to /home/user/.local/bin/sqlcmd", got)
}
