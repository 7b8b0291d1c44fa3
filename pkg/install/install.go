package install

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/buildkite/interpolate"
	"github.com/pkg/errors"
)

// ResolveInstallDir expands binDir into an absolute directory. binDir may
// use ${VAR}, ${VAR:-default} and a leading ~/.
func ResolveInstallDir(binDir string) (string, error) {
	expanded, err := expandPath(binDir)
	if err != nil {
		return "", errors.Wrapf(err, "failed to expand install directory %q", binDir)
	}
	if expanded == "" {
		return "", fmt.Errorf("could not determine install directory from %q", binDir)
	}

	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve install directory")
	}

	return absPath, nil
}

// InstallBinary copies sourcePath into targetDir as targetName with mode
// 0755, replacing any existing file atomically.
func InstallBinary(sourcePath, targetDir, targetName string) (string, error) {
	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(targetName), ".exe") {
		targetName += ".exe"
	}

	targetPath := filepath.Join(targetDir, targetName)

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create install directory")
	}

	source, err := os.Open(sourcePath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open source file")
	}
	defer source.Close()

	// Stage next to the target so the final rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(targetDir, "."+targetName+"-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, source); err != nil {
		tmpFile.Close()
		return "", errors.Wrap(err, "failed to copy binary")
	}

	if err := tmpFile.Chmod(0755); err != nil {
		tmpFile.Close()
		return "", errors.Wrap(err, "failed to set permissions")
	}

	if err := tmpFile.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close temporary file")
	}

	if err := atomicInstall(tmpPath, targetPath); err != nil {
		return "", err
	}

	success = true
	return targetPath, nil
}

// atomicInstall performs an atomic file replacement
func atomicInstall(sourcePath, targetPath string) error {
	err := os.Rename(sourcePath, targetPath)
	if err == nil {
		return nil
	}
	// Windows refuses to rename over an existing file.
	if runtime.GOOS != "windows" && !os.IsExist(err) {
		return errors.Wrap(err, "failed to install binary")
	}
	if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove existing file")
	}
	if err := os.Rename(sourcePath, targetPath); err != nil {
		return errors.Wrap(err, "failed to install binary")
	}
	return nil
}

// expandPath expands ~/ and environment variables in a path
func expandPath(path string) (string, error) {
	expanded, err := interpolate.Interpolate(interpolate.NewSliceEnv(os.Environ()), path)
	if err != nil {
		return "", err
	}

	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	}

	return expanded, nil
}

// DryRunOutput returns the message to display for a dry run
func DryRunOutput(assetURL, targetPath string) string {
	return fmt.Sprintf("Would install %s to %s", assetURL, targetPath)
}
