// Package installer downloads and installs a release of the formula's
// tool once the user has accepted its license terms.
package installer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/apex/log"
	"github.com/binary-install/sqlcmd-install/pkg/archive"
	"github.com/binary-install/sqlcmd-install/pkg/asset"
	"github.com/binary-install/sqlcmd-install/pkg/formula"
	"github.com/binary-install/sqlcmd-install/pkg/install"
	"github.com/binary-install/sqlcmd-install/pkg/verify"
	"github.com/pkg/errors"
)

// ErrLicenseNotAccepted is returned when the license gate did not accept.
var ErrLicenseNotAccepted = errors.New("license terms not accepted")

// Consent decides whether installation may proceed.
type Consent interface {
	CheckEulaAcceptance() bool
}

// VersionResolver turns a requested version into a release tag.
type VersionResolver interface {
	ResolveVersion(ctx context.Context, repo, version string) (string, error)
}

// Downloader fetches release assets.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
	Exists(ctx context.Context, url string) error
}

// Installer runs one installation.
type Installer struct {
	Formula    *formula.Formula
	Consent    Consent
	Resolver   VersionResolver
	Downloader Downloader

	// BinDir may contain ${VAR:-default} references. Empty means the
	// formula's default.
	BinDir string
	// Version is a release tag or "latest". Empty means the formula's
	// default.
	Version string
	// OS and Arch default to the running platform.
	OS   string
	Arch string

	DryRun          bool
	DownloadBaseURL string
}

// Result describes a finished (or simulated) installation.
type Result struct {
	Version  string
	Asset    string
	URL      string
	Path     string
	Verified bool
	DryRun   bool
}

// Run checks license acceptance and then installs the binary. Nothing is
// resolved, downloaded or written unless the license was accepted.
func (i *Installer) Run(ctx context.Context) (*Result, error) {
	if i.Consent == nil || !i.Consent.CheckEulaAcceptance() {
		return nil, ErrLicenseNotAccepted
	}
	if i.Formula == nil {
		return nil, errors.New("no formula configured")
	}

	osName, arch := i.platform()
	log.Infof("detected platform: %s/%s", osName, arch)

	version := i.Version
	if version == "" {
		version = i.Formula.DefaultVersion
	}
	tag, err := i.Resolver.ResolveVersion(ctx, i.Formula.Repo, version)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve version")
	}
	log.Infof("resolved version: %s", tag)

	gen := asset.NewFilenameGenerator(i.Formula, tag)
	filename, err := gen.GenerateFilename(osName, arch)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate asset filename")
	}
	url := i.AssetURL(tag, filename)

	binDir := i.BinDir
	if binDir == "" {
		binDir = i.Formula.DefaultBinDir
	}
	installDir, err := install.ResolveInstallDir(binDir)
	if err != nil {
		return nil, err
	}

	result := &Result{Version: tag, Asset: filename, URL: url, DryRun: i.DryRun}

	if i.DryRun {
		if err := i.Downloader.Exists(ctx, url); err != nil {
			return nil, errors.Wrapf(err, "asset %s not available", filename)
		}
		result.Path = filepath.Join(installDir, i.Formula.Name)
		log.Info(install.DryRunOutput(url, result.Path))
		return result, nil
	}

	tmpDir, err := os.MkdirTemp("", "sqlcmd-install-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temporary directory")
	}
	defer os.RemoveAll(tmpDir)

	assetPath := filepath.Join(tmpDir, filename)
	log.WithField("url", url).Info("downloading")
	if err := i.Downloader.Download(ctx, url, assetPath); err != nil {
		return nil, errors.Wrapf(err, "failed to download %s", filename)
	}

	verified, err := verify.VerifyEmbedded(i.Formula, assetPath, tag, filename)
	if err != nil {
		return nil, errors.Wrap(err, "checksum verification failed")
	}
	if verified {
		log.Info("checksum verified")
	} else {
		log.Warnf("no checksum recorded for %s@%s, skipping verification", filename, tag)
	}
	result.Verified = verified

	extractDir := filepath.Join(tmpDir, "extract")
	if err := archive.NewExtractor(i.Formula.Asset.StripComponents).Extract(assetPath, extractDir); err != nil {
		return nil, errors.Wrap(err, "failed to extract archive")
	}

	binaryPath, err := gen.BinaryPath(osName, arch, filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve binary path")
	}
	// Single compressed files lose their suffix when unpacked.
	if binaryPath == filename {
		switch archive.DetectFormat(filename) {
		case archive.FormatXz, archive.FormatGz:
			binaryPath = filename[:len(filename)-len(filepath.Ext(filename))]
		}
	}
	source, err := archive.FindBinary(extractDir, binaryPath)
	if err != nil {
		return nil, err
	}

	installed, err := install.InstallBinary(source, installDir, i.Formula.Name)
	if err != nil {
		return nil, err
	}
	result.Path = installed
	log.Infof("installed %s to %s", i.Formula.Name, installed)

	return result, nil
}

// AssetURL returns the download URL of filename at tag.
func (i *Installer) AssetURL(tag, filename string) string {
	return asset.DownloadURL(i.DownloadBaseURL, i.Formula.Repo, tag, filename)
}

func (i *Installer) platform() (string, string) {
	osName, arch := i.OS, i.Arch
	if osName == "" {
		osName = runtime.GOOS
	}
	if arch == "" {
		arch = runtime.GOARCH
	}
	return strings.ToLower(osName), strings.ToLower(arch)
}
