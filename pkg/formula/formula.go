// Package formula describes a package the installer knows how to fetch:
// where its releases live, how release assets are named, which checksums
// are trusted and where its license terms are published.
package formula

import (
	"fmt"
	"strings"
)

// Algorithm is a checksum algorithm name.
type Algorithm string

const (
	Sha256 Algorithm = "sha256"
	Sha512 Algorithm = "sha512"
	Sha1   Algorithm = "sha1"
	Md5    Algorithm = "md5"
)

// Formula is the root configuration document.
//
// Minimal example:
//
//	name: sqlcmd
//	repo: microsoft/go-sqlcmd
//	asset:
//	  template: "${NAME}-${OS}-${ARCH}${EXT}"
//	  default_extension: .tar.bz2
type Formula struct {
	Name               string     `yaml:"name,omitempty"`
	Desc               string     `yaml:"desc,omitempty"`
	Homepage           string     `yaml:"homepage,omitempty"`
	Repo               string     `yaml:"repo"`
	License            string     `yaml:"license,omitempty"`
	LicenseURL         string     `yaml:"license_url,omitempty"`
	DefaultVersion     string     `yaml:"default_version,omitempty"`
	DefaultBinDir      string     `yaml:"default_bin_dir,omitempty"`
	SupportedPlatforms []Platform `yaml:"supported_platforms,omitempty"`
	Asset              Asset      `yaml:"asset"`
	Checksums          *Checksums `yaml:"checksums,omitempty"`
}

// Platform is an OS/architecture pair.
type Platform struct {
	OS   string `yaml:"os"`
	Arch string `yaml:"arch"`
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}

// Asset describes how release assets are named and unpacked.
type Asset struct {
	Template         string `yaml:"template"`
	DefaultExtension string `yaml:"default_extension,omitempty"`
	// Binary is the path of the executable inside the unpacked asset.
	Binary          string `yaml:"binary,omitempty"`
	StripComponents int    `yaml:"strip_components,omitempty"`
	Rules           []Rule `yaml:"rules,omitempty"`
}

// Rule overrides asset settings on matching platforms. Later rules win.
type Rule struct {
	When     When   `yaml:"when"`
	OS       string `yaml:"os,omitempty"`
	Arch     string `yaml:"arch,omitempty"`
	Ext      string `yaml:"ext,omitempty"`
	Template string `yaml:"template,omitempty"`
	Binary   string `yaml:"binary,omitempty"`
}

// When is a rule condition. Empty fields match anything.
type When struct {
	OS   string `yaml:"os,omitempty"`
	Arch string `yaml:"arch,omitempty"`
}

// Matches reports whether the condition holds for osName/arch.
func (w When) Matches(osName, arch string) bool {
	if w.OS != "" && !strings.EqualFold(w.OS, osName) {
		return false
	}
	if w.Arch != "" && !strings.EqualFold(w.Arch, arch) {
		return false
	}
	return true
}

// Checksums holds trusted digests keyed by version (without a leading "v").
type Checksums struct {
	Algorithm Algorithm                     `yaml:"algorithm,omitempty"`
	Embedded  map[string][]EmbeddedChecksum `yaml:"embedded,omitempty"`
}

// EmbeddedChecksum is the digest of one release asset.
type EmbeddedChecksum struct {
	Filename string `yaml:"filename"`
	Hash     string `yaml:"hash"`
}

// Lookup returns the digest recorded for filename at version.
func (c *Checksums) Lookup(version, filename string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, sum := range c.Embedded[strings.TrimPrefix(version, "v")] {
		if sum.Filename == filename {
			return sum.Hash, true
		}
	}
	return "", false
}

// Resolved holds the asset settings that apply to one platform.
type Resolved struct {
	OS       string
	Arch     string
	Ext      string
	Template string
	Binary   string
}

// Resolve applies the matching rules for osName/arch on top of the defaults.
func (f *Formula) Resolve(osName, arch string) Resolved {
	r := Resolved{
		OS:       strings.ToLower(osName),
		Arch:     strings.ToLower(arch),
		Ext:      f.Asset.DefaultExtension,
		Template: f.Asset.Template,
		Binary:   f.Asset.Binary,
	}
	for _, rule := range f.Asset.Rules {
		if !rule.When.Matches(osName, arch) {
			continue
		}
		if rule.OS != "" {
			r.OS = rule.OS
		}
		if rule.Arch != "" {
			r.Arch = rule.Arch
		}
		if rule.Ext != "" {
			r.Ext = rule.Ext
		}
		if rule.Template != "" {
			r.Template = rule.Template
		}
		if rule.Binary != "" {
			r.Binary = rule.Binary
		}
	}
	return r
}

// Owner returns the repository owner.
func (f *Formula) Owner() string {
	owner, _, _ := strings.Cut(f.Repo, "/")
	return owner
}

// RepoName returns the repository name without the owner.
func (f *Formula) RepoName() string {
	_, name, _ := strings.Cut(f.Repo, "/")
	return name
}

// SetDefaults fills in everything that can be derived from other fields.
func (f *Formula) SetDefaults() {
	if f.Name == "" {
		f.Name = f.RepoName()
	}
	if f.DefaultVersion == "" {
		f.DefaultVersion = "latest"
	}
	if f.DefaultBinDir == "" {
		f.DefaultBinDir = "${SQLCMD_INSTALL_BIN:-${HOME}/.local/bin}"
	}
	if f.LicenseURL == "" && f.Repo != "" {
		f.LicenseURL = fmt.Sprintf("https://github.com/%s/blob/main/LICENSE", f.Repo)
	}
	if f.Homepage == "" && f.Repo != "" {
		f.Homepage = "https://github.com/" + f.Repo
	}
	if f.Asset.Binary == "" {
		if f.Asset.DefaultExtension == "" {
			f.Asset.Binary = "${ASSET_FILENAME}"
		} else {
			f.Asset.Binary = f.Name
		}
	}
	if f.Checksums != nil && f.Checksums.Algorithm == "" {
		f.Checksums.Algorithm = Sha256
	}
}
