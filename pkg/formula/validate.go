package formula

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var digestLengths = map[Algorithm]int{
	Sha256: 64,
	Sha512: 128,
	Sha1:   40,
	Md5:    32,
}

// Validate checks the formula for errors that would make an install fail
// or reach for the wrong URL. Call SetDefaults first.
func (f *Formula) Validate() error {
	if f.Repo == "" {
		return errors.New("repo is required")
	}
	if owner, name, ok := strings.Cut(f.Repo, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("repo must be in owner/name form: %s", f.Repo)
	}
	if f.Name == "" {
		return errors.New("name is required")
	}
	if f.LicenseURL == "" {
		return errors.New("license_url is required")
	}
	if f.Asset.Template == "" {
		return errors.New("asset.template is required")
	}
	if err := ValidateAssetTemplate(f.Asset.Template); err != nil {
		return err
	}
	if f.Asset.StripComponents < 0 {
		return fmt.Errorf("asset.strip_components must not be negative: %d", f.Asset.StripComponents)
	}
	for i, rule := range f.Asset.Rules {
		if rule.Template == "" {
			continue
		}
		if err := ValidateAssetTemplate(rule.Template); err != nil {
			return errors.Wrapf(err, "asset.rules[%d]", i)
		}
	}
	for i, p := range f.SupportedPlatforms {
		if p.OS == "" || p.Arch == "" {
			return fmt.Errorf("supported_platforms[%d] needs both os and arch", i)
		}
	}
	if f.Checksums != nil {
		if err := f.Checksums.validate(); err != nil {
			return errors.Wrap(err, "checksums")
		}
	}
	return nil
}

func (c *Checksums) validate() error {
	want, ok := digestLengths[c.Algorithm]
	if !ok {
		return fmt.Errorf("unsupported algorithm: %s", c.Algorithm)
	}
	for version, sums := range c.Embedded {
		for _, sum := range sums {
			if sum.Filename == "" {
				return fmt.Errorf("version %s has an entry without filename", version)
			}
			if len(sum.Hash) != want {
				return fmt.Errorf("%s@%s: %s digest must be %d hex characters", sum.Filename, version, c.Algorithm, want)
			}
			if _, err := hex.DecodeString(sum.Hash); err != nil {
				return fmt.Errorf("%s@%s: digest is not hex", sum.Filename, version)
			}
		}
	}
	return nil
}

// ValidateAssetTemplate rejects templates that could smuggle shell syntax
// into a filename or URL.
func ValidateAssetTemplate(template string) error {
	if strings.Contains(template, "$(") {
		return fmt.Errorf("asset template contains command substitution '$(' pattern: %s", template)
	}
	if strings.Contains(template, "`") {
		return fmt.Errorf("asset template contains command substitution '`' pattern: %s", template)
	}

	dangerousChars := []struct {
		char string
		desc string
	}{
		{";", "semicolon"},
		{"|", "pipe"},
		{"&", "ampersand"},
		{">", "output redirection"},
		{"<", "input redirection"},
		{"/", "path separator"},
	}

	for _, dc := range dangerousChars {
		if strings.Contains(template, dc.char) {
			return fmt.Errorf("asset template contains dangerous character '%s' (%s): %s", dc.char, dc.desc, template)
		}
	}

	return nil
}
