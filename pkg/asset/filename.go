package asset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/binary-install/sqlcmd-install/pkg/formula"
	"github.com/buildkite/interpolate"
)

// AssetFilenameVar names the downloaded asset in a binary path, for assets
// that are the executable itself.
const AssetFilenameVar = "${ASSET_FILENAME}"

// FilenameGenerator generates asset filenames for one release tag
type FilenameGenerator struct {
	Formula *formula.Formula
	Tag     string
}

// NewFilenameGenerator creates a new filename generator
func NewFilenameGenerator(f *formula.Formula, tag string) *FilenameGenerator {
	return &FilenameGenerator{
		Formula: f,
		Tag:     tag,
	}
}

// GenerateFilename creates an asset filename for a specific OS and Arch
func (g *FilenameGenerator) GenerateFilename(osName, arch string) (string, error) {
	if g.Formula == nil || g.Formula.Asset.Template == "" {
		return "", fmt.Errorf("asset template not defined in formula")
	}

	r := g.Formula.Resolve(osName, arch)

	filename, err := g.interpolate(r.Template, map[string]string{
		"OS":   r.OS,
		"ARCH": r.Arch,
		"EXT":  r.Ext,
	})
	if err != nil {
		return "", fmt.Errorf("failed to interpolate asset template: %w", err)
	}
	return filename, nil
}

// BinaryPath returns the path of the executable inside the unpacked asset.
func (g *FilenameGenerator) BinaryPath(osName, arch, assetFilename string) (string, error) {
	r := g.Formula.Resolve(osName, arch)
	if r.Binary == AssetFilenameVar {
		return assetFilename, nil
	}
	return g.interpolate(r.Binary, map[string]string{
		"OS":             r.OS,
		"ARCH":           r.Arch,
		"ASSET_FILENAME": assetFilename,
	})
}

// PlatformFilename pairs a platform with its asset filename.
type PlatformFilename struct {
	Platform formula.Platform
	Filename string
}

// PlatformFilenames generates the asset filename of every supported
// platform, sorted by platform. Platforms whose template fails are skipped.
func (g *FilenameGenerator) PlatformFilenames() []PlatformFilename {
	platforms := g.Formula.SupportedPlatforms
	if len(platforms) == 0 {
		platforms = AllPlatforms()
	}

	var result []PlatformFilename
	for _, p := range platforms {
		filename, err := g.GenerateFilename(p.OS, p.Arch)
		if err != nil || filename == "" {
			continue
		}
		result = append(result, PlatformFilename{Platform: p, Filename: filename})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Platform.String() < result[j].Platform.String()
	})
	return result
}

// AllPlatforms returns every OS/Arch combination the installer recognizes.
func AllPlatforms() []formula.Platform {
	var platforms []formula.Platform
	for _, osName := range []string{"darwin", "linux", "windows"} {
		for _, arch := range []string{"amd64", "arm64"} {
			platforms = append(platforms, formula.Platform{OS: osName, Arch: arch})
		}
	}
	return platforms
}

// interpolate performs variable substitution in a template string
func (g *FilenameGenerator) interpolate(template string, additionalVars map[string]string) (string, error) {
	envMap := map[string]string{
		"NAME":    g.Formula.Name,
		"TAG":     g.Tag,
		"VERSION": strings.TrimPrefix(g.Tag, "v"),
	}
	for k, v := range additionalVars {
		envMap[k] = v
	}

	env := interpolate.NewMapEnv(envMap)
	return interpolate.Interpolate(env, template)
}

// DefaultDownloadBaseURL is where release assets are downloaded from.
const DefaultDownloadBaseURL = "https://github.com"

// DownloadURL returns the release download URL of filename. An empty base
// means DefaultDownloadBaseURL.
func DownloadURL(base, repo, tag, filename string) string {
	if base == "" {
		base = DefaultDownloadBaseURL
	}
	return fmt.Sprintf("%s/%s/releases/download/%s/%s", strings.TrimSuffix(base, "/"), repo, tag, filename)
}
