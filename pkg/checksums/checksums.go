// Package checksums records trusted digests of release assets in a formula
// so later installs can verify what they download.
package checksums

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/binary-install/sqlcmd-install/pkg/asset"
	"github.com/binary-install/sqlcmd-install/pkg/formula"
	"github.com/binary-install/sqlcmd-install/pkg/verify"
	"github.com/pkg/errors"
)

// EmbedMode selects where digests come from.
type EmbedMode string

const (
	// EmbedModeChecksumFile reads a local "<hash>  <filename>" file.
	EmbedModeChecksumFile EmbedMode = "checksum-file"
	// EmbedModeCalculate downloads every asset and hashes it.
	EmbedModeCalculate EmbedMode = "calculate"
)

// Downloader fetches release assets.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
}

// Embedder fills Formula.Checksums for one release.
type Embedder struct {
	Mode    EmbedMode
	Formula *formula.Formula
	// Tag must already be resolved; "latest" is not accepted.
	Tag             string
	ChecksumFile    string
	Downloader      Downloader
	DownloadBaseURL string
}

// Embed gathers digests and stores them in the formula under the tag's
// version, replacing any previous entries for that version.
func (e *Embedder) Embed(ctx context.Context) error {
	if e.Tag == "" || e.Tag == "latest" {
		return fmt.Errorf("a concrete release tag is required, got %q", e.Tag)
	}

	var (
		sums map[string]string
		err  error
	)
	switch e.Mode {
	case EmbedModeChecksumFile:
		sums, err = e.fromChecksumFile()
	case EmbedModeCalculate:
		sums, err = e.calculate(ctx)
	default:
		return fmt.Errorf("invalid mode: %s", e.Mode)
	}
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		return fmt.Errorf("no checksums matched the formula's assets for %s", e.Tag)
	}

	if e.Formula.Checksums == nil {
		e.Formula.Checksums = &formula.Checksums{Algorithm: formula.Sha256}
	}
	if e.Formula.Checksums.Embedded == nil {
		e.Formula.Checksums.Embedded = make(map[string][]formula.EmbeddedChecksum)
	}

	entries := make([]formula.EmbeddedChecksum, 0, len(sums))
	for filename, hash := range sums {
		entries = append(entries, formula.EmbeddedChecksum{Filename: filename, Hash: strings.ToLower(hash)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Filename < entries[j].Filename })

	version := strings.TrimPrefix(e.Tag, "v")
	e.Formula.Checksums.Embedded[version] = entries
	log.Infof("embedded %d checksums for version %s", len(entries), version)
	return nil
}

func (e *Embedder) algorithm() formula.Algorithm {
	if e.Formula.Checksums != nil && e.Formula.Checksums.Algorithm != "" {
		return e.Formula.Checksums.Algorithm
	}
	return formula.Sha256
}

// assetFilenames returns the asset filenames of every supported platform.
func (e *Embedder) assetFilenames() map[string]bool {
	names := make(map[string]bool)
	for _, pf := range asset.NewFilenameGenerator(e.Formula, e.Tag).PlatformFilenames() {
		names[pf.Filename] = true
	}
	return names
}

func (e *Embedder) fromChecksumFile() (map[string]string, error) {
	if e.ChecksumFile == "" {
		return nil, fmt.Errorf("checksum file path is required for checksum-file mode")
	}

	log.Infof("Parsing checksums from file: %s", e.ChecksumFile)
	file, err := os.Open(e.ChecksumFile)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open checksum file")
	}
	defer file.Close()

	all, err := ParseChecksumFile(file)
	if err != nil {
		return nil, err
	}
	return filterChecksums(all, e.assetFilenames()), nil
}

// ParseChecksumFile parses sha256sum-style lines: "<hash> [*]<filename>".
// Blank lines and lines starting with # are ignored.
func ParseChecksumFile(r io.Reader) (map[string]string, error) {
	checksums := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			log.Warnf("Ignoring invalid checksum line: %s", line)
			continue
		}

		checksums[strings.TrimPrefix(parts[1], "*")] = parts[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading checksum file")
	}

	if len(checksums) == 0 {
		return nil, fmt.Errorf("no checksums found in file")
	}
	return checksums, nil
}

func filterChecksums(all map[string]string, wanted map[string]bool) map[string]string {
	filtered := make(map[string]string)
	for filename, hash := range all {
		if wanted[filename] {
			filtered[filename] = hash
		} else {
			log.Debugf("skipping checksum for %s: not an asset of this formula", filename)
		}
	}
	return filtered
}

type checksumResult struct {
	Filename string
	Hash     string
}

// calculate downloads every platform's asset concurrently and hashes it.
// Assets that fail to download are skipped with a warning.
func (e *Embedder) calculate(ctx context.Context) (map[string]string, error) {
	if e.Downloader == nil {
		return nil, fmt.Errorf("calculate mode requires a downloader")
	}

	tempDir, err := os.MkdirTemp("", "sqlcmd-install-checksums-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp directory")
	}
	defer os.RemoveAll(tempDir)

	platformFiles := asset.NewFilenameGenerator(e.Formula, e.Tag).PlatformFilenames()
	algorithm := e.algorithm()

	var wg sync.WaitGroup
	resultCh := make(chan checksumResult, len(platformFiles))

	for _, pf := range platformFiles {
		wg.Add(1)
		go func(filename string) {
			defer wg.Done()

			url := asset.DownloadURL(e.DownloadBaseURL, e.Formula.Repo, e.Tag, filename)
			assetPath := filepath.Join(tempDir, filename)

			log.Infof("Downloading %s", url)
			if err := e.Downloader.Download(ctx, url, assetPath); err != nil {
				log.WithError(err).Warnf("Failed to download asset %s", filename)
				return
			}

			hash, err := verify.ComputeChecksum(assetPath, algorithm)
			if err != nil {
				log.WithError(err).Warnf("Failed to compute hash for %s", filename)
				return
			}
			resultCh <- checksumResult{Filename: filename, Hash: hash}
		}(pf.Filename)
	}

	wg.Wait()
	close(resultCh)

	checksums := make(map[string]string)
	for result := range resultCh {
		checksums[result.Filename] = result.Hash
	}

	if len(checksums) == 0 {
		return nil, fmt.Errorf("failed to calculate any checksums")
	}
	return checksums, nil
}
