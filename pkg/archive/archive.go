package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
)

// Format represents the archive format
type Format string

const (
	FormatTarGz  Format = "tar.gz"
	FormatTarBz2 Format = "tar.bz2"
	FormatTarXz  Format = "tar.xz"
	FormatTar    Format = "tar"
	FormatZip    Format = "zip"
	FormatXz     Format = "xz"
	FormatGz     Format = "gz"
	FormatRaw    Format = "raw"
)

var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.bz2", FormatTarBz2},
	{".tbz", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar", FormatTar},
	{".zip", FormatZip},
	{".xz", FormatXz},
	{".gz", FormatGz},
}

// DetectFormat detects the archive format based on the filename
func DetectFormat(filename string) Format {
	lower := strings.ToLower(filename)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format
		}
	}
	return FormatRaw
}

// Extractor unpacks downloaded assets.
type Extractor struct {
	// StripComponents drops this many leading path elements from entries.
	StripComponents int
}

// NewExtractor creates an Extractor that strips stripComponents leading
// path elements.
func NewExtractor(stripComponents int) *Extractor {
	return &Extractor{StripComponents: stripComponents}
}

// Extract unpacks archivePath into destDir. Raw assets are copied as-is.
func (e *Extractor) Extract(archivePath, destDir string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errors.Wrap(err, "failed to create destination directory")
	}

	format := DetectFormat(archivePath)
	log.Debugf("extracting %s as %s", filepath.Base(archivePath), format)

	switch format {
	case FormatTarGz:
		return e.extractCompressedTar(archivePath, destDir, func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		})
	case FormatTarBz2:
		return e.extractCompressedTar(archivePath, destDir, func(r io.Reader) (io.Reader, error) {
			return bzip2.NewReader(r), nil
		})
	case FormatTarXz:
		return e.extractCompressedTar(archivePath, destDir, func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		})
	case FormatTar:
		return e.extractCompressedTar(archivePath, destDir, func(r io.Reader) (io.Reader, error) {
			return r, nil
		})
	case FormatZip:
		return e.extractZip(archivePath, destDir)
	case FormatXz:
		return extractSingle(archivePath, destDir, ".xz", func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		})
	case FormatGz:
		return extractSingle(archivePath, destDir, ".gz", func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		})
	case FormatRaw:
		return copyFile(archivePath, filepath.Join(destDir, filepath.Base(archivePath)), 0755)
	default:
		return fmt.Errorf("unsupported archive format: %s", format)
	}
}

// FindBinary finds the binary at relPath below destDir, falling back to a
// case-insensitive match of the last path element.
func FindBinary(destDir, relPath string) (string, error) {
	fullPath := filepath.Join(destDir, filepath.FromSlash(relPath))
	if info, err := os.Stat(fullPath); err == nil && !info.IsDir() {
		return fullPath, nil
	}

	dir := filepath.Dir(fullPath)
	name := filepath.Base(fullPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("binary not found at %s", relPath)
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), name) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("binary not found at %s", relPath)
}

func (e *Extractor) extractCompressedTar(archivePath, destDir string, decompress func(io.Reader) (io.Reader, error)) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open archive")
	}
	defer file.Close()

	r, err := decompress(file)
	if err != nil {
		return errors.Wrap(err, "failed to create decompressor")
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	return e.extractTarReader(r, destDir)
}

func (e *Extractor) extractTarReader(r io.Reader, destDir string) error {
	tarReader := tar.NewReader(r)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to read tar header")
		}

		target, skip, err := e.target(destDir, header.Name)
		if err != nil {
			return err
		}
		if skip {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrap(err, "failed to create directory")
			}
		case tar.TypeReg:
			mode := os.FileMode(header.Mode).Perm()
			if mode == 0 {
				mode = 0644
			}
			if err := writeFile(target, tarReader, mode); err != nil {
				return err
			}
		default:
			log.Debugf("skipping %s (tar type %c)", header.Name, header.Typeflag)
		}
	}

	return nil
}

func (e *Extractor) extractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open zip archive")
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, skip, err := e.target(destDir, file.Name)
		if err != nil {
			return err
		}
		if skip {
			continue
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return errors.Wrap(err, "failed to create directory")
			}
			continue
		}

		if err := extractZipFile(file, target); err != nil {
			return err
		}
	}

	return nil
}

func extractZipFile(file *zip.File, target string) error {
	fileReader, err := file.Open()
	if err != nil {
		return errors.Wrap(err, "failed to open file in archive")
	}
	defer fileReader.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	return writeFile(target, fileReader, mode)
}

// extractSingle decompresses a single compressed file, dropping suffix
// from its name.
func extractSingle(archivePath, destDir, suffix string, decompress func(io.Reader) (io.Reader, error)) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, "failed to open archive")
	}
	defer file.Close()

	r, err := decompress(file)
	if err != nil {
		return errors.Wrap(err, "failed to create decompressor")
	}

	name := filepath.Base(archivePath)
	name = name[:len(name)-len(suffix)]
	return writeFile(filepath.Join(destDir, name), r, 0755)
}

// target maps an archive entry name to a path below destDir after
// stripping leading components. Entries that would land outside destDir
// are rejected.
func (e *Extractor) target(destDir, name string) (string, bool, error) {
	path, skip := stripComponents(name, e.StripComponents)
	if skip {
		return "", true, nil
	}

	target := filepath.Join(destDir, filepath.FromSlash(path))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false, fmt.Errorf("invalid path in archive: %s", name)
	}
	return target, false, nil
}

func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(err, "failed to create parent directory")
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		return errors.Wrap(err, "failed to extract file")
	}
	return errors.Wrap(file.Close(), "failed to close file")
}

func copyFile(src, dst string, mode os.FileMode) error {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return os.Chmod(dst, mode)
	}
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "failed to open asset")
	}
	defer in.Close()
	return writeFile(dst, in, mode)
}

// stripComponents removes the specified number of leading path components
func stripComponents(path string, count int) (string, bool) {
	path = strings.TrimPrefix(path, "./")
	if count == 0 {
		return path, path == "" || path == "."
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) <= count {
		return "", true
	}

	return strings.Join(parts[count:], "/"), false
}
