package verify

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/binary-install/sqlcmd-install/pkg/formula"
	"github.com/pkg/errors"
)

// MismatchError is returned when a file does not match its expected digest.
type MismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

func newHash(algorithm formula.Algorithm) (hash.Hash, error) {
	switch algorithm {
	case formula.Sha256:
		return sha256.New(), nil
	case formula.Sha512:
		return sha512.New(), nil
	case formula.Sha1:
		return sha1.New(), nil
	case formula.Md5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algorithm)
	}
}

// ComputeChecksum computes the checksum of a file using the specified algorithm
func ComputeChecksum(filePath string, algorithm formula.Algorithm) (string, error) {
	h, err := newHash(algorithm)
	if err != nil {
		return "", err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return "", errors.Wrap(err, "failed to open file")
	}
	defer file.Close()

	if _, err := io.Copy(h, file); err != nil {
		return "", errors.Wrap(err, "failed to compute checksum")
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum verifies that a file matches the expected checksum
func VerifyChecksum(filePath, expectedHash string, algorithm formula.Algorithm) error {
	computedHash, err := ComputeChecksum(filePath, algorithm)
	if err != nil {
		return err
	}

	if !strings.EqualFold(computedHash, expectedHash) {
		return &MismatchError{Path: filePath, Expected: expectedHash, Actual: computedHash}
	}

	return nil
}

// VerifyEmbedded verifies filePath against the digest the formula records
// for filename at tag. It reports false without error when the formula has
// no digest for that asset.
func VerifyEmbedded(f *formula.Formula, filePath, tag, filename string) (bool, error) {
	expected, ok := f.Checksums.Lookup(tag, filename)
	if !ok {
		return false, nil
	}
	if expected == "" {
		return false, fmt.Errorf("empty checksum for %s", filename)
	}

	algorithm := formula.Sha256
	if f.Checksums.Algorithm != "" {
		algorithm = f.Checksums.Algorithm
	}

	if err := VerifyChecksum(filePath, expected, algorithm); err != nil {
		return false, err
	}
	return true, nil
}
