package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/binary-install/sqlcmd-install/pkg/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloSha256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlcmd-linux-amd64.tar.bz2")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestComputeChecksum(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		algorithm formula.Algorithm
		want      string
		wantErr   bool
	}{
		{
			name:      "sha256 checksum",
			content:   "hello world",
			algorithm: formula.Sha256,
			want:      helloSha256,
		},
		{
			name:      "sha512 checksum",
			content:   "hello world",
			algorithm: formula.Sha512,
			want:      "309ecc489c12d6eb4cc40f50c902f2b4d0ed77ee511a7c7a9bcd3ca86d4cd86f989dd35bc5ff499670da34255b45b0cfd830e81f605dcf7dc5542e93ae9cd76f",
		},
		{
			name:      "sha1 checksum",
			content:   "hello world",
			algorithm: formula.Sha1,
			want:      "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed",
		},
		{
			name:      "md5 checksum",
			content:   "hello world",
			algorithm: formula.Md5,
			want:      "5eb63bbbe01eeed093cb22bb8f5acdc3",
		},
		{
			name:      "empty file",
			content:   "",
			algorithm: formula.Sha256,
			want:      "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:      "invalid algorithm",
			content:   "test",
			algorithm: formula.Algorithm("invalid"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeChecksum(writeTestFile(t, tt.content), tt.algorithm)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeChecksumMissingFile(t *testing.T) {
	_, err := ComputeChecksum(filepath.Join(t.TempDir(), "missing"), formula.Sha256)
	assert.Error(t, err)
}

func TestVerifyChecksum(t *testing.T) {
	path := writeTestFile(t, "hello world")

	assert.NoError(t, VerifyChecksum(path, helloSha256, formula.Sha256))
	assert.NoError(t, VerifyChecksum(path, "B94D27B9934D3E08A52E52D7DA7DABFAC484EFE37A5380EE9088F7ACE2EFCDE9", formula.Sha256), "case-insensitive")

	err := VerifyChecksum(path, "0000", formula.Sha256)
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, helloSha256, mismatch.Actual)
	assert.Equal(t, "0000", mismatch.Expected)
}

func TestVerifyEmbedded(t *testing.T) {
	withSums := func(algorithm formula.Algorithm, hash string) *formula.Formula {
		return &formula.Formula{
			Checksums: &formula.Checksums{
				Algorithm: algorithm,
				Embedded: map[string][]formula.EmbeddedChecksum{
					"1.8.0": {{Filename: "sqlcmd-linux-amd64.tar.bz2", Hash: hash}},
				},
			},
		}
	}

	tests := []struct {
		name         string
		formula      *formula.Formula
		tag          string
		filename     string
		wantVerified bool
		wantErr      bool
	}{
		{
			name:         "matching digest with v-prefixed tag",
			formula:      withSums(formula.Sha256, helloSha256),
			tag:          "v1.8.0",
			filename:     "sqlcmd-linux-amd64.tar.bz2",
			wantVerified: true,
		},
		{
			name:         "algorithm defaults to sha256",
			formula:      withSums("", helloSha256),
			tag:          "1.8.0",
			filename:     "sqlcmd-linux-amd64.tar.bz2",
			wantVerified: true,
		},
		{
			name:     "mismatching digest",
			formula:  withSums(formula.Sha256, "deadbeef"),
			tag:      "v1.8.0",
			filename: "sqlcmd-linux-amd64.tar.bz2",
			wantErr:  true,
		},
		{
			name:     "empty digest",
			formula:  withSums(formula.Sha256, ""),
			tag:      "v1.8.0",
			filename: "sqlcmd-linux-amd64.tar.bz2",
			wantErr:  true,
		},
		{
			name:     "no digest for version",
			formula:  withSums(formula.Sha256, "deadbeef"),
			tag:      "v1.7.0",
			filename: "sqlcmd-linux-amd64.tar.bz2",
		},
		{
			name:     "no digest for filename",
			formula:  withSums(formula.Sha256, "deadbeef"),
			tag:      "v1.8.0",
			filename: "sqlcmd-windows-amd64.zip",
		},
		{
			name:     "no checksums section",
			formula:  &formula.Formula{},
			tag:      "v1.8.0",
			filename: "sqlcmd-linux-amd64.tar.bz2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verified, err := VerifyEmbedded(tt.formula, writeTestFile(t, "hello world"), tt.tag, tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantVerified, verified)
		})
	}
}
