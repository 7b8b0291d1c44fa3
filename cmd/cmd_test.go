package cmd

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/adrg/xdg"
	"github.com/binary-install/sqlcmd-install/pkg/config"
	"github.com/stretchr/testify/require"
)

const (
	testTag       = "v1.8.0"
	testAsset     = "sqlcmd-linux-amd64.tar.gz"
	testAssetPath = "/microsoft/go-sqlcmd/releases/download/" + testTag + "/" + testAsset
	testBinary    = "#!/bin/sh\necho sqlcmd\n"
)

// testFormulaYAML is a linux-only sqlcmd formula with gzip assets.
const testFormulaYAML = `name: sqlcmd
repo: microsoft/go-sqlcmd
license_url: https://example.com/sqlcmd/LICENSE
supported_platforms:
  - os: linux
    arch: amd64
asset:
  template: ${NAME}-${OS}-${ARCH}${EXT}
  default_extension: .tar.gz
  binary: sqlcmd
`

func resetFlags() {
	configFile = ""
	verbose = false
	quiet = false

	installBinDir = ""
	installDryRun = false
	installAcceptEula = false
	installOS = ""
	installArch = ""

	eulaAcceptFlag = false

	checkVersion = ""
	checkCheckAssets = false

	embedVersion = ""
	embedOutput = ""
	embedMode = "calculate"
	embedFile = ""

	initOutputFile = config.ProjectPath
	initForce = false

	gitHubAPIBaseURL = ""
	downloadBaseURL = ""
}

// isolate runs the test in an empty directory without user configuration
// or an ACCEPT_EULA override.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ACCEPT_EULA", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(dir, "xdg-dirs"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return dir
}

// execute runs the root command with args, feeding stdin and returning
// what was written to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeAgainst(t, "", stdin, args...)
}

// executeAgainst is execute with GitHub API and download requests sent to
// serverURL.
func executeAgainst(t *testing.T, serverURL, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)
	gitHubAPIBaseURL = serverURL
	downloadBaseURL = serverURL

	var out bytes.Buffer
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetArgs(args)
	err := RootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFormula(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "formula.yml")
	require.NoError(t, os.WriteFile(path, []byte(testFormulaYAML), 0644))
	return path
}

func sqlcmdTarGz(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "sqlcmd",
		Mode:     0755,
		Size:     int64(len(testBinary)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte(testBinary))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// releaseServer serves the GitHub API and release downloads for testTag.
// It returns the server URL and a counter of every request received.
func releaseServer(t *testing.T) (string, *int32) {
	t.Helper()
	body := sqlcmdTarGz(t)
	var requests int32

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/microsoft/go-sqlcmd/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"tag_name": testTag})
	})
	mux.HandleFunc(testAssetPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server.URL, &requests
}
