package cmd

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/binary-install/sqlcmd-install/pkg/config"
	"github.com/binary-install/sqlcmd-install/pkg/eula"
	"github.com/binary-install/sqlcmd-install/pkg/formula"
	"github.com/binary-install/sqlcmd-install/pkg/resolve"
	"github.com/spf13/cobra"
)

// Overridable for testing. Empty means GitHub.
var (
	gitHubAPIBaseURL string
	downloadBaseURL  string
)

// newResolver creates a release resolver on client.
func newResolver(client *http.Client) *resolve.Resolver {
	r := resolve.New(client)
	if gitHubAPIBaseURL != "" {
		if u, err := url.Parse(strings.TrimSuffix(gitHubAPIBaseURL, "/") + "/"); err == nil {
			r.Client.BaseURL = u
		}
	}
	return r
}

// loadFormula loads the formula named by --config, reading stdin for "-",
// and falls back to discovery and then the built-in formula.
func loadFormula(cmd *cobra.Command, cfgFile string) (*formula.Formula, string, error) {
	if cfgFile == "-" {
		log.Debug("Reading formula from stdin")
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, "", fmt.Errorf("failed to read formula from stdin: %w", err)
		}
		f, err := config.Parse(data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse formula from stdin: %w", err)
		}
		return f, "-", nil
	}

	f, source, err := config.LoadOrDiscover(cfgFile)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load formula: %w", err)
	}
	log.Debugf("Using formula from: %s", source)
	return f, source, nil
}

// eulaOverride returns the unattended-acceptance value. The flag wins over
// the environment.
func eulaOverride(acceptFlag bool) string {
	if acceptFlag {
		return "Y"
	}
	return os.Getenv(eula.EnvVar)
}

// newGate builds a license gate that prompts on the command's streams.
func newGate(cmd *cobra.Command, f *formula.Formula, acceptFlag bool) *eula.Gate {
	return eula.New(
		eula.NewScannerSource(cmd.InOrStdin()),
		cmd.OutOrStdout(),
		eula.WithOverride(eulaOverride(acceptFlag)),
		eula.WithLicenseURL(f.LicenseURL),
	)
}
