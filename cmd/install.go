package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apex/log"
	"github.com/binary-install/sqlcmd-install/pkg/fetch"
	"github.com/binary-install/sqlcmd-install/pkg/httpclient"
	"github.com/binary-install/sqlcmd-install/pkg/installer"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	// Flags for install command
	installBinDir     string
	installDryRun     bool
	installAcceptEula bool
	installOS         string
	installArch       string
)

// InstallCommand represents the install command
var InstallCommand = &cobra.Command{
	Use:   "install [VERSION]",
	Short: "Install sqlcmd from GitHub releases",
	Long: `Install sqlcmd directly from GitHub releases.

You are asked to accept the license terms first. Nothing is downloaded unless
you answer YES, ACCEPT_EULA is set to Y, or --accept-eula is passed.`,
	Example: `  # Install latest version
  sqlcmd-install install

  # Install specific version
  sqlcmd-install install v1.8.0

  # Unattended install to a custom directory
  ACCEPT_EULA=Y sqlcmd-install install --bin-dir=/usr/local/bin

  # Dry run mode (verify URLs/versions without installing)
  sqlcmd-install install --dry-run --accept-eula`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstall,
}

func init() {
	InstallCommand.Flags().StringVarP(&installBinDir, "bin-dir", "b", "", "Installation directory (default: formula default_bin_dir)")
	InstallCommand.Flags().BoolVarP(&installDryRun, "dry-run", "n", false, "Dry run mode")
	InstallCommand.Flags().BoolVar(&installAcceptEula, "accept-eula", false, "Accept the license terms without prompting")
	InstallCommand.Flags().StringVar(&installOS, "os", "", "Target operating system (default: current)")
	InstallCommand.Flags().StringVar(&installArch, "arch", "", "Target architecture (default: current)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	f, _, err := loadFormula(cmd, configFile)
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("invalid formula: %w", err)
	}

	version := ""
	if len(args) > 0 {
		version = args[0]
	}

	client := httpclient.NewGitHubClient()
	downloader := fetch.New(client)
	if !quiet && isatty.IsTerminal(os.Stderr.Fd()) {
		downloader.Progress = progressPrinter(cmd.ErrOrStderr())
	}

	inst := &installer.Installer{
		Formula:    f,
		Consent:    newGate(cmd, f, installAcceptEula),
		Resolver:   newResolver(client),
		Downloader: downloader,
		BinDir:     installBinDir,
		Version:    version,
		OS:         installOS,
		Arch:       installArch,
		DryRun:     installDryRun,

		DownloadBaseURL: downloadBaseURL,
	}

	result, err := inst.Run(cmd.Context())
	if errors.Is(err, installer.ErrLicenseNotAccepted) {
		return err
	}
	if err != nil {
		return fmt.Errorf("install failed: %w", err)
	}
	log.WithField("version", result.Version).WithField("path", result.Path).Debug("install finished")

	printSummary(cmd.OutOrStdout(), f.Name, result)
	return nil
}

// progressPrinter reports download progress on a single terminal line.
func progressPrinter(w io.Writer) fetch.ProgressFunc {
	return func(downloaded, total int64) {
		if total > 0 {
			percentage := float64(downloaded) * 100.0 / float64(total)
			fmt.Fprintf(w, "\r%.1f%% (%d/%d bytes)", percentage, downloaded, total)
			if downloaded >= total {
				fmt.Fprintln(w)
			}
		} else {
			fmt.Fprintf(w, "\r%d bytes downloaded", downloaded)
		}
	}
}

func printSummary(w io.Writer, name string, result *installer.Result) {
	verified := "skipped (no checksum recorded)"
	if result.Verified {
		verified = "ok"
	}

	title := fmt.Sprintf("Installed %s %s", name, result.Version)
	if result.DryRun {
		title = fmt.Sprintf("Dry run: %s %s is available", name, result.Version)
	}

	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintf(w, "  asset:    %s\n", result.Asset)
	fmt.Fprintf(w, "  url:      %s\n", result.URL)
	fmt.Fprintf(w, "  path:     %s\n", result.Path)
	if !result.DryRun {
		fmt.Fprintf(w, "  checksum: %s\n", verified)
	}
}
