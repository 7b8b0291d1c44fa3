package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/apex/log"
	"github.com/binary-install/sqlcmd-install/pkg/asset"
	"github.com/binary-install/sqlcmd-install/pkg/fetch"
	"github.com/binary-install/sqlcmd-install/pkg/httpclient"
	"github.com/binary-install/sqlcmd-install/pkg/resolve"
	"github.com/spf13/cobra"
)

// exampleTag stands in for "latest" when assets are not checked.
const exampleTag = "v1.0.0"

var (
	// Flags for check command
	checkVersion     string
	checkCheckAssets bool
)

// CheckCommand represents the check command
var CheckCommand = &cobra.Command{
	Use:   "check",
	Short: "Validate the formula and list the asset of every platform",
	Long: `Checks the formula by:
- Validating its fields and asset template
- Generating the asset filename for every supported platform
- Optionally checking that each asset exists in the GitHub release

No license acceptance is needed because nothing is downloaded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, source, err := loadFormula(cmd, configFile)
		if err != nil {
			return err
		}
		log.Infof("Checking formula from %s", source)

		if err := f.Validate(); err != nil {
			log.WithError(err).Error("Formula validation failed")
			return fmt.Errorf("validation failed: %w", err)
		}
		log.Info("✓ Formula validation passed")

		version := checkVersion
		if version == "" {
			version = f.DefaultVersion
		}

		client := httpclient.NewGitHubClient()
		if resolve.IsLatest(version) {
			if checkCheckAssets {
				version, err = newResolver(client).ResolveVersion(cmd.Context(), f.Repo, version)
				if err != nil {
					return fmt.Errorf("failed to resolve latest version: %w", err)
				}
				log.Infof("Resolved latest version: %s", version)
			} else {
				version = exampleTag
			}
		}

		filenames := asset.NewFilenameGenerator(f, version).PlatformFilenames()
		if len(filenames) == 0 {
			return fmt.Errorf("no asset filenames could be generated")
		}

		if !checkCheckAssets {
			displayAssetFilenames(cmd.OutOrStdout(), filenames)
			log.Info("✓ Check completed successfully")
			return nil
		}

		log.Info("Checking if assets exist in GitHub release...")
		downloader := fetch.New(client)
		missing := 0
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PLATFORM\tASSET\tSTATUS")
		for _, pf := range filenames {
			status := "✓ EXISTS"
			if err := downloader.Exists(cmd.Context(), asset.DownloadURL(downloadBaseURL, f.Repo, version, pf.Filename)); err != nil {
				log.WithError(err).Debugf("asset %s not found", pf.Filename)
				status = "✗ MISSING"
				missing++
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", pf.Platform, pf.Filename, status)
		}
		w.Flush()

		if missing > 0 {
			return fmt.Errorf("%d of %d assets missing from release %s", missing, len(filenames), version)
		}
		log.Info("✓ Check completed successfully")
		return nil
	},
}

// displayAssetFilenames prints the platform to asset table
func displayAssetFilenames(out io.Writer, filenames []asset.PlatformFilename) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tASSET")
	for _, pf := range filenames {
		fmt.Fprintf(w, "%s\t%s\n", pf.Platform, pf.Filename)
	}
	w.Flush()
}

func init() {
	CheckCommand.Flags().StringVar(&checkVersion, "version", "", "Release tag to check (default: formula default_version)")
	CheckCommand.Flags().BoolVar(&checkCheckAssets, "check-assets", false, "Check that every asset exists in the GitHub release")
}
