package cmd

import (
	"fmt"

	"github.com/apex/log"
	"github.com/binary-install/sqlcmd-install/pkg/checksums"
	"github.com/binary-install/sqlcmd-install/pkg/config"
	"github.com/binary-install/sqlcmd-install/pkg/fetch"
	"github.com/binary-install/sqlcmd-install/pkg/httpclient"
	"github.com/spf13/cobra"
)

var (
	// Flags for embed-checksums command
	embedVersion string
	embedOutput  string
	embedMode    string
	embedFile    string
)

// EmbedChecksumsCommand represents the embed-checksums command
var EmbedChecksumsCommand = &cobra.Command{
	Use:   "embed-checksums",
	Short: "Record release asset checksums in the formula",
	Long: `Records trusted checksums for a release in the formula so that install can
verify what it downloads. Two modes are supported:
- checksum-file: reads a local sha256sum-style file
- calculate: downloads every platform's asset and hashes it

Only the release assets are downloaded, never installed, so no license
acceptance is needed.`,
	Example: `  # Hash every asset of the latest release into the project formula
  sqlcmd-install embed-checksums --mode calculate

  # Use a checksum file for a specific release
  sqlcmd-install embed-checksums --mode checksum-file --file sha256sums.txt --version v1.8.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, source, err := loadFormula(cmd, configFile)
		if err != nil {
			return err
		}

		mode := checksums.EmbedMode(embedMode)
		switch mode {
		case checksums.EmbedModeChecksumFile, checksums.EmbedModeCalculate:
		default:
			return fmt.Errorf("invalid mode: %s. Must be one of: checksum-file, calculate", embedMode)
		}
		if mode == checksums.EmbedModeChecksumFile && embedFile == "" {
			return fmt.Errorf("--file flag is required for checksum-file mode")
		}

		client := httpclient.NewGitHubClient()
		version := embedVersion
		if version == "" {
			version = f.DefaultVersion
		}
		tag, err := newResolver(client).ResolveVersion(cmd.Context(), f.Repo, version)
		if err != nil {
			return fmt.Errorf("failed to resolve version: %w", err)
		}

		embedder := &checksums.Embedder{
			Mode:            mode,
			Formula:         f,
			Tag:             tag,
			ChecksumFile:    embedFile,
			Downloader:      fetch.New(client),
			DownloadBaseURL: downloadBaseURL,
		}

		log.Infof("Embedding checksums using %s mode for version: %s", mode, tag)
		if err := embedder.Embed(cmd.Context()); err != nil {
			return fmt.Errorf("failed to embed checksums: %w", err)
		}

		outputFile := embedOutput
		if outputFile == "" {
			outputFile = source
			if source == config.BuiltinPath || source == "-" {
				outputFile = config.ProjectPath
			}
		}

		log.Infof("Writing updated formula to file: %s", outputFile)
		if err := config.Save(outputFile, f); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	EmbedChecksumsCommand.Flags().StringVar(&embedVersion, "version", "", "Release tag to embed checksums for (default: latest)")
	EmbedChecksumsCommand.Flags().StringVarP(&embedOutput, "output", "o", "", "Output path (default: the loaded formula file, or "+config.ProjectPath+")")
	EmbedChecksumsCommand.Flags().StringVarP(&embedMode, "mode", "m", string(checksums.EmbedModeCalculate), "Checksum source (checksum-file, calculate)")
	EmbedChecksumsCommand.Flags().StringVarP(&embedFile, "file", "f", "", "Path to checksum file (required for checksum-file mode)")
}
