package cmd

import (
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
	quiet      bool
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "sqlcmd-install",
	Short: "Install sqlcmd from GitHub releases after accepting its license terms",
	Long: `sqlcmd-install downloads the go-sqlcmd release for your platform, verifies it
and installs the binary into your bin directory.

The license terms must be accepted before anything is downloaded. Answer YES at
the prompt, or for unattended installs set ACCEPT_EULA=Y or pass --accept-eula.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetHandler(cli.New(cmd.ErrOrStderr()))
		if verbose {
			log.SetLevel(log.DebugLevel)
			log.Debugf("Verbose logging enabled")
		} else if quiet {
			log.SetLevel(log.ErrorLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
		log.Debugf("Config file: %s", configFile)
	},
}

func init() {
	cobra.EnableCommandSorting = false

	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to formula file, or - for stdin (default: discovered, then built-in)")
	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Increase log verbosity")
	RootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress progress output")

	RootCmd.AddGroup(&cobra.Group{
		ID:    "install",
		Title: "Install Commands:",
	})
	RootCmd.AddGroup(&cobra.Group{
		ID:    "formula",
		Title: "Formula Commands:",
	})
	RootCmd.AddGroup(&cobra.Group{
		ID:    "utility",
		Title: "Utility Commands:",
	})

	RootCmd.SetHelpCommandGroupID("utility")
	RootCmd.SetCompletionCommandGroupID("utility")

	InstallCommand.GroupID = "install"
	EulaCommand.GroupID = "install"
	InitCommand.GroupID = "formula"
	CheckCommand.GroupID = "formula"
	EmbedChecksumsCommand.GroupID = "formula"
	FormulaCommand.GroupID = "formula"
	HelpfulCommand.GroupID = "utility"

	RootCmd.AddCommand(InstallCommand)
	RootCmd.AddCommand(EulaCommand)
	RootCmd.AddCommand(InitCommand)
	RootCmd.AddCommand(CheckCommand)
	RootCmd.AddCommand(EmbedChecksumsCommand)
	RootCmd.AddCommand(FormulaCommand)
	RootCmd.AddCommand(HelpfulCommand)
}
