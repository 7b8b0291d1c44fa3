package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/binary-install/sqlcmd-install/pkg/config"
	"github.com/binary-install/sqlcmd-install/pkg/eula"
	"github.com/spf13/cobra"
)

var (
	// Flags for init command
	initOutputFile string
	initForce      bool
)

// promptForConfirmation asks a y/N question and reports whether the answer
// was y or yes.
func promptForConfirmation(in io.Reader, out io.Writer, message string) bool {
	fmt.Fprintf(out, "%s (y/N): ", message)
	response, err := eula.NewScannerSource(in).ReadLine()
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

// InitCommand represents the init command
var InitCommand = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in sqlcmd formula to a file for customization",
	Long: `Writes the built-in sqlcmd formula to .config/sqlcmd-install.yml, where later
commands pick it up automatically. Edit it to pin a version, change the install
directory, or record checksums with embed-checksums.`,
	Example: `  # Create .config/sqlcmd-install.yml
  sqlcmd-install init

  # Print the formula instead
  sqlcmd-install init -o -

  # Overwrite an existing file without confirmation
  sqlcmd-install init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data := config.Builtin()

		if initOutputFile == "-" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}

		if _, err := os.Stat(initOutputFile); err == nil {
			if !initForce {
				message := fmt.Sprintf("File %s already exists. Overwrite?", initOutputFile)
				if !promptForConfirmation(cmd.InOrStdin(), cmd.OutOrStdout(), message) {
					log.Info("Operation cancelled by user")
					return fmt.Errorf("operation cancelled: file %s already exists", initOutputFile)
				}
			}
			log.Infof("Overwriting existing file: %s", initOutputFile)
		}

		if err := config.WriteFile(initOutputFile, data); err != nil {
			return err
		}
		log.Infof("Formula written to %s", initOutputFile)
		return nil
	},
}

func init() {
	InitCommand.Flags().StringVarP(&initOutputFile, "output", "o", config.ProjectPath, "Write formula to file (use '-' for stdout)")
	InitCommand.Flags().BoolVar(&initForce, "force", false, "Skip confirmation when overwriting existing files")
}
