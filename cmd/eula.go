package cmd

import (
	"github.com/apex/log"
	"github.com/binary-install/sqlcmd-install/pkg/eula"
	"github.com/binary-install/sqlcmd-install/pkg/installer"
	"github.com/spf13/cobra"
)

var eulaAcceptFlag bool

// EulaCommand runs the license gate on its own.
var EulaCommand = &cobra.Command{
	Use:   "eula",
	Short: "Ask for acceptance of the license terms",
	Long: `Shows where the license terms can be downloaded and asks whether you accept them.

Exits with status 0 when the terms are accepted, including through ACCEPT_EULA=Y
or --accept-eula, and non-zero otherwise. Useful for scripts that want to
confirm acceptance before doing other work.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, _, err := loadFormula(cmd, configFile)
		if err != nil {
			return err
		}

		decision := newGate(cmd, f, eulaAcceptFlag).Evaluate()
		log.Debugf("license decision: %s", decision)
		if decision != eula.Accepted {
			return installer.ErrLicenseNotAccepted
		}
		return nil
	},
}

func init() {
	EulaCommand.Flags().BoolVar(&eulaAcceptFlag, "accept-eula", false, "Accept the license terms without prompting")
}
