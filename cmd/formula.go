package cmd

import (
	"fmt"

	"github.com/apex/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// FormulaCommand prints the effective formula
var FormulaCommand = &cobra.Command{
	Use:   "formula",
	Short: "Print the effective formula as YAML",
	Long: `Prints the formula that install would use, with every default filled in.

The formula is taken from --config, a discovered .config/sqlcmd-install.yml,
the user config directory, or the built-in sqlcmd formula, in that order.
The output can be saved and edited as a starting point for a custom formula.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, source, err := loadFormula(cmd, configFile)
		if err != nil {
			return err
		}
		log.Debugf("Printing formula from %s", source)

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("failed to encode formula: %w", err)
		}
		return enc.Close()
	},
}
