package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const ruleWidth = 80

// HelpfulCommand prints the help of every command as one reference page.
var HelpfulCommand = &cobra.Command{
	Use:    "helpful",
	Short:  "Display comprehensive help for all commands",
	Long:   `Displays help information for all sqlcmd-install commands in a single, styled output.`,
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeReference(cmd.OutOrStdout(), cmd.Root())
	},
}

// writeReference writes the root help followed by a titled section for each
// visible command.
func writeReference(w io.Writer, root *cobra.Command) error {
	rule := ruleStyle.Render(strings.Repeat("─", ruleWidth))

	for i, c := range referenceCommands(root) {
		if i > 0 {
			fmt.Fprintf(w, "\n%s\n\n", headerStyle.Render("## "+c.CommandPath()))
		}
		if err := c.Help(); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%s\n\n", rule)
	}
	return nil
}

// referenceCommands lists root and its descendants depth first, leaving out
// hidden commands and the built-in help and completion commands.
func referenceCommands(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		if c.Hidden || c.Name() == "help" || c.Name() == "completion" {
			return
		}
		out = append(out, c)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(root)
	return out
}
