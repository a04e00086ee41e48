package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [packages...]",
		Short: "Install packages and their dependencies",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			components, err := c.Components(cmd.Context())
			if err != nil {
				return err
			}
			noLink, _ := cmd.Flags().GetBool("no-link")
			return components.App.Install(cmd.Context(), args, !noLink)
		},
	}
	cmd.Flags().Bool("no-link", false, "Install into the store without linking into the prefix")
	return cmd
}

func (c *CLI) newUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall [packages...]",
		Short: "Uninstall packages",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if len(args) == 0 && !all {
				_ = cmd.Help()
				return nil
			}
			components, err := c.Components(cmd.Context())
			if err != nil {
				return err
			}
			return components.App.Uninstall(cmd.Context(), args, all)
		},
	}
	cmd.Flags().Bool("all", false, "Uninstall every installed package")
	return cmd
}
