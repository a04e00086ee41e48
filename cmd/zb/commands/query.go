package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (c *CLI) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			components, err := c.Components(cmd.Context())
			if err != nil {
				return err
			}
			pkgs, err := components.App.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range pkgs {
				_, _ = fmt.Fprintf(out, "%s %s\n", p.Name, p.Version)
			}
			return nil
		},
	}
}

func (c *CLI) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>",
		Short: "Show details for an installed package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := c.Components(cmd.Context())
			if err != nil {
				return err
			}
			pkg, err := components.App.Info(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "name:      %s\n", pkg.Name)
			_, _ = fmt.Fprintf(out, "version:   %s\n", pkg.Version)
			_, _ = fmt.Fprintf(out, "store key: %s\n", pkg.StoreKey)
			if len(pkg.Dependencies) > 0 {
				_, _ = fmt.Fprintf(out, "depends:   %s\n", strings.Join(pkg.Dependencies, ", "))
			}
			_, _ = fmt.Fprintf(out, "installed: %s\n", pkg.InstalledAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}

func (c *CLI) newGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Remove store entries no installed package references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			components, err := c.Components(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := components.App.GC(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d store entries\n", len(removed))
			return nil
		},
	}
}

func (c *CLI) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the zb directory layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			components, err := c.Components(cmd.Context())
			if err != nil {
				return err
			}
			return components.App.Init()
		},
	}
}
