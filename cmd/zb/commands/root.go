// Package commands implements the CLI commands for zb.
package commands

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/grindlemire/graft"
	"github.com/spf13/cobra"
	"go.trai.ch/zb/internal/app"
	"go.trai.ch/zb/internal/build"
)

// CLI represents the command line interface for zb.
type CLI struct {
	rootCmd *cobra.Command

	once       sync.Once
	components *app.Components
	initErr    error
}

// New creates a new CLI instance.
func New() *CLI {
	rootCmd := &cobra.Command{
		Use:           "zb",
		Short:         "A fast installer for Homebrew bottles",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().String("root", "", "Override the zb root directory")
	rootCmd.PersistentFlags().String("prefix", "", "Override the link prefix")
	rootCmd.PersistentFlags().Int("concurrency", 0, "Maximum concurrent downloads")
	rootCmd.PersistentFlags().String("formula-dir", "", "Serve formulae from a local directory")
	rootCmd.PersistentFlags().Bool("no-progress", false, "Disable the progress display")

	c := &CLI{rootCmd: rootCmd}

	// Flags become environment overrides before any component is built, so
	// the configuration node sees them regardless of construction order.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return exportFlags(cmd)
	}

	rootCmd.AddCommand(c.newInitCmd())
	rootCmd.AddCommand(c.newInstallCmd())
	rootCmd.AddCommand(c.newUninstallCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newInfoCmd())
	rootCmd.AddCommand(c.newGCCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

func exportFlags(cmd *cobra.Command) error {
	stringFlags := map[string]string{
		"config":      "ZB_CONFIG",
		"root":        "ZB_ROOT",
		"prefix":      "ZB_PREFIX",
		"formula-dir": "ZB_FORMULA_DIR",
	}
	for flag, env := range stringFlags {
		v, err := cmd.Flags().GetString(flag)
		if err != nil {
			return err
		}
		if v != "" {
			if err := os.Setenv(env, v); err != nil {
				return err
			}
		}
	}

	if n, err := cmd.Flags().GetInt("concurrency"); err != nil {
		return err
	} else if n > 0 {
		if err := os.Setenv("ZB_CONCURRENCY", strconv.Itoa(n)); err != nil {
			return err
		}
	}

	if off, err := cmd.Flags().GetBool("no-progress"); err != nil {
		return err
	} else if off {
		if err := os.Setenv("ZB_NO_PROGRESS", "1"); err != nil {
			return err
		}
	}
	return nil
}

// Components builds (once) and returns the application components. It runs
// lazily so commands that need no components, like version, skip the cost.
func (c *CLI) Components(ctx context.Context) (*app.Components, error) {
	c.once.Do(func() {
		c.components, _, c.initErr = graft.ExecuteFor[*app.Components](ctx)
	})
	return c.components, c.initErr
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// Close releases the application components, if they were built.
func (c *CLI) Close() error {
	if c.components == nil {
		return nil
	}
	return c.components.App.Close()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOut redirects command output. Used for testing.
func (c *CLI) SetOut(w io.Writer) {
	c.rootCmd.SetOut(w)
}
