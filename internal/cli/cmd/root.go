// Package cmd provides Cobra CLI commands for touchicons.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/touchicons/internal/cli"
	"github.com/bnema/touchicons/internal/cli/styles"
	"github.com/bnema/touchicons/internal/profile"
)

const closeTimeout = 10 * time.Second

var (
	app        *cli.App
	configFile string
	profileID  string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "touchicons",
		Short: "Per-profile touch icon cache",
		Long: `touchicons keeps one high-resolution touch icon per website origin
for each browser profile, on disk, bounded in size and indexed by metadata.

Use 'touchicons serve' to run the internals HTTP surface, or the other
subcommands to inspect and manage a profile's cache directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsApp(cmd) {
				return nil
			}

			var err error
			app, err = cli.NewApp(cmd.Context(), cli.Options{
				ConfigFile:  configFile,
				LogToStderr: verbose || cmd == serveCmd,
				Out:         cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if app == nil {
				return nil
			}
			ctx, cancel := context.WithTimeout(context.WithoutCancel(app.Ctx()), closeTimeout)
			defer cancel()
			err := app.Close(ctx)
			app = nil
			return err
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $XDG_CONFIG_HOME/touchicons/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&profileID, "profile", "p", profile.DefaultProfile, "browser profile to operate on")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
}

// needsApp reports whether cmd works on caches rather than on files only.
func needsApp(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "completion", "version", "config":
		return false
	}
	return cmd.Parent() != configCmd
}

// Execute runs the root command.
func Execute(version string) {
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		theme := styles.NewTheme(os.Stderr)
		fmt.Fprint(os.Stderr, styles.NewIconRenderer(theme).RenderError(err))
		os.Exit(1)
	}
}

func requireApp() (*cli.App, error) {
	if app == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return app, nil
}

func renderer() *styles.IconRenderer {
	if app != nil {
		return styles.NewIconRenderer(app.Theme)
	}
	return styles.NewIconRenderer(styles.NewTheme(os.Stdout))
}
