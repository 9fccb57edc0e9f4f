package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bnema/touchicons/internal/infrastructure/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with every default setting",
	Long: `Write config.toml with every setting at its default value.

An existing file is left untouched unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show config, data and log locations",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configPathCmd)
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")
}

func resolveConfigFile() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return config.GetConfigFile()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigFile()
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); statErr == nil && !configForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := config.WriteConfigOrdered(config.DefaultConfig(), path); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), renderer().RenderPath("wrote", path))
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	path, err := resolveConfigFile()
	if err != nil {
		return err
	}
	dirs, err := config.GetXDGDirs()
	if err != nil {
		return err
	}
	dbFile, err := config.GetDatabaseFile()
	if err != nil {
		return err
	}
	logDir, err := config.GetLogDir()
	if err != nil {
		return err
	}

	r := renderer()
	out := cmd.OutOrStdout()
	fmt.Fprint(out, r.RenderPath("config  ", path))
	fmt.Fprint(out, r.RenderPath("data    ", dirs.DataHome))
	fmt.Fprint(out, r.RenderPath("database", dbFile))
	fmt.Fprint(out, r.RenderPath("logs    ", logDir))
	return nil
}
