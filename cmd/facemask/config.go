package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/facemask/internal/config"
	"github.com/menta2k/facemask/internal/utils"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

// configInitCmd writes the default configuration
var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetConfigPath()
		if len(args) == 1 {
			path = args[0]
		}
		if force, _ := cmd.Flags().GetBool("force"); !force && utils.FileExists(path) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		cfg := config.Default()
		if err := cfg.SaveToFile(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		if cfg.Render.FontPath == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "note: set render.font_path to a monochrome emoji font (such as Noto Emoji) to draw emoji symbols; without one they are drawn as solid discs")
		}
		return nil
	},
}

// configShowCmd prints the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}
