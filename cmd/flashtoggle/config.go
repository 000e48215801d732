package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flashtoggle/flashtoggle/internal/config"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigPrint,
	}
	printCmd.Flags().Bool("defaults", false, "Print the built-in defaults instead")
	configCmd.AddCommand(printCmd)

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Args:  cobra.NoArgs,
		RunE:  runConfigValidate,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "explain <path>",
		Short: "Show an effective value and where it came from",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigExplain,
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	rootCmd.AddCommand(configCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "reload",
		Short: "Ask the running daemon to reload its configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := newClient().Reload(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration reloaded")
			return nil
		},
	})
}

func runConfigPrint(cmd *cobra.Command, _ []string) error {
	defaults, _ := cmd.Flags().GetBool("defaults")

	cfg := config.DefaultConfig()
	if !defaults {
		res, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = res.Config
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	res, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", res.Path)
	return nil
}

func runConfigExplain(cmd *cobra.Command, args []string) error {
	res, err := loadConfig()
	if err != nil {
		return err
	}
	path := strings.TrimSpace(args[0])
	value, src, err := config.Explain(res, path)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"path":   path,
			"value":  value,
			"source": formatSource(src),
		})
	}
	encoded, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s  (%s)\n", path, strings.TrimSpace(string(encoded)), formatSource(src))
	return nil
}
