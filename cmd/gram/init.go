package main

import (
	"fmt"

	"github.com/osshealth/gram/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath(cmd)
		if err := config.CreateDefaultConfig(path); err != nil {
			return fmt.Errorf("failed to create default configuration: %w", err)
		}
		fmt.Printf("Created configuration at %s\n", path)
		fmt.Printf("Set %s (or %s) to authenticate API requests\n",
			config.EnvGithubToken, config.EnvGithubTokenFallback)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
