package main

import (
	"fmt"

	"github.com/osshealth/gram/config"
	"github.com/osshealth/gram/internal/sync"
	"github.com/spf13/cobra"
)

var addRepoCmd = &cobra.Command{
	Use:   "add-repo owner/name",
	Short: "Add a repository to the configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, _, err := sync.ParseRepositoryString(args[0]); err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if !cfg.AddRepository(args[0]) {
			fmt.Printf("Repository %s is already configured\n", args[0])
			return nil
		}
		if err := config.SaveConfig(cfg, configPath(cmd)); err != nil {
			return err
		}
		fmt.Printf("Added repository %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addRepoCmd)
}
