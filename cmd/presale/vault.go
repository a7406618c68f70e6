package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Print the vault address (sale ID) derived from the configuration",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		_, vault, err := saleIdentity(cfg)
		if err != nil {
			return err
		}
		fmt.Println(vault)
		return nil
	},
}
