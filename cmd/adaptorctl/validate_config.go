package main

import (
	"github.com/spf13/cobra"

	"github.com/opendocfeed/adaptor/internal/config"
)

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config <file>",
	Short: "Load and validate an adaptor config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(args[0])
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}
		cmd.Printf("%s: valid\n", args[0])
		return nil
	},
}
