package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	adaptor "github.com/opendocfeed/adaptor"
	"github.com/opendocfeed/adaptor/internal/demoadaptor"
)

// serveCmd runs the demonstration adaptor against an operator-supplied
// config, for smoke-testing a deployment's config file and network setup
// before wiring a repository-specific Adaptor implementation into
// adaptor.Run directly.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demonstration adaptor against a config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		impl := demoadaptor.New(logger)
		return adaptor.Run(context.Background(), impl, configPath)
	},
}

func init() {
	serveCmd.Flags().String("config", "adaptor-config.yaml", "path to the adaptor config file")
}
