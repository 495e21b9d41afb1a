// Command adaptorctl is the operator CLI for an adaptor.Run-based
// service: validate a config file, run the service in the foreground, or
// trigger an out-of-schedule push against a running instance.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "adaptorctl",
	Short: "Operate an opendocfeed adaptor",
}

func init() {
	rootCmd.AddCommand(validateConfigCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pushNowCmd)
}
