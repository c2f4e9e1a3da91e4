package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "flotactl",
	Short: "Fleet management admin console",
	Long: `flotactl runs the fleet console and drives it from the terminal:
sign in against the fleet API and export any list as a spreadsheet or PDF.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to the YAML configuration file")

	rootCmd.AddCommand(serveCmd, loginCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
