// Package main provides the gridmark binary entry point.
// gridmark numbers model elements by their position on the reference grid.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "gridmark"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Grid-based element numbering",
		Long: `gridmark numbers model elements by their position on the reference grid.

Each selected element gets a sequential "Number" and a "Grid Square" label
built from the nearest vertical and horizontal grid lines (for example "B-3").
Both fields are created in the shared definition file and bound to the
elements' categories before any value is written.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&opts.dbPath, "db", "", "Model database path (overrides config)")
	flags.StringVar(&opts.definitionsPath, "definitions", "", "Shared definition file (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		importCmd(opts),
		categoriesCmd(opts),
		numberCmd(opts),
		fieldsCmd(opts),
		definitionsCmd(opts),
		configCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}
