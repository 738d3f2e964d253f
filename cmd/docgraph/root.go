package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docgraph",
	Short: "Serve YAML document definitions as a GraphQL API",
	Long: `docgraph builds a GraphQL schema from document definitions.

Each definition names a document, its fields and the resolvers to expose.
Records are stored in SQLite or MongoDB.

Quick start:
  docgraph validate   # Check configuration and definitions
  docgraph sdl        # Print the generated schema
  docgraph serve      # Start the GraphQL server`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "docgraph.yaml", "config file path")
}
