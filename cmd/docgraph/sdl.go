package main

import (
	"fmt"
	"os"

	"github.com/artpar/docgraph/config"
	"github.com/artpar/docgraph/core/stitch"
	"github.com/spf13/cobra"
)

var sdlOut string

var sdlCmd = &cobra.Command{
	Use:   "sdl",
	Short: "Print the generated GraphQL schema",
	Long: `Build every document definition and print the stitched schema as SDL.

Examples:
  docgraph sdl
  docgraph sdl --out schema.graphql`,
	RunE: runSDL,
}

func init() {
	rootCmd.AddCommand(sdlCmd)

	sdlCmd.Flags().StringVarP(&sdlOut, "out", "o", "", "write the schema to a file instead of stdout")
}

func runSDL(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	build, err := compileOffline(cfg.Documents.Dir)
	if err != nil {
		return err
	}

	sdl := stitch.PrintSDL(build.Schema)
	if sdlOut == "" {
		fmt.Fprint(cmd.OutOrStdout(), sdl)
		return nil
	}
	if err := os.WriteFile(sdlOut, []byte(sdl), 0644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", sdlOut)
	return nil
}
