package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/artpar/docgraph/bootstrap"
	"github.com/artpar/docgraph/config"
	"github.com/artpar/docgraph/core/document"
	"github.com/artpar/docgraph/core/registry"
	"github.com/artpar/docgraph/core/resolvers"
	"github.com/artpar/docgraph/core/stitch"
	"github.com/artpar/docgraph/core/typegen"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and document definitions",
	Long: `Validate the docgraph configuration and every document definition.

Checks:
  - Configuration is valid (file or DOCGRAPH_* environment)
  - Every definition parses and builds
  - The stitched schema has no root field conflicts
  - The generated SDL is valid GraphQL
  - Database is reachable (optional)

Examples:
  docgraph validate
  docgraph validate --config /etc/docgraph/config.yaml --check-database`,
	RunE: runValidate,
}

var (
	validateCheckDatabase bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check if the database is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)
	fmt.Fprintf(out, "  %s Documents: %s\n", checkMark, cfg.Documents.Dir)
	fmt.Fprintf(out, "  %s Database: %s\n", checkMark, cfg.Database.Driver)

	build, err := compileOffline(cfg.Documents.Dir)
	if err != nil {
		fmt.Fprintf(out, "  %s Definitions build\n", crossMark)
		return err
	}
	for _, doc := range build.Documents {
		fmt.Fprintf(out, "  %s %s\n", checkMark, doc.Name)
	}

	if err := stitch.ValidateSDL(stitch.PrintSDL(build.Schema)); err != nil {
		fmt.Fprintf(out, "  %s Schema valid\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Schema valid\n", checkMark)

	if validateCheckDatabase {
		if err := checkDatabase(cmd.Context(), cfg.Database); err != nil {
			fmt.Fprintf(out, "  %s Database reachable: %v\n", crossMark, err)
			return fmt.Errorf("database error: %w", err)
		}
		fmt.Fprintf(out, "  %s Database reachable\n", checkMark)
	}

	printSummary(out, len(build.Documents))
	return nil
}

// compileOffline builds every definition without a store.
func compileOffline(dir string) (*bootstrap.Build, error) {
	deps := document.Deps{
		Registry: registry.New(nil, nil, zerolog.Nop()),
		Types:    typegen.NewGenerator(),
		Logger:   zerolog.Nop(),
	}
	return bootstrap.Compile(dir, deps, resolvers.DefaultCatalog())
}

func checkDatabase(ctx context.Context, cfg config.DatabaseConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	return store.Close()
}

func printSummary(out io.Writer, documents int) {
	fmt.Fprintf(out, "\nConfiguration is valid (%d documents).\n", documents)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
