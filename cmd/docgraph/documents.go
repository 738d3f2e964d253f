package main

import (
	"fmt"
	"strings"

	"github.com/artpar/docgraph/config"
	"github.com/artpar/docgraph/core/formatter"
	"github.com/spf13/cobra"
)

var (
	documentsOutput   string
	documentsFields   bool
	documentsNoHeader bool
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List document definitions and their resolvers",
	Long: `Build every document definition and list what it exposes.

Examples:
  docgraph documents
  docgraph documents --fields
  docgraph documents --output json`,
	RunE: runDocuments,
}

func init() {
	rootCmd.AddCommand(documentsCmd)

	documentsCmd.Flags().StringVarP(&documentsOutput, "output", "o", "table",
		"output format ("+strings.Join(formatter.List(), ", ")+")")
	documentsCmd.Flags().BoolVar(&documentsFields, "fields", false, "include schema fields")
	documentsCmd.Flags().BoolVar(&documentsNoHeader, "no-header", false, "omit table headers")
}

func runDocuments(cmd *cobra.Command, args []string) error {
	f, ok := formatter.Get(documentsOutput)
	if !ok {
		return fmt.Errorf("unknown output format %q", documentsOutput)
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		f.FormatError(cmd.ErrOrStderr(), err)
		return fmt.Errorf("load config: %w", err)
	}

	build, err := compileOffline(cfg.Documents.Dir)
	if err != nil {
		f.FormatError(cmd.ErrOrStderr(), err)
		return err
	}

	return f.FormatDocuments(cmd.OutOrStdout(), formatter.Summarize(build.Documents), formatter.FormatOptions{
		Fields:   documentsFields,
		NoHeader: documentsNoHeader,
	})
}
