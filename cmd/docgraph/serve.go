package main

import (
	"fmt"
	"os"

	"github.com/artpar/docgraph/bootstrap"
	"github.com/artpar/docgraph/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GraphQL server",
	Long: `Start the docgraph GraphQL server.

The server will:
  - Load configuration from docgraph.yaml (or --config)
  - Or load configuration from DOCGRAPH_* environment variables
  - Build every document definition in documents.dir
  - Connect to the database and create collections
  - Serve queries and mutations over HTTP and subscriptions over WebSocket

Examples:
  docgraph serve
  docgraph serve --config /etc/docgraph/config.yaml
  docgraph serve --hot-reload=false

  # Environment only:
  DOCGRAPH_DOCUMENTS_DIR=./documents docgraph serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		app, err = bootstrap.NewWithHotReload(ctx, cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("load config: %w", loadErr)
		}
		app, err = bootstrap.New(ctx, cfg)
	}
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	return app.Run()
}
