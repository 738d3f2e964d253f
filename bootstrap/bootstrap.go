// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/docgraph/adapters/metrics"
	"github.com/artpar/docgraph/config"
	gqlchannel "github.com/artpar/docgraph/core/channel/graphql"
	"github.com/artpar/docgraph/core/document"
	"github.com/artpar/docgraph/core/events"
	"github.com/artpar/docgraph/core/registry"
	"github.com/artpar/docgraph/core/resolvers"
	"github.com/artpar/docgraph/core/storage"
	"github.com/artpar/docgraph/core/typegen"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Store      storage.Store
	Registry   *registry.Registry
	Metrics    *metrics.Collector
	Build      *Build
	HTTPServer *http.Server

	holder *config.Holder
}

// New creates and initializes the application from cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := NewLogger(cfg.Logging, os.Stdout)
	logger.Info().Msg("initializing docgraph")

	a := &App{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics.New(),
	}

	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = store

	bus := events.NewBus(logger)
	a.Registry = registry.New(store, bus, logger)

	deps := document.Deps{
		Registry: a.Registry,
		Types:    typegen.NewGenerator(),
		Logger:   logger,
		Observer: a.Metrics,
	}
	build, err := Compile(cfg.Documents.Dir, deps, resolvers.DefaultCatalog())
	if err != nil {
		store.Close()
		return nil, err
	}
	a.Build = build

	if err := a.Registry.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info().
		Int("documents", len(build.Documents)).
		Str("driver", cfg.Database.Driver).
		Msg("documents loaded")

	return a, nil
}

// NewWithHotReload loads the config at path and reloads it on file change
// or SIGHUP. Only the log level and metrics toggle take effect live.
func NewWithHotReload(ctx context.Context, path string) (*App, error) {
	holder, err := config.NewHolder(path, zerolog.New(os.Stdout).With().Timestamp().Logger())
	if err != nil {
		return nil, err
	}

	a, err := New(ctx, holder.Get())
	if err != nil {
		return nil, err
	}
	a.holder = holder

	holder.OnChange(func(cfg *config.Config) {
		a.Metrics.ConfigReloaded(nil)
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	})
	holder.OnError(a.Metrics.ConfigReloaded)

	if err := holder.WatchFile(); err != nil {
		a.Logger.Warn().Err(err).Msg("config file watch disabled")
	}
	holder.WatchSignals()

	return a, nil
}

// liveConfig returns the current configuration, reloaded if hot reload
// is enabled.
func (a *App) liveConfig() *config.Config {
	if a.holder != nil {
		return a.holder.Get()
	}
	return a.Config
}

// Router builds the HTTP handler: GraphQL endpoints, health and metrics.
func (a *App) Router() http.Handler {
	cfg := a.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.GraphQL.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	gqlchannel.New(a.Build.Schema, gqlchannel.Options{
		Path:      cfg.GraphQL.Path,
		WSPath:    cfg.GraphQL.WSPath,
		KeepAlive: cfg.GraphQL.KeepAlive,
		Metrics:   a.Metrics,
	}, a.Logger).Register(r)

	r.Get("/healthz", a.handleHealth)

	metricsHandler := a.Metrics.Handler()
	r.Get(cfg.Metrics.Path, func(w http.ResponseWriter, req *http.Request) {
		if !a.liveConfig().Metrics.Enabled {
			http.NotFound(w, req)
			return
		}
		metricsHandler.ServeHTTP(w, req)
	})

	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","documents":%d}`, len(a.Build.Documents))
}

// Run starts the HTTP server and blocks until shutdown.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Str("graphql", a.Config.GraphQL.Path).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.Shutdown()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("store close error")
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

// OpenStore connects the configured document store.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := storage.NewSQLiteStore(cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := storage.NewMongoStore(ctx, cfg.DSN, cfg.Name)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// NewLogger builds the application logger and sets the global level.
func NewLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
