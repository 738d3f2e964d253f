package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long the file watcher waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// setting is a config field tracked across reloads.
type setting struct {
	name       string
	reloadable bool
	value      func(*Config) string
}

var settings = []setting{
	{"logging.level", true, func(c *Config) string { return c.Logging.Level }},
	{"metrics.enabled", true, func(c *Config) string { return fmt.Sprint(c.Metrics.Enabled) }},
	{"server.host", false, func(c *Config) string { return c.Server.Host }},
	{"server.port", false, func(c *Config) string { return fmt.Sprint(c.Server.Port) }},
	{"database.driver", false, func(c *Config) string { return c.Database.Driver }},
	{"database.dsn", false, func(c *Config) string { return c.Database.DSN }},
	{"documents.dir", false, func(c *Config) string { return c.Documents.Dir }},
	{"graphql.path", false, func(c *Config) string { return c.GraphQL.Path }},
	{"graphql.ws_path", false, func(c *Config) string { return c.GraphQL.WSPath }},
}

// Holder serves the current configuration and reloads it from disk on
// file change or SIGHUP. A failed reload keeps the previous configuration.
type Holder struct {
	path     string
	logger   zerolog.Logger
	current  atomic.Pointer[Config]
	reloadMu sync.Mutex

	// Debounce delays file-triggered reloads; zero means DefaultDebounce.
	Debounce time.Duration

	listenersMu sync.Mutex
	onChange    []func(*Config)
	onError     []func(error)

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads path and returns a holder for it.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := &Holder{
		path:   absPath,
		logger: logger.With().Str("component", "config").Logger(),
		stopCh: make(chan struct{}),
	}
	h.current.Store(cfg)
	return h, nil
}

// Get returns the current configuration.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Reload reads the file again. On success the new configuration replaces
// the old one and change listeners run; on failure error listeners run.
func (h *Holder) Reload() error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	next, err := Load(h.path)
	if err != nil {
		err = fmt.Errorf("reload config: %w", err)
		h.logger.Error().Err(err).Msg("keeping previous configuration")
		onError, _ := h.listeners()
		for _, fn := range onError {
			fn(err)
		}
		return err
	}

	prev := h.current.Swap(next)
	changed := Changes(prev, next)
	for _, name := range changed {
		if RestartRequired(name) {
			h.logger.Warn().Str("field", name).Msg("change requires a restart")
		} else {
			h.logger.Info().Str("field", name).Msg("setting reloaded")
		}
	}

	_, onChange := h.listeners()
	for _, fn := range onChange {
		fn(next)
	}
	h.logger.Info().Int("changed", len(changed)).Msg("configuration reloaded")
	return nil
}

// OnChange registers fn to run after every successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnError registers fn to run after every failed reload.
func (h *Holder) OnError(fn func(error)) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.onError = append(h.onError, fn)
}

func (h *Holder) listeners() ([]func(error), []func(*Config)) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	return append(([]func(error))(nil), h.onError...), append(([]func(*Config))(nil), h.onChange...)
}

// WatchFile reloads whenever the config file is written or replaced.
// The directory is watched so atomic saves by editors are seen.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	h.watcher = watcher

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file")
	return nil
}

// WatchSignals reloads on SIGHUP until Stop is called.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("SIGHUP received")
				h.Reload()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop ends file and signal watching. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) watchLoop() {
	debounce := h.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != h.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			h.logger.Debug().Str("op", event.Op.String()).Msg("config file changed")
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			h.Reload()

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// Changes lists the tracked settings that differ between prev and next.
func Changes(prev, next *Config) []string {
	var out []string
	for _, s := range settings {
		if s.value(prev) != s.value(next) {
			out = append(out, s.name)
		}
	}
	return out
}

// RestartRequired reports whether a change to the named setting only
// takes effect after a restart.
func RestartRequired(name string) bool {
	for _, s := range settings {
		if s.name == name {
			return !s.reloadable
		}
	}
	return false
}

// ReloadableFields lists the settings applied on reload.
func ReloadableFields() []string {
	return fieldNames(true)
}

// NonReloadableFields lists the settings that need a restart.
func NonReloadableFields() []string {
	return fieldNames(false)
}

func fieldNames(reloadable bool) []string {
	var out []string
	for _, s := range settings {
		if s.reloadable == reloadable {
			out = append(out, s.name)
		}
	}
	return out
}
