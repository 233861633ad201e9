// Package app wires the discussions service together: storage, sites,
// flags, signals, handlers and the config watcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/zjrosen/discussions/internal/config"
	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/discussion/handlers"
	"github.com/zjrosen/discussions/internal/flags"
	"github.com/zjrosen/discussions/internal/infrastructure/sqlite"
	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/modulestore"
	"github.com/zjrosen/discussions/internal/notify"
	"github.com/zjrosen/discussions/internal/profanity"
	"github.com/zjrosen/discussions/internal/requestcache"
	"github.com/zjrosen/discussions/internal/requestctx"
	"github.com/zjrosen/discussions/internal/signals"
	"github.com/zjrosen/discussions/internal/sites"
	"github.com/zjrosen/discussions/internal/tracing"
	"github.com/zjrosen/discussions/internal/watcher"
)

// App is the running service.
type App struct {
	DB          *sqlite.DB
	Flags       *flags.Registry
	Sites       *sites.Service
	Notifier    *notify.Service
	Profanity   *profanity.Checker
	Signals     *discussion.Signals
	Modulestore *modulestore.Store
	Updater     *modulestore.Updater
	Handlers    *handlers.Registered
	Tracing     *tracing.Provider

	mu         sync.RWMutex
	cfg        config.Config
	configPath string

	watcher   *watcher.Watcher
	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// Option configures New.
type Option func(*options)

type options struct {
	clock func() time.Time
	newID func() string
}

// WithClock overrides the clock of the notification and course stores.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithIDGenerator overrides notification ids and block names.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// New opens the database and connects every handler. configPath may be
// empty when no config file is in use.
func New(cfg config.Config, configPath string, opts ...Option) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("starting tracing: %w", err)
	}

	db, err := sqlite.NewDB(cfg.Database.Path)
	if err != nil {
		_ = tp.Shutdown(context.Background())
		return nil, err
	}

	a := &App{
		DB:         db,
		Tracing:    tp,
		cfg:        cfg,
		configPath: configPath,
	}

	a.Flags = flags.New(nil)
	a.Flags.Reload(cfg.Flags, cfg.CourseFlagMap())
	a.Sites = sites.NewService(db.SiteRepository())
	a.Notifier = notify.NewService(db.NotificationStore(), o.clock, o.newID)
	a.Profanity = profanity.NewChecker(cfg.Profanity.Words, db.ReportStore())
	a.Signals = discussion.NewSignals()

	var storeOpts []modulestore.Option
	if o.clock != nil {
		storeOpts = append(storeOpts, modulestore.WithClock(o.clock))
	}
	if o.newID != nil {
		storeOpts = append(storeOpts, modulestore.WithNameGenerator(o.newID))
	}
	published := signals.New[modulestore.CoursePublishedPayload](modulestore.SignalCoursePublished)
	a.Modulestore = modulestore.NewStore(db.CourseRepository(), published, storeOpts...)
	a.Updater = modulestore.NewUpdater(a.Modulestore, db.SettingsRepository())

	a.Handlers = handlers.Register(a.Signals, published, handlers.Deps{
		Sites:              a.Sites,
		Configs:            a.Sites,
		Sender:             a.Notifier,
		ProfanityFlag:      a.Flags.CourseFlag(flags.FlagProfanityChecker),
		Profanity:          a.Profanity,
		MapUpdater:         a.Updater,
		CoursePublishDelay: cfg.Discussion.CoursePublishTaskDelay,
	})

	log.Info(log.CatConfig, "Service ready", "db", db.Path(), "config", configPath, "tracing", tp.Enabled())
	return a, nil
}

// Config returns the configuration currently in effect.
func (a *App) Config() config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// RequestContext starts a request: a fresh request cache and, when domain
// is set, the current site domain. An empty domain falls back to
// site.domain from the config.
func (a *App) RequestContext(ctx context.Context, domain string) context.Context {
	if domain == "" {
		domain = a.Config().Site.Domain
	}
	ctx = requestcache.WithRegistry(ctx, requestcache.New())
	if domain != "" {
		ctx = requestctx.WithSiteDomain(ctx, domain)
	}
	return ctx
}

// Dispatch sends the post signal called name, stopping at the first
// receiver error.
func (a *App) Dispatch(ctx context.Context, name string, payload discussion.PostPayload) error {
	sig, ok := a.Signals.ByName(name)
	if !ok {
		return fmt.Errorf("unknown signal %q", name)
	}
	return sig.Send(ctx, payload)
}

// ReloadConfig rereads the config file and applies what can change
// without a restart: flags, course flags and the profanity word list.
func (a *App) ReloadConfig() error {
	if a.configPath == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(a.configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	current := a.Config()
	cfg := current
	// Lists and maps are replaced, not merged.
	cfg.Flags = nil
	cfg.CourseFlags = nil
	cfg.Profanity.Words = nil
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	cfg.ExpandPaths()
	// The open database stays in use until restart.
	cfg.Database = current.Database
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.Flags.Reload(cfg.Flags, cfg.CourseFlagMap())
	a.Profanity.SetWords(cfg.Profanity.Words)

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	log.Info(log.CatConfig, "Config reloaded", "path", a.configPath, "flags", len(cfg.Flags), "course_flags", len(cfg.CourseFlags))
	return nil
}

// WatchConfig reloads the config file whenever it changes until Close.
// onReload, when set, observes every reload attempt.
func (a *App) WatchConfig(onReload func(error)) error {
	if a.configPath == "" {
		return errors.New("no config file to watch")
	}
	if a.watcher != nil {
		return nil
	}

	w, err := watcher.New(watcher.DefaultConfig(a.configPath))
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.watcher = w
	a.stopWatch = cancel
	a.watchDone = make(chan struct{})

	go func() {
		defer close(a.watchDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				err := a.ReloadConfig()
				if err != nil {
					log.ErrorErr(log.CatWatcher, "Config reload failed", err, "path", a.configPath)
				}
				if onReload != nil {
					onReload(err)
				}
			}
		}
	}()
	return nil
}

// Close stops the watcher, drains delayed publish updates, closes the
// signals and the database, and flushes traces.
func (a *App) Close() error {
	if a.watcher != nil {
		a.stopWatch()
		_ = a.watcher.Stop()
		<-a.watchDone
		a.watcher = nil
	}

	a.Handlers.Close()
	a.Signals.Close()
	a.Modulestore.CoursePublished().Close()

	var errs []error
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Tracing.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flushing traces: %w", err))
	}
	return errors.Join(errs...)
}
