package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/mvc_bridge/internal/app/dictionary"
	"github.com/R3E-Network/mvc_bridge/internal/app/documents"
	"github.com/R3E-Network/mvc_bridge/internal/app/system"
	"github.com/R3E-Network/mvc_bridge/internal/appctx"
	"github.com/R3E-Network/mvc_bridge/internal/config"
	"github.com/R3E-Network/mvc_bridge/internal/dispatch"
	"github.com/R3E-Network/mvc_bridge/internal/mapper"
	"github.com/R3E-Network/mvc_bridge/internal/metrics"
	"github.com/R3E-Network/mvc_bridge/internal/middleware"
	"github.com/R3E-Network/mvc_bridge/internal/namespace"
	"github.com/R3E-Network/mvc_bridge/internal/pathrewrite"
	"github.com/R3E-Network/mvc_bridge/internal/repository"
	"github.com/R3E-Network/mvc_bridge/internal/repository/memory"
	"github.com/R3E-Network/mvc_bridge/internal/webscript"
	"github.com/R3E-Network/mvc_bridge/pkg/logger"
)

// Bean names of the controllers registered on the application context.
const (
	DocumentControllerBean   = "documentController"
	DictionaryControllerBean = "dictionaryController"
)

// Dependencies are the collaborators New would otherwise build from
// configuration. Nil fields get their defaults.
type Dependencies struct {
	Store    repository.Store
	Registry *namespace.Registry
	Scripts  *config.ScriptsConfig
	Metrics  *metrics.Metrics
}

// Application ties the bridge components together and manages their
// lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	manager *system.Manager
	router  *mux.Router

	Context   *appctx.Context
	Registry  *namespace.Registry
	Store     repository.Store
	Metrics   *metrics.Metrics
	Container *webscript.Container

	scriptIDs []string
	adapters  map[string]*dispatch.Adapter
	limiter   *middleware.RateLimiter
	cancel    context.CancelFunc
}

// New builds a fully wired application. Nothing is bound until Start.
func New(cfg *config.Config, deps Dependencies, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("app: configuration is required")
	}
	if log == nil {
		log = logger.NewDefault("app")
	}

	registry := deps.Registry
	if registry == nil {
		var err error
		if registry, err = loadRegistry(cfg.Bridge.DictionaryPath); err != nil {
			return nil, err
		}
	}
	if deps.Store == nil {
		deps.Store = memory.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Scripts == nil {
		var err error
		if deps.Scripts, err = loadScripts(cfg.Bridge.ScriptsConfigPath, log); err != nil {
			return nil, err
		}
	}

	a := &Application{
		cfg:      cfg,
		log:      log,
		manager:  system.NewManager(),
		Context:  appctx.New("application"),
		Registry: registry,
		Store:    deps.Store,
		Metrics:  deps.Metrics,
		adapters: make(map[string]*dispatch.Adapter),
	}

	if err := a.registerControllers(); err != nil {
		return nil, err
	}
	a.buildContainer()
	if err := a.registerScripts(deps.Scripts); err != nil {
		return nil, err
	}
	a.buildRouter()

	if err := a.manager.Register(system.Func{
		ServiceName: "application-context",
		OnStart:     a.startContext,
		OnStop:      a.stopContext,
	}); err != nil {
		return nil, err
	}
	if a.limiter != nil {
		if err := a.manager.Register(system.Func{
			ServiceName: "rate-limit-cleanup",
			OnStart:     a.startCleanup,
			OnStop:      a.stopCleanup,
		}); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func loadRegistry(path string) (*namespace.Registry, error) {
	if strings.TrimSpace(path) == "" {
		return namespace.DefaultRegistry(), nil
	}
	registry, err := namespace.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	return registry, nil
}

// loadScripts reads the scripts file. A missing file selects the default
// single-script setup; a malformed one is an error.
func loadScripts(path string, log *logger.Logger) (*config.ScriptsConfig, error) {
	scripts, err := config.LoadScriptsConfigFromPath(path)
	switch {
	case err == nil:
		return scripts, nil
	case errors.Is(err, fs.ErrNotExist):
		log.WithField("path", path).Warn("Scripts config not found; using default mvc script")
		return config.DefaultScriptsConfig(), nil
	default:
		return nil, err
	}
}

func (a *Application) registerControllers() error {
	cache := mapper.NewCache(a.Registry,
		mapper.WithLogger(a.log.Named("mapper")),
		mapper.WithRecorder(a.Metrics),
	)
	docMapper, err := documents.NewMapper(cache)
	if err != nil {
		return fmt.Errorf("document mapper: %w", err)
	}

	template := repository.NewTemplate(a.Store)
	if err := a.Context.Register(DocumentControllerBean, documents.NewController(template, docMapper, a.Registry)); err != nil {
		return err
	}
	return a.Context.Register(DictionaryControllerBean, dictionary.NewController(a.Registry))
}

func (a *Application) buildContainer() {
	bridge := a.cfg.Bridge
	c := webscript.NewContainer(bridge.ContextPath, bridge.ServicePath, a.log.Named("webscript"))

	c.Use(
		middleware.LoggingMiddleware(a.log.Named("http")),
		middleware.MetricsMiddleware("bridge", a.Metrics),
	)
	if len(bridge.CORSOrigins) > 0 {
		c.Use(middleware.NewCORSMiddleware(bridge.CORSOrigins).Handler)
	}
	if bridge.RateLimit > 0 {
		a.limiter = middleware.NewRateLimiter(bridge.RateLimit, bridge.RateBurst, a.log.Named("ratelimit"))
		c.Use(a.limiter.Handler)
	}
	a.Container = c
}

func (a *Application) registerScripts(scripts *config.ScriptsConfig) error {
	ids := scripts.EnabledIDs()
	if len(ids) == 0 {
		return errors.New("app: no enabled scripts")
	}

	rewriter := pathrewrite.New(pathrewrite.DefaultCacheSize)
	for _, id := range ids {
		settings := scripts.GetSettings(id)
		opts := []dispatch.Option{
			dispatch.WithLogger(a.log.Named("dispatch")),
			dispatch.WithMetrics(a.Metrics),
			dispatch.WithRewriter(rewriter),
			dispatch.WithContextConfigLocation(settings.ContextConfigLocation),
		}
		if settings.ServletName != "" {
			opts = append(opts, dispatch.WithName(settings.ServletName))
		}

		adapter, err := dispatch.NewAdapter(a.Context, opts...)
		if err != nil {
			return fmt.Errorf("script %s: %w", id, err)
		}
		if err := a.Container.Register(id, settings.Extension, adapter); err != nil {
			adapter.Close()
			return err
		}
		a.adapters[id] = adapter
		a.scriptIDs = append(a.scriptIDs, id)
	}
	return nil
}

func (a *Application) buildRouter() {
	r := mux.NewRouter()
	r.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", a.health).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(a.Container)
	a.router = r
}

// Handler returns the root HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.router
}

// Adapter returns the adapter mounted for a script id.
func (a *Application) Adapter(id string) (*dispatch.Adapter, bool) {
	adapter, ok := a.adapters[id]
	return adapter, ok
}

// Start refreshes the application context, which binds every adapter, and
// starts the background services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop releases the adapters and closes the application context.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

func (a *Application) startContext(context.Context) error {
	if err := a.Context.Refresh(); err != nil {
		return err
	}

	var unbound []string
	for _, id := range a.scriptIDs {
		if !a.adapters[id].Bound() {
			unbound = append(unbound, id)
		}
	}
	if len(unbound) > 0 {
		return fmt.Errorf("scripts not bound: %s", strings.Join(unbound, ", "))
	}

	a.log.WithField("scripts", a.scriptIDs).Info("Application context refreshed")
	return nil
}

func (a *Application) stopContext(context.Context) error {
	for _, id := range a.scriptIDs {
		a.adapters[id].Close()
	}
	a.Context.Close()
	return nil
}

func (a *Application) startCleanup(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.limiter.StartCleanup(ctx, time.Minute)
	return nil
}

func (a *Application) stopCleanup(context.Context) error {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	return nil
}
