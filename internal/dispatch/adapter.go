// Package dispatch bridges script requests to an inner MVC dispatcher. An
// Adapter binds a dispatcher when its application context signals that it
// has been refreshed, then forwards every script request to it with the
// host's path scaffolding stripped.
package dispatch

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/R3E-Network/mvc_bridge/internal/appctx"
	"github.com/R3E-Network/mvc_bridge/internal/metrics"
	"github.com/R3E-Network/mvc_bridge/internal/mvc"
	"github.com/R3E-Network/mvc_bridge/internal/pathrewrite"
	"github.com/R3E-Network/mvc_bridge/internal/webscript"
	"github.com/R3E-Network/mvc_bridge/pkg/logger"
)

// DefaultName is the name of an adapter created without WithName.
const DefaultName = "MVC Dispatcher Script"

// Servlet is the inner dispatcher contract.
type Servlet interface {
	Init(cfg mvc.Config) error
	Service(w http.ResponseWriter, r *http.Request) error
}

// Destroyer is implemented by servlets that release resources when a newer
// binding replaces them.
type Destroyer interface {
	Destroy()
}

// ServletFactory creates the inner dispatcher of a binding.
type ServletFactory func(a *Adapter) Servlet

// DefaultServletFactory builds an mvc.Dispatcher over the adapter's context.
func DefaultServletFactory(a *Adapter) Servlet {
	return mvc.NewDispatcher(a.appCtx,
		mvc.WithContextFactory(a.contextFactory),
		mvc.WithContextConfigLocation(a.configLocation),
		mvc.WithLogger(a.log),
	)
}

// servletConfig is the configuration synthesised for Init: a name and no
// parameters.
type servletConfig struct {
	name string
}

func (c servletConfig) ServletName() string { return c.name }

func (c servletConfig) InitParameter(string) string { return "" }

func (c servletConfig) InitParameterNames() []string { return nil }

type binding struct {
	servlet    Servlet
	generation uint64
	boundAt    time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithName sets the adapter name. It is appended to DefaultName.
func WithName(name string) Option {
	return func(a *Adapter) {
		a.customName = &name
	}
}

// WithServletFactory replaces the inner dispatcher factory.
func WithServletFactory(f ServletFactory) Option {
	return func(a *Adapter) {
		if f != nil {
			a.newServlet = f
		}
	}
}

// WithConfigure installs a hook run on each new servlet before Init.
func WithConfigure(fn func(Servlet) error) Option {
	return func(a *Adapter) {
		a.configure = fn
	}
}

// WithContextConfigLocation sets the inner dispatcher settings file.
func WithContextConfigLocation(path string) Option {
	return func(a *Adapter) {
		a.configLocation = path
	}
}

// WithContextFactory sets how the inner dispatcher creates its context.
func WithContextFactory(f mvc.ContextFactory) Option {
	return func(a *Adapter) {
		a.contextFactory = f
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// WithMetrics records dispatch outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithRewriter sets the path rewriter.
func WithRewriter(r *pathrewrite.Rewriter) Option {
	return func(a *Adapter) {
		if r != nil {
			a.rewriter = r
		}
	}
}

// Adapter forwards script requests to an inner dispatcher.
type Adapter struct {
	name       string
	customName *string
	appCtx     *appctx.Context
	newServlet ServletFactory
	configure  func(Servlet) error
	rewriter   *pathrewrite.Rewriter
	log        *logger.Logger
	metrics    *metrics.Metrics

	mu             sync.Mutex
	configLocation string
	contextFactory mvc.ContextFactory
	generation     uint64
	initErr        error
	unsubscribe    func()

	current atomic.Pointer[binding]
}

var _ webscript.Script = (*Adapter)(nil)

// NewAdapter creates an adapter bound to appCtx and subscribes it to the
// context's lifecycle events.
func NewAdapter(appCtx *appctx.Context, opts ...Option) (*Adapter, error) {
	if appCtx == nil {
		return nil, fmt.Errorf("dispatch: application context is required")
	}

	a := &Adapter{
		name:           DefaultName,
		appCtx:         appCtx,
		newServlet:     DefaultServletFactory,
		contextFactory: mvc.DefaultContextFactory,
		rewriter:       pathrewrite.New(pathrewrite.DefaultCacheSize),
		log:            logger.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.customName != nil {
		if strings.TrimSpace(*a.customName) == "" {
			return nil, fmt.Errorf("dispatch: adapter name must not be blank")
		}
		a.name = DefaultName + ": " + *a.customName
	}
	if a.contextFactory == nil {
		a.contextFactory = mvc.DefaultContextFactory
	}

	a.unsubscribe = appCtx.Subscribe(a.OnContextEvent)
	return a, nil
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.name
}

// SetContextConfigLocation sets the settings file used by the next binding.
func (a *Adapter) SetContextConfigLocation(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configLocation = path
}

// SetContextFactory sets the context factory used by the next binding.
func (a *Adapter) SetContextFactory(f mvc.ContextFactory) {
	if f == nil {
		f = mvc.DefaultContextFactory
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.contextFactory = f
}

// OnContextEvent binds a new dispatcher when the adapter's own context is
// refreshed. Events of any other context, including children created by the
// inner dispatcher, are ignored.
func (a *Adapter) OnContextEvent(ev appctx.Event) {
	if ev.Type != appctx.EventRefreshed || ev.Context != a.appCtx {
		return
	}
	if err := a.Configure(); err != nil {
		a.log.WithError(err).WithField("adapter", a.name).Error("Failed to bind dispatcher")
	}
}

// Configure creates, configures and initialises a new inner dispatcher and
// makes it the live binding. A later call replaces the binding.
func (a *Adapter) Configure() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	servlet := a.newServlet(a)
	if servlet == nil {
		a.initErr = fmt.Errorf("servlet factory returned nil")
		return fmt.Errorf("dispatch: %s: %w", a.name, a.initErr)
	}
	if a.configure != nil {
		if err := a.configure(servlet); err != nil {
			a.initErr = fmt.Errorf("configure servlet: %w", err)
			return fmt.Errorf("dispatch: %s: %w", a.name, a.initErr)
		}
	}
	if err := servlet.Init(servletConfig{name: a.name}); err != nil {
		a.initErr = fmt.Errorf("init servlet: %w", err)
		return fmt.Errorf("dispatch: %s: %w", a.name, a.initErr)
	}

	a.generation++
	previous := a.current.Swap(&binding{
		servlet:    servlet,
		generation: a.generation,
		boundAt:    time.Now().UTC(),
	})
	a.initErr = nil

	if previous != nil {
		if d, ok := previous.servlet.(Destroyer); ok {
			d.Destroy()
		}
	}

	a.log.WithField("adapter", a.name).WithField("generation", a.generation).Info("Dispatcher bound")
	return nil
}

// Bound reports whether a dispatcher is bound.
func (a *Adapter) Bound() bool {
	return a.current.Load() != nil
}

// Generation returns how many bindings have been made.
func (a *Adapter) Generation() uint64 {
	if b := a.current.Load(); b != nil {
		return b.generation
	}
	return 0
}

// Servlet returns the bound dispatcher, or nil.
func (a *Adapter) Servlet() Servlet {
	if b := a.current.Load(); b != nil {
		return b.servlet
	}
	return nil
}

// Handle forwards one script request to the bound dispatcher. The inner
// dispatcher sees the logical path between the service context path and the
// extension path as its request path. Its failures are returned as
// *IOError.
func (a *Adapter) Handle(req webscript.Request, res webscript.Response) error {
	b := a.current.Load()
	if b == nil {
		return a.notBound()
	}

	scriptReq := webscript.UnwrapRequest(req)
	scriptRes := webscript.UnwrapResponse(res)
	scriptRes.SetHeader("Cache-Control", "no-cache")

	httpReq := scriptReq.HTTPRequest()
	logical := a.rewriter.Rewrite(httpReq.URL.EscapedPath(), scriptReq.ServiceContextPath(), scriptReq.ExtensionPath())
	inner := forwardedRequest(httpReq, scriptReq, logical)

	start := time.Now()
	err := serve(b.servlet, scriptRes.HTTPResponse(), inner)
	a.record(err, time.Since(start))

	if err != nil {
		return &IOError{Adapter: a.name, Path: httpReq.URL.Path, Err: err}
	}
	return nil
}

// Execute implements webscript.Script.
func (a *Adapter) Execute(req webscript.Request, res webscript.Response) error {
	return a.Handle(req, res)
}

// Close unsubscribes from the context and destroys the bound dispatcher.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	if b := a.current.Swap(nil); b != nil {
		if d, ok := b.servlet.(Destroyer); ok {
			d.Destroy()
		}
	}
}

func (a *Adapter) notBound() error {
	a.mu.Lock()
	initErr := a.initErr
	a.mu.Unlock()

	if initErr != nil {
		return fmt.Errorf("%w: %s: last bind failed: %v", ErrNotBound, a.name, initErr)
	}
	return fmt.Errorf("%w: %s", ErrNotBound, a.name)
}

func (a *Adapter) record(err error, d time.Duration) {
	if a.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	a.metrics.RecordDispatch(a.name, outcome, d)
}

func serve(s Servlet, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return s.Service(w, r)
}
