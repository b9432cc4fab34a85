// Package mvc is the generic MVC dispatcher the bridge forwards to. It owns
// a child application context, routes requests to the Controller beans
// visible from it and writes handler results in a JSON envelope.
package mvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/R3E-Network/mvc_bridge/internal/appctx"
	apperrors "github.com/R3E-Network/mvc_bridge/internal/errors"
	"github.com/R3E-Network/mvc_bridge/pkg/logger"
)

var (
	ErrNotInitialized     = errors.New("mvc: dispatcher not initialized")
	ErrAlreadyInitialized = errors.New("mvc: dispatcher already initialized")
	ErrHandlerPanic       = errors.New("mvc: handler panicked")
)

// ContextFactory creates the dispatcher's own context below parent.
type ContextFactory func(parent *appctx.Context, name string) *appctx.Context

// DefaultContextFactory creates a plain child context.
func DefaultContextFactory(parent *appctx.Context, name string) *appctx.Context {
	return parent.NewChild(name)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithContextFactory replaces the factory of the dispatcher context.
func WithContextFactory(f ContextFactory) Option {
	return func(d *Dispatcher) {
		if f != nil {
			d.contextFactory = f
		}
	}
}

// WithContextConfigLocation sets the settings file. It takes precedence over
// the contextConfigLocation init parameter.
func WithContextConfigLocation(path string) Option {
	return func(d *Dispatcher) {
		d.configLocation = path
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// Dispatcher routes requests to controllers. After Init it is safe for
// concurrent use.
type Dispatcher struct {
	parent         *appctx.Context
	contextFactory ContextFactory
	configLocation string
	log            *logger.Logger

	initMu      sync.Mutex
	initialized atomic.Bool
	name        string
	settings    Settings
	wac         *appctx.Context
	router      chi.Router
}

// NewDispatcher creates a dispatcher whose context will be a child of parent.
func NewDispatcher(parent *appctx.Context, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		parent:         parent,
		contextFactory: DefaultContextFactory,
		log:            logger.Discard(),
		settings:       DefaultSettings(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init creates the dispatcher context, loads settings, collects controllers
// and refreshes the context.
func (d *Dispatcher) Init(cfg Config) error {
	if cfg == nil || strings.TrimSpace(cfg.ServletName()) == "" {
		return fmt.Errorf("mvc: servlet name is required")
	}
	if d.parent == nil {
		return fmt.Errorf("mvc: parent context is required")
	}

	d.initMu.Lock()
	defer d.initMu.Unlock()
	if d.initialized.Load() {
		return ErrAlreadyInitialized
	}

	location := d.configLocation
	if location == "" {
		location = cfg.InitParameter(InitParamContextConfigLocation)
	}
	settings := DefaultSettings()
	if location != "" {
		loaded, err := LoadSettings(location)
		if err != nil {
			return err
		}
		settings = loaded
	}

	name := cfg.ServletName()
	wac := d.contextFactory(d.parent, name+"-servlet")
	if wac == nil {
		return fmt.Errorf("mvc: context factory returned nil")
	}

	controllers, err := collectControllers(wac, settings.Controllers)
	if err != nil {
		return err
	}

	d.name = name
	d.settings = settings
	d.wac = wac
	d.router = d.buildRouter(controllers)

	if err := wac.Refresh(); err != nil {
		return fmt.Errorf("mvc: refresh dispatcher context: %w", err)
	}
	d.initialized.Store(true)

	d.log.WithField("servlet", name).
		WithField("controllers", len(controllers)).
		WithField("config", location).
		Info("Dispatcher initialized")
	return nil
}

func collectControllers(wac *appctx.Context, names []string) ([]Controller, error) {
	if len(names) == 0 {
		return appctx.BeansOf[Controller](wac), nil
	}
	controllers := make([]Controller, 0, len(names))
	for _, name := range names {
		c, err := appctx.BeanOf[Controller](wac, name)
		if err != nil {
			return nil, fmt.Errorf("mvc: controller %s: %w", name, err)
		}
		controllers = append(controllers, c)
	}
	return controllers, nil
}

func (d *Dispatcher) buildRouter(controllers []Controller) chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, ErrorResponse{
			Message: fmt.Sprintf("No mapping for %s %s", r.Method, r.URL.Path),
		})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Message: apperrors.MethodNotSupported(r.Method).Error(),
		})
	})

	routes := &Routes{router: r, d: d}
	for _, c := range controllers {
		c.RegisterRoutes(routes)
	}
	return r
}

// Name returns the servlet name given to Init.
func (d *Dispatcher) Name() string {
	return d.name
}

// Context returns the dispatcher context, nil before Init.
func (d *Dispatcher) Context() *appctx.Context {
	if !d.initialized.Load() {
		return nil
	}
	return d.wac
}

// Destroy closes the dispatcher context. Requests already routed finish
// normally.
func (d *Dispatcher) Destroy() {
	if wac := d.Context(); wac != nil {
		wac.Close()
	}
}

// Settings returns the active settings.
func (d *Dispatcher) Settings() Settings {
	return d.settings
}

type errHolderKey struct{}

type errHolder struct {
	err error
}

// Service routes one request. It returns handler errors that were not
// resolved into a response, and panics as ErrHandlerPanic.
func (d *Dispatcher) Service(w http.ResponseWriter, r *http.Request) (err error) {
	if !d.initialized.Load() {
		return ErrNotInitialized
	}

	holder := &errHolder{}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, rec)
		}
	}()

	d.router.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), errHolderKey{}, holder)))
	return holder.err
}

func (d *Dispatcher) adapt(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.settings.MaxBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, d.settings.MaxBodyBytes)
		}

		data, err := h(w, r)
		if err != nil {
			d.resolveError(w, r, err)
			return
		}
		if data == Handled {
			return
		}
		WriteJSON(w, http.StatusOK, NewResponse(data))
	}
}

func (d *Dispatcher) resolveError(w http.ResponseWriter, r *http.Request, err error) {
	if !d.settings.ResolveErrors {
		if holder, ok := r.Context().Value(errHolderKey{}).(*errHolder); ok {
			holder.err = &ProcessingError{Err: err}
			return
		}
	}

	status := d.settings.DefaultErrorStatus
	if se, ok := apperrors.As(err); ok && se.HTTPStatus != 0 {
		status = se.HTTPStatus
	}

	d.log.WithContext(r.Context()).WithError(err).
		WithField("path", r.URL.Path).
		WithField("status", status).
		Warn("Handler failed")
	WriteJSON(w, status, NewErrorResponse(err))
}
