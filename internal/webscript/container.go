package webscript

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/mvc_bridge/pkg/logger"
)

// StatusDocument is the body the container writes when a script fails or
// no script matches.
type StatusDocument struct {
	Status struct {
		Code        int    `json:"code"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"status"`
	Message string `json:"message,omitempty"`
	Script  string `json:"script,omitempty"`
}

type registration struct {
	id        string
	extension string
	prefix    string
	script    Script
}

// Container mounts scripts at <contextPath><servicePath>/<id>/ and serves
// them over gorilla/mux.
type Container struct {
	router      *mux.Router
	contextPath string
	servicePath string
	log         *logger.Logger

	mu      sync.RWMutex
	scripts map[string]registration
}

// NewContainer creates an empty container.
func NewContainer(contextPath, servicePath string, log *logger.Logger) *Container {
	if log == nil {
		log = logger.Discard()
	}
	c := &Container{
		router:      mux.NewRouter(),
		contextPath: strings.TrimRight(contextPath, "/"),
		servicePath: "/" + strings.Trim(servicePath, "/"),
		log:         log,
		scripts:     make(map[string]registration),
	}
	c.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusNotFound, "", fmt.Sprintf("Script url %s does not support the method %s", r.URL.Path, r.Method))
	})
	return c
}

// Use adds middleware to the container router.
func (c *Container) Use(mw ...mux.MiddlewareFunc) {
	c.router.Use(mw...)
}

// Router exposes the underlying router.
func (c *Container) Router() *mux.Router {
	return c.router
}

// ServiceContextPath returns the path a script with the given id is mounted at.
func (c *Container) ServiceContextPath(id string) string {
	return c.contextPath + c.servicePath + "/" + id
}

// Register mounts script under id. Requests must end with "/<extension>"
// unless extension is empty.
func (c *Container) Register(id, extension string, script Script) error {
	id = strings.Trim(strings.TrimSpace(id), "/")
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("script id %q must be a single path segment", id)
	}
	if script == nil {
		return fmt.Errorf("script %s: nil script", id)
	}
	extension = strings.Trim(extension, "/")

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.scripts[id]; exists {
		return fmt.Errorf("script %s already registered", id)
	}

	reg := registration{
		id:        id,
		extension: extension,
		prefix:    c.ServiceContextPath(id),
		script:    script,
	}
	c.scripts[id] = reg
	c.router.PathPrefix(reg.prefix + "/").Handler(c.handler(reg))

	c.log.WithField("script", id).WithField("path", reg.prefix).Info("Registered script")
	return nil
}

// Scripts returns the registered ids in sorted order.
func (c *Container) Scripts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.scripts))
	for id := range c.scripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ServeHTTP implements http.Handler.
func (c *Container) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.router.ServeHTTP(w, r)
}

func (c *Container) handler(reg registration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reg.extension != "" && !strings.HasSuffix(r.URL.Path, "/"+reg.extension) {
			writeStatus(w, http.StatusNotFound, reg.id, "Script url "+r.URL.Path+" does not end with /"+reg.extension)
			return
		}

		sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		req := NewServletRequest(r, c.contextPath, reg.prefix, reg.extension)
		res := NewWrappingResponse(NewServletResponse(sw))

		if err := reg.script.Execute(req, res); err != nil {
			c.log.WithContext(r.Context()).WithError(err).
				WithField("script", reg.id).
				WithField("path", r.URL.Path).
				Error("Script execution failed")
			if !sw.written {
				writeStatus(sw, http.StatusInternalServerError, reg.id, err.Error())
			}
		}
	})
}

func writeStatus(w http.ResponseWriter, code int, script, message string) {
	var doc StatusDocument
	doc.Status.Code = code
	doc.Status.Name = http.StatusText(code)
	doc.Status.Description = statusDescription(code)
	doc.Message = message
	doc.Script = script

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(doc)
}

func statusDescription(code int) string {
	switch code {
	case http.StatusNotFound:
		return "The requested resource is not available."
	case http.StatusInternalServerError:
		return "An error inside the HTTP server which prevented it from fulfilling the request."
	default:
		return http.StatusText(code)
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
