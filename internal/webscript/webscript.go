// Package webscript models the script host: its request and response
// abstraction, the decorators it wraps them in, and a container that mounts
// scripts below a service path.
package webscript

import (
	"net/http"
)

// Request is a script request. Besides the HTTP request it carries the path
// scaffolding of the host: the application context path, the service
// context path the script is mounted at and the extension path that
// terminates script URLs.
type Request interface {
	HTTPRequest() *http.Request
	ContextPath() string
	ServiceContextPath() string
	ExtensionPath() string
}

// Response is a script response.
type Response interface {
	HTTPResponse() http.ResponseWriter
	SetHeader(name, value string)
	SetStatus(code int)
}

// RequestUnwrapper is implemented by request decorators.
type RequestUnwrapper interface {
	Unwrap() Request
}

// ResponseUnwrapper is implemented by response decorators.
type ResponseUnwrapper interface {
	Unwrap() Response
}

// UnwrapRequest peels decorators off r until it reaches one that does not
// wrap another request.
func UnwrapRequest(r Request) Request {
	for {
		u, ok := r.(RequestUnwrapper)
		if !ok {
			return r
		}
		inner := u.Unwrap()
		if inner == nil {
			return r
		}
		r = inner
	}
}

// UnwrapResponse peels decorators off w.
func UnwrapResponse(w Response) Response {
	for {
		u, ok := w.(ResponseUnwrapper)
		if !ok {
			return w
		}
		inner := u.Unwrap()
		if inner == nil {
			return w
		}
		w = inner
	}
}

// Script handles script requests.
type Script interface {
	Execute(req Request, res Response) error
}

// ScriptFunc adapts a function to Script.
type ScriptFunc func(req Request, res Response) error

// Execute calls f.
func (f ScriptFunc) Execute(req Request, res Response) error {
	return f(req, res)
}

// ServletRequest is the request the container hands to scripts.
type ServletRequest struct {
	req                *http.Request
	contextPath        string
	serviceContextPath string
	extensionPath      string
}

var _ Request = (*ServletRequest)(nil)

// NewServletRequest builds a script request over r.
func NewServletRequest(r *http.Request, contextPath, serviceContextPath, extensionPath string) *ServletRequest {
	return &ServletRequest{
		req:                r,
		contextPath:        contextPath,
		serviceContextPath: serviceContextPath,
		extensionPath:      extensionPath,
	}
}

func (r *ServletRequest) HTTPRequest() *http.Request { return r.req }
func (r *ServletRequest) ContextPath() string { return r.contextPath }
func (r *ServletRequest) ServiceContextPath() string { return r.serviceContextPath }
func (r *ServletRequest) ExtensionPath() string { return r.extensionPath }

// ServletResponse writes straight to an http.ResponseWriter.
type ServletResponse struct {
	w http.ResponseWriter
}

var _ Response = (*ServletResponse)(nil)

// NewServletResponse wraps w.
func NewServletResponse(w http.ResponseWriter) *ServletResponse {
	return &ServletResponse{w: w}
}

func (r *ServletResponse) HTTPResponse() http.ResponseWriter { return r.w }
func (r *ServletResponse) SetHeader(name, value string) { r.w.Header().Set(name, value) }
func (r *ServletResponse) SetStatus(code int) { r.w.WriteHeader(code) }

// WrappingResponse decorates another response. Header writes are recorded
// so the host can tell what a script changed.
type WrappingResponse struct {
	Response
	headers map[string]string
}

var (
	_ Response          = (*WrappingResponse)(nil)
	_ ResponseUnwrapper = (*WrappingResponse)(nil)
)

// NewWrappingResponse wraps res.
func NewWrappingResponse(res Response) *WrappingResponse {
	return &WrappingResponse{Response: res, headers: make(map[string]string)}
}

// SetHeader records and forwards the header.
func (r *WrappingResponse) SetHeader(name, value string) {
	r.headers[http.CanonicalHeaderKey(name)] = value
	r.Response.SetHeader(name, value)
}

// Headers returns the headers set through this decorator.
func (r *WrappingResponse) Headers() map[string]string {
	out := make(map[string]string, len(r.headers))
	for k, v := range r.headers {
		out[k] = v
	}
	return out
}

// Unwrap returns the decorated response.
func (r *WrappingResponse) Unwrap() Response {
	return r.Response
}

// WrappingRequest decorates another request.
type WrappingRequest struct {
	Request
}

var _ RequestUnwrapper = (*WrappingRequest)(nil)

// Unwrap returns the decorated request.
func (r *WrappingRequest) Unwrap() Request {
	return r.Request
}
