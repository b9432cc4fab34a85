package webscript

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/mvc_bridge/pkg/logger"
)

func TestUnwrap(t *testing.T) {
	base := NewServletRequest(httptest.NewRequest(http.MethodGet, "/", nil), "", "/service/x", "ext")
	wrapped := &WrappingRequest{Request: &WrappingRequest{Request: base}}
	assert.Same(t, base, UnwrapRequest(wrapped))
	assert.Same(t, base, UnwrapRequest(base))
	assert.Equal(t, "/service/x", wrapped.ServiceContextPath())

	rec := httptest.NewRecorder()
	inner := NewServletResponse(rec)
	outer := NewWrappingResponse(NewWrappingResponse(inner))
	assert.Same(t, inner, UnwrapResponse(outer))

	outer.SetHeader("x-test", "1")
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, map[string]string{"X-Test": "1"}, outer.Headers())
}

func TestUnwrap_NilInnerStops(t *testing.T) {
	w := &WrappingRequest{}
	assert.Same(t, w, UnwrapRequest(w))
}

func TestContainer_RoutesToScript(t *testing.T) {
	c := NewContainer("/alfresco", "service", logger.Discard())

	var got Request
	require.NoError(t, c.Register("mvc", "service.json", ScriptFunc(func(req Request, res Response) error {
		got = req
		res.SetHeader("Content-Type", "text/plain")
		res.SetStatus(http.StatusAccepted)
		_, err := io.WriteString(res.HTTPResponse(), "ok")
		return err
	})))

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alfresco/service/mvc/a/b/service.json", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, "/alfresco", got.ContextPath())
	assert.Equal(t, "/alfresco/service/mvc", got.ServiceContextPath())
	assert.Equal(t, "service.json", got.ExtensionPath())
	assert.Equal(t, []string{"mvc"}, c.Scripts())
}

func TestContainer_RequiresExtension(t *testing.T) {
	c := NewContainer("", "/service", nil)
	called := false
	require.NoError(t, c.Register("mvc", "service.json", ScriptFunc(func(Request, Response) error {
		called = true
		return nil
	})))

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/service/mvc/a/b", nil))

	assert.False(t, called)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "mvc", gjson.Get(rec.Body.String(), "script").String())
}

func TestContainer_UnknownScript(t *testing.T) {
	c := NewContainer("", "/service", nil)
	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/service/none/a/service.json", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, 404, gjson.Get(rec.Body.String(), "status.code").Int())
}

func TestContainer_ScriptErrorBecomes500(t *testing.T) {
	c := NewContainer("", "/service", nil)
	require.NoError(t, c.Register("mvc", "", ScriptFunc(func(Request, Response) error {
		return errors.New("inner dispatcher failed")
	})))

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/service/mvc/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "Internal Server Error", gjson.Get(body, "status.name").String())
	assert.Equal(t, "inner dispatcher failed", gjson.Get(body, "message").String())
}

func TestContainer_ScriptErrorAfterWriteKeepsResponse(t *testing.T) {
	c := NewContainer("", "/service", nil)
	require.NoError(t, c.Register("mvc", "", ScriptFunc(func(_ Request, res Response) error {
		res.SetStatus(http.StatusTeapot)
		return errors.New("late failure")
	})))

	rec := httptest.NewRecorder()
	c.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/service/mvc/x", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestContainer_RegisterValidation(t *testing.T) {
	c := NewContainer("", "/service", nil)
	noop := ScriptFunc(func(Request, Response) error { return nil })

	assert.Error(t, c.Register("", "ext", noop))
	assert.Error(t, c.Register("a/b", "ext", noop))
	assert.Error(t, c.Register("a", "ext", nil))
	require.NoError(t, c.Register("a", "ext", noop))
	assert.Error(t, c.Register("a", "ext", noop))
}
