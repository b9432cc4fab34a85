package dispatch

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/mvc_bridge/internal/appctx"
	"github.com/R3E-Network/mvc_bridge/internal/metrics"
	"github.com/R3E-Network/mvc_bridge/internal/mvc"
	"github.com/R3E-Network/mvc_bridge/internal/webscript"
)

type pathController struct{}

func (pathController) RegisterRoutes(r *mvc.Routes) {
	r.Get("/foo/bar", func(w http.ResponseWriter, r *http.Request) (any, error) {
		return map[string]string{"path": r.URL.Path, "id": mvc.Param(r, "id")}, nil
	})
	r.Get("/docs/{id}", func(w http.ResponseWriter, r *http.Request) (any, error) {
		return map[string]string{"id": mvc.URLParam(r, "id")}, nil
	})
	r.Get("/script", func(w http.ResponseWriter, r *http.Request) (any, error) {
		script, ok := ScriptRequest(r.Context())
		if !ok {
			return nil, errors.New("no script request")
		}
		return map[string]string{
			"context":    script.ContextPath(),
			"service":    script.ServiceContextPath(),
			"requestURI": r.RequestURI,
		}, nil
	})
}

// stubServlet counts lifecycle calls and serves a fixed result.
type stubServlet struct {
	inits     atomic.Int32
	destroyed atomic.Bool
	serve     func(w http.ResponseWriter, r *http.Request) error
}

func (s *stubServlet) Init(cfg mvc.Config) error {
	s.inits.Add(1)
	return nil
}

func (s *stubServlet) Service(w http.ResponseWriter, r *http.Request) error {
	if s.serve != nil {
		return s.serve(w, r)
	}
	return nil
}

func (s *stubServlet) Destroy() {
	s.destroyed.Store(true)
}

func scriptPair(method, target, serviceCtx, ext string) (*webscript.ServletRequest, *httptest.ResponseRecorder, *webscript.ServletResponse) {
	rec := httptest.NewRecorder()
	req := webscript.NewServletRequest(httptest.NewRequest(method, target, nil), "/alfresco", serviceCtx, ext)
	return req, rec, webscript.NewServletResponse(rec)
}

func TestNewAdapter_Names(t *testing.T) {
	ctx := appctx.New("app")

	a, err := NewAdapter(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MVC Dispatcher Script", a.Name())

	a, err = NewAdapter(ctx, WithName("repository"))
	require.NoError(t, err)
	assert.Equal(t, "MVC Dispatcher Script: repository", a.Name())

	_, err = NewAdapter(ctx, WithName("  "))
	assert.Error(t, err)

	_, err = NewAdapter(nil)
	assert.Error(t, err)
}

func TestHandle_BeforeBound(t *testing.T) {
	a, err := NewAdapter(appctx.New("app"))
	require.NoError(t, err)

	req, _, res := scriptPair(http.MethodGet, "/service/x/foo/ext", "/service/x", "ext")
	err = a.Handle(req, res)
	assert.ErrorIs(t, err, ErrNotBound)
	assert.False(t, a.Bound())
	assert.Nil(t, a.Servlet())
}

func TestOnContextEvent_IgnoresOtherContexts(t *testing.T) {
	root := appctx.New("root")
	app := root.NewChild("app")
	sibling := root.NewChild("sibling")
	grandchild := app.NewChild("grandchild")

	var built atomic.Int32
	a, err := NewAdapter(app, WithServletFactory(func(*Adapter) Servlet {
		built.Add(1)
		return &stubServlet{}
	}))
	require.NoError(t, err)

	require.NoError(t, root.Refresh())
	require.NoError(t, sibling.Refresh())
	require.NoError(t, grandchild.Refresh())
	grandchild.Close()

	assert.Zero(t, built.Load())
	assert.False(t, a.Bound())

	require.NoError(t, app.Refresh())
	assert.EqualValues(t, 1, built.Load())
	assert.True(t, a.Bound())
}

func TestOnContextEvent_InnerContextRefreshDoesNotRebind(t *testing.T) {
	app := appctx.New("app")
	require.NoError(t, app.Register("pathController", pathController{}))

	a, err := NewAdapter(app)
	require.NoError(t, err)

	// The default dispatcher refreshes its own child context during Init,
	// which is delivered to the adapter's listener as well.
	require.NoError(t, app.Refresh())
	assert.EqualValues(t, 1, a.Generation())
}

func TestConfigure_LastWriteWins(t *testing.T) {
	app := appctx.New("app")
	var servlets []*stubServlet
	a, err := NewAdapter(app, WithServletFactory(func(*Adapter) Servlet {
		s := &stubServlet{}
		servlets = append(servlets, s)
		return s
	}))
	require.NoError(t, err)

	require.NoError(t, app.Refresh())
	require.NoError(t, app.Refresh())

	require.Len(t, servlets, 2)
	assert.True(t, servlets[0].destroyed.Load())
	assert.False(t, servlets[1].destroyed.Load())
	assert.Same(t, servlets[1], a.Servlet())
	assert.EqualValues(t, 2, a.Generation())
}

func TestConfigure_Concurrent(t *testing.T) {
	a, err := NewAdapter(appctx.New("app"), WithServletFactory(func(*Adapter) Servlet {
		return &stubServlet{}
	}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Configure())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 10, a.Generation())
}

func TestConfigure_HookAndFailure(t *testing.T) {
	app := appctx.New("app")
	var order []string
	a, err := NewAdapter(app,
		WithServletFactory(func(*Adapter) Servlet { return &stubServlet{} }),
		WithConfigure(func(s Servlet) error {
			order = append(order, "configure")
			assert.Zero(t, s.(*stubServlet).inits.Load())
			return errors.New("bad servlet")
		}),
	)
	require.NoError(t, err)

	assert.Error(t, a.Configure())
	assert.False(t, a.Bound())
	assert.Equal(t, []string{"configure"}, order)

	req, _, res := scriptPair(http.MethodGet, "/s/x/a/e", "/s/x", "e")
	err = a.Handle(req, res)
	assert.ErrorIs(t, err, ErrNotBound)
	assert.Contains(t, err.Error(), "bad servlet")
}

func TestConfigure_InitFailure(t *testing.T) {
	app := appctx.New("app")
	a, err := NewAdapter(app, WithContextConfigLocation("/does/not/exist.yaml"))
	require.NoError(t, err)

	require.NoError(t, app.Refresh())
	assert.False(t, a.Bound())
	assert.Error(t, a.Configure())
}

func TestHandle_SetsNoCacheAndUnwraps(t *testing.T) {
	app := appctx.New("app")
	var seenPath string
	a, err := NewAdapter(app, WithServletFactory(func(*Adapter) Servlet {
		return &stubServlet{serve: func(w http.ResponseWriter, r *http.Request) error {
			seenPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
			return nil
		}}
	}))
	require.NoError(t, err)
	require.NoError(t, a.Configure())

	req, rec, res := scriptPair(http.MethodGet, "/service/x/a/b/ext", "/service/x", "ext")
	wrappedReq := &webscript.WrappingRequest{Request: req}
	wrappedRes := webscript.NewWrappingResponse(res)

	require.NoError(t, a.Execute(wrappedReq, wrappedRes))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/a/b", seenPath)
	// The header went to the unwrapped response, not through the decorator.
	assert.Empty(t, wrappedRes.Headers())
}

func TestHandle_WrapsFailures(t *testing.T) {
	app := appctx.New("app")
	cause := errors.New("routing exploded")
	m := metrics.New()

	failing := &stubServlet{serve: func(http.ResponseWriter, *http.Request) error { return cause }}
	a, err := NewAdapter(app, WithMetrics(m), WithServletFactory(func(*Adapter) Servlet { return failing }))
	require.NoError(t, err)
	require.NoError(t, a.Configure())

	req, _, res := scriptPair(http.MethodGet, "/service/x/a/ext", "/service/x", "ext")
	err = a.Handle(req, res)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "/service/x/a/ext", ioErr.Path)

	failing.serve = func(http.ResponseWriter, *http.Request) error { panic("nil map") }
	err = a.Handle(req, res)
	assert.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "panic: nil map")

	count, err := testutil.GatherAndCount(m.Registry, "mvc_bridge_dispatch_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandle_EndToEnd(t *testing.T) {
	app := appctx.New("app")
	require.NoError(t, app.Register("pathController", pathController{}))

	a, err := NewAdapter(app, WithName("myapp"))
	require.NoError(t, err)
	require.NoError(t, app.Refresh())

	container := webscript.NewContainer("", "/service", nil)
	require.NoError(t, container.Register("myapp", "service.json", a))

	viaHost := httptest.NewRecorder()
	container.ServeHTTP(viaHost, httptest.NewRequest(http.MethodGet, "/service/myapp/foo/bar/service.json?id=7", nil))

	direct := httptest.NewRecorder()
	require.NoError(t, a.Servlet().Service(direct, httptest.NewRequest(http.MethodGet, "/foo/bar?id=7", nil)))

	assert.Equal(t, http.StatusOK, viaHost.Code)
	assert.Equal(t, direct.Code, viaHost.Code)
	assert.JSONEq(t, direct.Body.String(), viaHost.Body.String())
	assert.Equal(t, "/foo/bar", gjson.Get(viaHost.Body.String(), "data.path").String())
	assert.Equal(t, "no-cache", viaHost.Header().Get("Cache-Control"))
}

func TestHandle_ExposesScriptRequest(t *testing.T) {
	app := appctx.New("app")
	require.NoError(t, app.Register("pathController", pathController{}))
	a, err := NewAdapter(app)
	require.NoError(t, err)
	require.NoError(t, app.Refresh())

	container := webscript.NewContainer("/alfresco", "/service", nil)
	require.NoError(t, container.Register("mvc", "service.json", a))

	rec := httptest.NewRecorder()
	container.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alfresco/service/mvc/script/service.json", nil))

	body := rec.Body.String()
	assert.Equal(t, "/alfresco", gjson.Get(body, "data.context").String())
	assert.Equal(t, "/alfresco/service/mvc", gjson.Get(body, "data.service").String())
	assert.Equal(t, "script", gjson.Get(body, "data.requestURI").String())
}

func TestHandle_EncodedSegmentRoutesLikeDirect(t *testing.T) {
	app := appctx.New("app")
	require.NoError(t, app.Register("pathController", pathController{}))
	a, err := NewAdapter(app)
	require.NoError(t, err)
	require.NoError(t, app.Refresh())

	direct := httptest.NewRecorder()
	require.NoError(t, a.Servlet().Service(direct, httptest.NewRequest(http.MethodGet, "/docs/a%2Fb", nil)))

	req, rec, res := scriptPair(http.MethodGet, "/service/mvc/docs/a%2Fb/service.json", "/service/mvc", "service.json")
	require.NoError(t, a.Handle(req, res))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, direct.Code, rec.Code)
	assert.JSONEq(t, direct.Body.String(), rec.Body.String())
	assert.Equal(t, "a%2Fb", gjson.Get(rec.Body.String(), "data.id").String())
}

func TestHandle_UnmatchedPathIsNotFound(t *testing.T) {
	app := appctx.New("app")
	require.NoError(t, app.Register("pathController", pathController{}))
	a, err := NewAdapter(app)
	require.NoError(t, err)
	require.NoError(t, app.Refresh())

	req, rec, res := scriptPair(http.MethodGet, "/service/mvc/foo/bar", "/service/mvc", "service.json")
	require.NoError(t, a.Handle(req, res))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClose(t *testing.T) {
	app := appctx.New("app")
	stub := &stubServlet{}
	a, err := NewAdapter(app, WithServletFactory(func(*Adapter) Servlet { return stub }))
	require.NoError(t, err)
	require.NoError(t, app.Refresh())

	a.Close()
	assert.False(t, a.Bound())
	assert.True(t, stub.destroyed.Load())

	require.NoError(t, app.Refresh())
	assert.False(t, a.Bound())
}
