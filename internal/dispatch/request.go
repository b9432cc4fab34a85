package dispatch

import (
	"context"
	"net/http"
	"net/url"

	"github.com/R3E-Network/mvc_bridge/internal/webscript"
)

type scriptRequestKey struct{}

// ScriptRequest returns the script request a forwarded request came from.
func ScriptRequest(ctx context.Context) (webscript.Request, bool) {
	req, ok := ctx.Value(scriptRequestKey{}).(webscript.Request)
	return req, ok
}

// forwardedRequest clones r so the inner dispatcher sees the logical path as
// the whole request path, with no servlet path in front of it. logical is
// still escaped; the inner URL keeps that form as RawPath so encoded
// reserved characters route as they would when sent directly.
func forwardedRequest(r *http.Request, script webscript.Request, logical string) *http.Request {
	ctx := context.WithValue(r.Context(), scriptRequestKey{}, script)
	inner := r.Clone(ctx)

	raw := "/" + logical
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	inner.URL.Path = decoded
	inner.URL.RawPath = ""
	if decoded != raw {
		inner.URL.RawPath = raw
	}
	inner.RequestURI = logical
	return inner
}
