// Package pathrewrite recovers the logical path of a script request: the
// segment between the service context path and the extension path.
package pathrewrite

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of compiled patterns kept by a Rewriter.
const DefaultCacheSize = 256

type anchors struct {
	ctx string
	ext string
}

// Rewriter extracts logical paths. Compiled patterns are cached per anchor
// pair; paths themselves never are. Safe for concurrent use.
type Rewriter struct {
	patterns *lru.Cache[anchors, *regexp.Regexp]
}

// New returns a Rewriter caching up to size patterns.
func New(size int) *Rewriter {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[anchors, *regexp.Regexp](size)
	if err != nil {
		panic(err)
	}
	return &Rewriter{patterns: cache}
}

var defaultRewriter = New(DefaultCacheSize)

// Rewrite uses a shared Rewriter.
func Rewrite(requestURI, serviceContextPath, extensionPath string) string {
	return defaultRewriter.Rewrite(requestURI, serviceContextPath, extensionPath)
}

// Rewrite returns the segment of requestURI strictly between
// serviceContextPath and extensionPath, e.g.
// ("/service/ctx/test/get/ext", "/service/ctx", "ext") -> "test/get".
// An empty extensionPath yields everything after "<serviceContextPath>/".
// A URI that does not carry both anchors in order yields "".
func (r *Rewriter) Rewrite(requestURI, serviceContextPath, extensionPath string) string {
	m := r.pattern(serviceContextPath, extensionPath).FindStringSubmatch(requestURI)
	if m == nil {
		return ""
	}
	return m[1]
}

func (r *Rewriter) pattern(ctx, ext string) *regexp.Regexp {
	key := anchors{ctx: ctx, ext: ext}
	if re, ok := r.patterns.Get(key); ok {
		return re
	}

	expr := "^" + regexp.QuoteMeta(ctx) + "/(.*)/" + regexp.QuoteMeta(ext)
	if ext == "" {
		expr = "^" + regexp.QuoteMeta(ctx) + "/(.*)$"
	}
	re := regexp.MustCompile(expr)
	r.patterns.Add(key, re)
	return re
}

// Len returns the number of cached patterns.
func (r *Rewriter) Len() int {
	return r.patterns.Len()
}
