package pathrewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		ctx  string
		ext  string
		want string
	}{
		{"between anchors", "/service/ctx/test/get/ext", "/service/ctx", "ext", "test/get"},
		{"missing extension", "/service/ctx/test/get", "/service/ctx", "ext", ""},
		{"missing context", "/other/test/get/ext", "/service/ctx", "ext", ""},
		{"single segment", "/service/myapp/foo/service.json", "/service/myapp", "service.json", "foo"},
		{"nested", "/service/myapp/foo/bar/service.json", "/service/myapp", "service.json", "foo/bar"},
		{"escaped dot", "/service/myapp/foo/bar/serviceXjson", "/service/myapp", "service.json", ""},
		{"escaped context", "/a+b/(x)/foo/e.x", "/a+b/(x)", "e.x", "foo"},
		{"context not at start", "/x/service/ctx/a/ext", "/service/ctx", "ext", ""},
		{"empty extension", "/service/ctx/a/b", "/service/ctx", "", "a/b"},
		{"trailing extension text", "/service/ctx/a/ext?x=1", "/service/ctx", "ext", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rewrite(tt.uri, tt.ctx, tt.ext))
		})
	}
}

func TestRewriter_CachesPatternsPerAnchors(t *testing.T) {
	r := New(2)

	assert.Equal(t, "a", r.Rewrite("/c/a/e", "/c", "e"))
	assert.Equal(t, "b", r.Rewrite("/c/b/e", "/c", "e"))
	assert.Equal(t, 1, r.Len())

	r.Rewrite("/d/a/e", "/d", "e")
	r.Rewrite("/f/a/e", "/f", "e")
	assert.Equal(t, 2, r.Len())
}

func TestNew_DefaultSize(t *testing.T) {
	assert.NotNil(t, New(0))
}
