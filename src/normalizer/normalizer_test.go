package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	const root = "https://example.com/"

	tests := []struct {
		name     string
		page     string
		href     string
		want     string
		accepted bool
	}{
		{"self anchor", root, "#", "", false},
		{"pure fragment", root, "#section2", "", false},
		{"empty", root, "   ", "", false},
		{"fragment stripped", root, "/page#section2", "/page", true},
		{"absolute same origin", root, "https://example.com/docs/guide", "/docs/guide", true},
		{"absolute other origin", root, "https://other-domain.example/x", "", false},
		{"other scheme same host", root, "http://example.com/x", "", false},
		{"default port elided", root, "https://EXAMPLE.com:443/x", "/x", true},
		{"relative to current page", "https://example.com/docs/guide/", "intro.php", "/docs/guide/intro.php", true},
		{"dot segments", "https://example.com/docs/guide/a.html", "../b.html", "/docs/b.html", true},
		{"leading slash", "https://example.com/docs/guide/a.html", "/c", "/c", true},
		{"query kept", root, "/search?q=go#top", "/search?q=go", true},
		{"scheme relative external", root, "//cdn.example.net/app.js", "", false},
		{"mailto", root, "mailto:me@example.com", "", false},
		{"javascript", root, "javascript:void(0)", "", false},
		{"root itself", root, "https://example.com", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(root, tt.page, tt.href)
			assert.Equal(t, tt.accepted, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizerSubdirectoryRoot(t *testing.T) {
	n, err := NewNormalizer("https://example.com/static/Docs/")
	require.NoError(t, err)

	assert.Equal(t, "/", n.Root())

	got, ok := n.Normalize("https://example.com/static/Docs/", "https://example.com/static/Docs/api/module.html")
	require.True(t, ok)
	assert.Equal(t, "/api/module.html", got)
	assert.Equal(t, "https://example.com/static/Docs/api/module.html", n.Resolve(got))

	got, ok = n.Normalize("https://example.com/static/Docs/", "/blog/")
	require.True(t, ok)
	assert.Equal(t, "/../../blog/", got)
}

func TestNormalizerRootWithFile(t *testing.T) {
	n, err := NewNormalizer("https://example.com/docs/index.html#top")
	require.NoError(t, err)

	assert.Equal(t, "/index.html", n.Root())
	assert.Equal(t, "https://example.com/docs/index.html", n.Resolve(n.Root()))
	assert.Equal(t, "https://example.com/docs/index.html", n.RootURL())
}

func TestNormalizeDedupKey(t *testing.T) {
	n, err := NewNormalizer("https://example.com/")
	require.NoError(t, err)

	hrefs := []string{
		"/docs/guide",
		"https://example.com/docs/guide",
		"docs/guide#install",
		"./docs/./guide",
		"/docs/x/../guide",
	}
	seen := make(map[string]struct{})
	for _, h := range hrefs {
		got, ok := n.Normalize("https://example.com/", h)
		require.True(t, ok, h)
		seen[got] = struct{}{}
	}
	assert.Len(t, seen, 1)
}

func TestNewNormalizerRejectsInvalidRoot(t *testing.T) {
	for _, root := range []string{"", "example.com", "ftp://example.com/", "/relative"} {
		_, err := NewNormalizer(root)
		assert.Error(t, err, root)
	}
}
