package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewyi/sitemirror/src/enum"
)

func TestFileLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.yaml")
	l := NewFileLedger(path, "run-1", "https://example.com/")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, l.Record(ctx, Record{URL: "/docs", Kind: enum.KindPage, Level: 1, Parent: "/", State: enum.PageStatePending, LocalPath: "out/docs/index.html", UpdatedAt: now}))
	require.NoError(t, l.Record(ctx, Record{URL: "/", Kind: enum.KindPage, Level: 0, State: enum.PageStatePending, UpdatedAt: now}))
	require.NoError(t, l.Record(ctx, Record{URL: "/docs", Kind: enum.KindPage, Level: 1, State: enum.PageStateSuccess, UpdatedAt: now}))
	require.NoError(t, l.Record(ctx, Record{URL: "/app.js", Kind: enum.KindAsset, Level: 1, Parent: "/", State: enum.PageStateFail, Remark: "http status 404", UpdatedAt: now}))
	require.NoError(t, l.Close())

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "https://example.com/", s.RootURL)
	require.Len(t, s.Pages, 3)

	assert.Equal(t, "/", s.Pages[0].URL)

	docs := s.Pages[1]
	assert.Equal(t, "/docs", docs.URL)
	assert.Equal(t, uint8(enum.PageStateSuccess), docs.State)
	assert.Equal(t, "/", docs.Parent)
	assert.Equal(t, "out/docs/index.html", docs.LocalPath)

	assert.Equal(t, enum.KindAsset, s.Pages[2].Kind)
	assert.Equal(t, "http status 404", s.Pages[2].Remark)
}
