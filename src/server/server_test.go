package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewyi/sitemirror/src/config"
	"github.com/andrewyi/sitemirror/src/core"
	"github.com/andrewyi/sitemirror/src/ledger"
	"github.com/andrewyi/sitemirror/src/util"
)

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s := NewServer()
	s.config = cfg
	s.logger = log.New()
	s.logger.SetOutput(io.Discard)
	return s
}

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, util.ReadConfig("", config.Defaults(), cfg))
	return cfg
}

func TestServerRun(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<a href="/about.php">about</a>`))
	})
	mux.HandleFunc("/about.php", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`about`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "mirror")
	cfg := defaultConfig(t)
	cfg.Mirror.RootURL = srv.URL
	cfg.Mirror.Destination = dest
	cfg.Ledger.Driver = "file"

	s := testServer(t, cfg)
	require.NoError(t, s.Setup())
	require.NoError(t, s.Run())
	s.Stop()

	assert.FileExists(t, filepath.Join(dest, "index.html"))
	assert.FileExists(t, filepath.Join(dest, "about.html"))

	state, err := ledger.Load(filepath.Join(dest, ".sitemirror", "ledger.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, state.RunID)
	assert.Len(t, state.Pages, 2)
}

func TestServerRootFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	cfg := defaultConfig(t)
	cfg.Mirror.RootURL = srv.URL
	cfg.Mirror.Destination = t.TempDir()
	cfg.Downloader.Retry = 1

	s := testServer(t, cfg)
	require.NoError(t, s.Setup())
	err := s.Run()
	s.Stop()
	assert.ErrorIs(t, err, core.ErrRootFailed)
}

func TestServerSetupErrors(t *testing.T) {
	t.Run("invalid root", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Mirror.RootURL = "not a url"
		cfg.Mirror.Destination = t.TempDir()
		assert.Error(t, testServer(t, cfg).Setup())
	})

	t.Run("unknown ledger driver", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Mirror.RootURL = "https://example.com/"
		cfg.Mirror.Destination = t.TempDir()
		cfg.Ledger.Driver = "mongo"
		assert.Error(t, testServer(t, cfg).Setup())
	})
}

func TestServerCancelled(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Mirror.RootURL = "https://example.com/"
	cfg.Mirror.Destination = t.TempDir()

	s := testServer(t, cfg)
	require.NoError(t, s.Setup())
	s.cancel()
	assert.Error(t, s.Run())
	s.Stop()

	_, err := os.Stat(filepath.Join(cfg.Mirror.Destination, "index.html"))
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, s.ctx.Err(), context.Canceled)
}
