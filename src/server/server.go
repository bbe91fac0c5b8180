package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/andrewyi/sitemirror/src/analyzer"
	"github.com/andrewyi/sitemirror/src/config"
	"github.com/andrewyi/sitemirror/src/controller"
	"github.com/andrewyi/sitemirror/src/core"
	"github.com/andrewyi/sitemirror/src/dbstorage"
	"github.com/andrewyi/sitemirror/src/downloader"
	"github.com/andrewyi/sitemirror/src/filestorage"
	"github.com/andrewyi/sitemirror/src/frontier"
	"github.com/andrewyi/sitemirror/src/ledger"
	"github.com/andrewyi/sitemirror/src/normalizer"
	"github.com/andrewyi/sitemirror/src/util"
)

const defaultLedgerFile = ".sitemirror/ledger.yaml"

var ErrMissingRootURL = errors.New("root url is required")

type Server struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger
	config *config.Config

	engine *core.Engine
	ledger ledger.Ledger
}

func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Server) initLog() {
	var logger = log.New()
	logger.SetFormatter(&log.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	if s.config.Log.Context {
		logger.SetReportCaller(true)
	}

	if logLevel, err := log.ParseLevel(s.config.Log.Level); err != nil {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(logLevel)
	}
	s.logger = logger
}

// Start 是cli的action，返回错误时进程以非0状态退出
func (s *Server) Start(ctx *cli.Context) error {
	var cfg = &config.Config{}
	if err := util.ReadConfig(ctx.String("config"), config.Defaults(), cfg); err != nil {
		return fmt.Errorf("fail to load config, err: %w", err)
	}
	if err := applyFlags(ctx, cfg); err != nil {
		return err
	}
	s.config = cfg

	s.initLog()

	if err := s.Setup(); err != nil {
		return err
	}

	go s.wait()
	defer s.Stop()

	return s.Run()
}

// Setup 按照配置组装各组件
func (s *Server) Setup() error {
	cfg := s.config
	if s.logger == nil {
		s.initLog()
	}

	n, err := normalizer.NewNormalizer(cfg.Mirror.RootURL)
	if err != nil {
		return fmt.Errorf("fail to parse root url, err: %w", err)
	}

	file := filestorage.NewSimpleFileStorage()
	if err := file.EnsureDir(cfg.Mirror.Destination); err != nil {
		return fmt.Errorf("fail to create destination, err: %w", err)
	}

	runID := uuid.NewString()
	l, err := s.openLedger(runID, n.RootURL())
	if err != nil {
		return fmt.Errorf("fail to open ledger, err: %w", err)
	}
	s.ledger = l
	recorder := ledger.NewRecorder(l, runID)

	f := frontier.New(cfg.Core.MaxDepth, cfg.Core.MaxPages)

	d := downloader.NewSimpleDownloader(downloader.Options{
		Timeout:      cfg.Downloader.Timeout,
		Retry:        cfg.Downloader.Retry,
		RetryBackoff: cfg.Downloader.RetryBackoff,
		UserAgent:    cfg.Downloader.UserAgent,
		MaxBodyBytes: cfg.Downloader.MaxBodyBytes,
	})

	c := controller.NewSimpleController(
		controller.Options{
			DestinationRoot: cfg.Mirror.Destination,
			ConvertLinks:    cfg.Mirror.ConvertLinks,
		},
		n, d, analyzer.NewSimpleAnalyzer(), file, f, recorder, s.logger,
	)

	s.engine = core.NewEngine(
		core.Options{
			DestinationRoot: cfg.Mirror.Destination,
			Worker:          cfg.Core.Worker,
			MaxDepth:        cfg.Core.MaxDepth,
			MaxPages:        cfg.Core.MaxPages,
		},
		n, f, c, recorder, s.logger,
	)

	s.logger.WithFields(log.Fields{
		"root":        n.RootURL(),
		"destination": cfg.Mirror.Destination,
		"workers":     cfg.Core.Worker,
		"run_id":      runID,
	}).Info("start mirror")
	return nil
}

func (s *Server) Run() error {
	err := s.engine.Run(s.ctx)

	stats := s.engine.Stats()
	s.logger.WithFields(log.Fields{
		"pages":   stats.Pages,
		"failed":  stats.Failed,
		"written": stats.FilesWritten,
		"bytes":   humanize.Bytes(uint64(stats.BytesWritten)),
	}).Info("mirror done")

	if errors.Is(err, context.Canceled) {
		s.logger.Warn("mirror interrupted")
	}
	return err
}

func (s *Server) openLedger(runID, rootURL string) (ledger.Ledger, error) {
	cfg := s.config
	switch cfg.Ledger.Driver {
	case "", "none":
		return ledger.Nop{}, nil
	case "file":
		p := cfg.Ledger.Path
		if p == "" {
			p = filepath.Join(cfg.Mirror.Destination, filepath.FromSlash(defaultLedgerFile))
		}
		return ledger.NewFileLedger(p, runID, rootURL), nil
	case "postgres":
		return dbstorage.NewSimpleDBStorage(cfg.Database.URL)
	}
	return nil, fmt.Errorf("unsupported ledger driver %q", cfg.Ledger.Driver)
}

func (s *Server) wait() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case <-c:
		s.logger.Warn("interrupt signal, server gonna stop")
		s.cancel()
	case <-s.ctx.Done():
	}
}

func (s *Server) Stop() {
	s.cancel()
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			s.logger.WithError(err).Error("fail to close ledger")
		}
	}
}

// applyFlags 命令行参数优先于配置文件
func applyFlags(ctx *cli.Context, cfg *config.Config) error {
	if ctx.NArg() > 0 {
		cfg.Mirror.RootURL = ctx.Args().Get(0)
	}
	if ctx.NArg() > 1 {
		cfg.Mirror.Destination = ctx.Args().Get(1)
	}
	if cfg.Mirror.RootURL == "" {
		return ErrMissingRootURL
	}
	if cfg.Mirror.Destination == "" {
		domain, err := util.GetDomain(cfg.Mirror.RootURL)
		if err != nil || domain == "" {
			return fmt.Errorf("fail to derive destination from %q", cfg.Mirror.RootURL)
		}
		cfg.Mirror.Destination = domain
	}

	if ctx.IsSet("workers") {
		cfg.Core.Worker = uint32(ctx.Int("workers"))
	}
	if ctx.IsSet("max-depth") {
		cfg.Core.MaxDepth = ctx.Int("max-depth")
	}
	if ctx.IsSet("max-pages") {
		cfg.Core.MaxPages = ctx.Int("max-pages")
	}
	if ctx.IsSet("timeout") {
		cfg.Downloader.Timeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("convert-links") {
		cfg.Mirror.ConvertLinks = ctx.Bool("convert-links")
	}
	if ctx.IsSet("log-level") {
		cfg.Log.Level = ctx.String("log-level")
	}
	if p := ctx.String("state-file"); p != "" {
		cfg.Ledger.Driver = "file"
		cfg.Ledger.Path = p
	}
	return nil
}
