package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/andrewyi/sitemirror/src/controller"
	"github.com/andrewyi/sitemirror/src/entity"
	"github.com/andrewyi/sitemirror/src/enum"
	"github.com/andrewyi/sitemirror/src/frontier"
	"github.com/andrewyi/sitemirror/src/ledger"
	"github.com/andrewyi/sitemirror/src/normalizer"
	"github.com/andrewyi/sitemirror/src/pathmapper"
	"github.com/andrewyi/sitemirror/src/routingpool"
)

// ErrRootFailed root页面无法下载或保存，整个运行失败
var ErrRootFailed = errors.New("root page failed")

type Options struct {
	DestinationRoot string
	Worker          uint32
	MaxDepth        int
	MaxPages        int
}

// Stats 一次运行的统计
type Stats struct {
	Pages        int64
	Failed       int64
	Rejected     int64
	FilesWritten int64
	BytesWritten int64
}

type Engine struct {
	opts   Options
	logger *log.Logger

	normalizer *normalizer.Normalizer
	frontier   *frontier.Frontier
	controller controller.Controller
	recorder   *ledger.Recorder

	pages        int64
	failed       int64
	rejected     int64
	filesWritten int64
	bytesWritten int64

	rootOnce sync.Once
	rootErr  error
}

// NewEngine frontier由engine持有，并作为AssetClaimer交给controller
func NewEngine(
	opts Options,
	n *normalizer.Normalizer,
	f *frontier.Frontier,
	c controller.Controller,
	recorder *ledger.Recorder,
	logger *log.Logger,
) *Engine {

	return &Engine{
		opts:       opts,
		logger:     logger,
		normalizer: n,
		frontier:   f,
		controller: c,
		recorder:   recorder,
	}
}

// Run 从root开始遍历，直到frontier为空或ctx被取消
// 只有root失败时返回ErrRootFailed，子页面的错误只记录日志
func (e *Engine) Run(ctx context.Context) error {
	root := entity.CrawlTarget{
		RootURL:         e.normalizer.RootURL(),
		NormalizedURL:   e.normalizer.Root(),
		Depth:           0,
		DestinationRoot: e.opts.DestinationRoot,
	}
	local, err := pathmapper.MapPage(root.NormalizedURL, 0, e.opts.DestinationRoot)
	if err != nil {
		return err
	}
	root.LocalPath = local

	if err := e.frontier.Push(root); err != nil {
		return fmt.Errorf("fail to seed frontier, err: %w", err)
	}
	e.record(ctx, root, enum.PageStatePending, "")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 取消时停止分发，处理中的target通过ctx中止
	go func() {
		<-runCtx.Done()
		e.frontier.Close()
	}()

	pool := routingpool.NewSimpleRoutingPool(runCtx, e.opts.Worker, func(ctx context.Context, id uint32) error {
		for {
			target, ok := e.frontier.Next()
			if !ok {
				return nil
			}
			e.step(ctx, cancel, target)
			e.frontier.Done()
		}
	})
	if err := pool.Start(); err != nil {
		return err
	}
	if err := pool.Stop(); err != nil {
		return err
	}

	stats := e.Stats()
	e.logger.WithFields(log.Fields{
		"pages":    stats.Pages,
		"failed":   stats.Failed,
		"rejected": stats.Rejected,
		"files":    stats.FilesWritten,
	}).Debug("crawl finished")

	if e.rootErr != nil {
		return e.rootErr
	}
	return ctx.Err()
}

func (e *Engine) step(ctx context.Context, cancel context.CancelFunc, target entity.CrawlTarget) {
	logger := e.logger.WithField("url", target.NormalizedURL)

	// 链接在页面保存之前进入frontier，保存失败的页面其链接仍然继续遍历
	result, err := e.controller.Process(ctx, target, func(link string) bool {
		return e.enqueue(ctx, logger, target, link)
	})
	atomic.AddInt64(&e.filesWritten, int64(result.FilesWritten))
	atomic.AddInt64(&e.bytesWritten, result.BytesWritten)

	if err != nil {
		atomic.AddInt64(&e.failed, 1)
		logger.WithError(err).Error("fail to process page")
		e.record(ctx, target, enum.PageStateFail, err.Error())

		if target.Depth == 0 {
			e.rootOnce.Do(func() {
				e.rootErr = fmt.Errorf("%w: %w", ErrRootFailed, err)
			})
			// 已入队的子页面不再分发
			e.frontier.Close()
			cancel()
		}
		return
	}
	atomic.AddInt64(&e.pages, 1)
	e.record(ctx, target, enum.PageStateSuccess, "")
}

// enqueue 返回link是否在本次运行中被frontier接受
// 被拒绝的link只在第一次出现时记录
func (e *Engine) enqueue(ctx context.Context, logger *log.Entry, parent entity.CrawlTarget, link string) bool {
	if e.frontier.Seen(link) {
		return true
	}
	if e.frontier.Rejected(link) {
		return false
	}

	depth := parent.Depth + 1
	local, err := pathmapper.MapPage(link, depth, e.opts.DestinationRoot)
	if err != nil {
		if e.frontier.Reject(link) {
			atomic.AddInt64(&e.rejected, 1)
			logger.WithError(err).WithField("link", link).Warn("reject link")
		}
		return false
	}

	child := entity.CrawlTarget{
		RootURL:         parent.RootURL,
		NormalizedURL:   link,
		Depth:           depth,
		DestinationRoot: parent.DestinationRoot,
		LocalPath:       local,
		Parent:          parent.NormalizedURL,
	}

	var conflict *pathmapper.PathConflictError
	switch err := e.frontier.Push(child); {
	case err == nil:
		e.record(ctx, child, enum.PageStatePending, "")
		return true
	case errors.Is(err, frontier.ErrSeen):
		return true
	case errors.As(err, &conflict):
		atomic.AddInt64(&e.rejected, 1)
		logger.WithError(err).WithField("link", link).Warn("reject link")
	case errors.Is(err, frontier.ErrLimit), errors.Is(err, frontier.ErrTooDeep):
		logger.WithError(err).WithField("link", link).Debug("skip link")
	}
	return false
}

func (e *Engine) record(ctx context.Context, t entity.CrawlTarget, state uint8, remark string) {
	// ledger使用独立的ctx，取消后仍然记录最终状态
	if err := e.recorder.Page(context.WithoutCancel(ctx), t, state, remark); err != nil {
		e.logger.WithError(err).WithField("url", t.NormalizedURL).Warn("fail to record ledger entry")
	}
}

func (e *Engine) Stats() Stats {
	return Stats{
		Pages:        atomic.LoadInt64(&e.pages),
		Failed:       atomic.LoadInt64(&e.failed),
		Rejected:     atomic.LoadInt64(&e.rejected),
		FilesWritten: atomic.LoadInt64(&e.filesWritten),
		BytesWritten: atomic.LoadInt64(&e.bytesWritten),
	}
}
