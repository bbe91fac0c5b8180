package controller

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/andrewyi/sitemirror/src/analyzer"
	"github.com/andrewyi/sitemirror/src/downloader"
	"github.com/andrewyi/sitemirror/src/entity"
	"github.com/andrewyi/sitemirror/src/enum"
	"github.com/andrewyi/sitemirror/src/filestorage"
	"github.com/andrewyi/sitemirror/src/frontier"
	"github.com/andrewyi/sitemirror/src/ledger"
	"github.com/andrewyi/sitemirror/src/normalizer"
	"github.com/andrewyi/sitemirror/src/pathmapper"
)

type Options struct {
	DestinationRoot string
	ConvertLinks    bool
}

type SimpleController struct {
	logger *log.Logger
	opts   Options

	normalizer *normalizer.Normalizer
	downloader downloader.Downloader
	analyzer   analyzer.Analyzer
	file       filestorage.FileStorage
	claimer    AssetClaimer
	recorder   *ledger.Recorder
}

func NewSimpleController(
	opts Options,
	n *normalizer.Normalizer,
	d downloader.Downloader,
	a analyzer.Analyzer,
	f filestorage.FileStorage,
	claimer AssetClaimer,
	recorder *ledger.Recorder,
	logger *log.Logger,
) Controller {

	return &SimpleController{
		logger:     logger,
		opts:       opts,
		normalizer: n,
		downloader: d,
		analyzer:   a,
		file:       f,
		claimer:    claimer,
		recorder:   recorder,
	}
}

func (c *SimpleController) Process(ctx context.Context, target entity.CrawlTarget, schedule Scheduler) (entity.PageResult, error) {
	result := entity.PageResult{Target: target, State: enum.StateDiscovered}
	pageURL := c.normalizer.Resolve(target.NormalizedURL)
	logger := c.logger.WithField("url", target.NormalizedURL).WithField("depth", target.Depth)

	c.transition(logger, &result, enum.StateFetching)
	page, err := c.downloader.Download(ctx, pageURL)
	if err != nil {
		c.transition(logger, &result, enum.StateFailed)
		return result, err
	}
	result.RawContent = page.Content

	// 重定向之后，相对链接以最终响应的url为准
	base := pageURL
	if page.URL != "" && page.URL != pageURL {
		if _, ok := c.normalizer.Normalize("", page.URL); !ok {
			c.transition(logger, &result, enum.StateFailed)
			return result, &downloader.FetchError{URL: pageURL, Err: downloader.ErrCrossOriginRedirect}
		}
		base = page.URL
		logger.WithField("final", page.URL).Debug("page redirected")
	}

	var index entity.Index
	if isHTML(page.ContentType) {
		index, err = c.analyzer.Index(page.Content, base)
		if err != nil {
			// 解析失败不影响保存，按没有任何链接处理
			logger.WithError(err).Warn("fail to index page, treat as leaf")
			index = entity.Index{}
		}
	}
	c.transition(logger, &result, enum.StateIndexed)

	// link -> 是否被frontier接受
	links := make(map[string]bool)
	for _, raw := range index.Links {
		n, ok := c.normalizer.Normalize(base, raw)
		if !ok {
			continue
		}
		if _, exists := links[n]; exists {
			continue
		}
		links[n] = schedule == nil || schedule(n)
		result.DiscoveredLinks = append(result.DiscoveredLinks, n)
	}
	logger.WithField("links", len(result.DiscoveredLinks)).Info("found links")

	assets := c.processAssets(ctx, logger, target, base, index.Assets, links, &result)
	logger.WithField("assets", len(result.DiscoveredAssets)).Info("found static files")

	content := page.Content
	if c.opts.ConvertLinks && len(index.Links)+len(index.Assets) > 0 {
		converted, err := c.analyzer.Rewrite(content, c.linkConverter(target, base, links, assets))
		if err != nil {
			logger.WithError(err).Warn("fail to convert links, store original content")
		} else {
			content = converted
		}
	}

	written, err := c.file.WriteFileIfAbsent(target.LocalPath, content)
	if err != nil {
		c.transition(logger, &result, enum.StateFailed)
		return result, err
	}
	if written {
		result.FilesWritten++
		result.BytesWritten += int64(len(content))
		logger.WithField("path", target.LocalPath).Debug("page written")
	} else {
		logger.WithField("path", target.LocalPath).Debug("page exists, skip writing")
	}
	c.transition(logger, &result, enum.StatePersisted)

	c.transition(logger, &result, enum.StateDone)
	return result, nil
}

// processAssets 下载并保存资源，资源失败不影响页面本身
// 返回本页面中已被认领(本页或之前的页面)的资源集合
func (c *SimpleController) processAssets(
	ctx context.Context, logger *log.Entry, target entity.CrawlTarget,
	pageURL string, raws []string, links map[string]bool, result *entity.PageResult) map[string]struct{} {

	assets := make(map[string]struct{})
	for _, raw := range raws {
		n, ok := c.normalizer.Normalize(pageURL, raw)
		if !ok {
			continue
		}
		// link标签也可能指向页面
		if _, isLink := links[n]; isLink {
			continue
		}
		if _, done := assets[n]; done {
			continue
		}

		p, err := pathmapper.MapAsset(n, c.opts.DestinationRoot)
		if err != nil {
			logger.WithError(err).WithField("asset", n).Warn("reject asset")
			continue
		}
		ref := entity.AssetRef{RelativeHref: n, ResolvedLocalPath: p}

		if err := c.claimer.ClaimAsset(ref); err != nil {
			if errors.Is(err, frontier.ErrSeen) {
				assets[n] = struct{}{}
			} else {
				logger.WithError(err).WithField("asset", n).Warn("reject asset")
			}
			continue
		}
		assets[n] = struct{}{}
		result.DiscoveredAssets = append(result.DiscoveredAssets, ref)

		written, size, err := c.saveAsset(ctx, ref)
		if err != nil {
			logger.WithError(err).WithField("asset", n).Error("fail to save asset")
			c.record(logger, c.recorder.Asset(ctx, ref, target, enum.PageStateFail, err.Error()))
			continue
		}
		if written {
			result.FilesWritten++
			result.BytesWritten += size
		}
		c.record(logger, c.recorder.Asset(ctx, ref, target, enum.PageStateSuccess, ""))
	}
	return assets
}

func (c *SimpleController) saveAsset(ctx context.Context, ref entity.AssetRef) (bool, int64, error) {
	// 已存在的文件无需再次下载
	if c.file.Exists(ref.ResolvedLocalPath) {
		return false, 0, nil
	}
	page, err := c.downloader.Download(ctx, c.normalizer.Resolve(ref.RelativeHref))
	if err != nil {
		return false, 0, err
	}
	written, err := c.file.WriteFileIfAbsent(ref.ResolvedLocalPath, page.Content)
	return written, int64(len(page.Content)), err
}

// linkConverter 将内部链接改写为镜像文件之间的相对路径，fragment保留
// 未被frontier接受的页面链接保持原样
func (c *SimpleController) linkConverter(
	target entity.CrawlTarget, pageURL string, links map[string]bool, assets map[string]struct{}) func(string) (string, bool) {
	dir := filepath.Dir(target.LocalPath)

	return func(raw string) (string, bool) {
		n, ok := c.normalizer.Normalize(pageURL, raw)
		if !ok {
			return "", false
		}
		var fragment string
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			fragment = raw[i:]
		}

		var (
			local string
			err   error
		)
		switch _, isAsset := assets[n]; {
		case isAsset:
			local, err = pathmapper.MapAsset(n, c.opts.DestinationRoot)
		case !links[n]:
			return "", false
		case n == c.normalizer.Root():
			local, err = pathmapper.MapPage(n, 0, c.opts.DestinationRoot)
		default:
			local, err = pathmapper.MapPage(n, target.Depth+1, c.opts.DestinationRoot)
		}
		if err != nil {
			return "", false
		}

		rel, err := filepath.Rel(dir, local)
		if err != nil {
			return "", false
		}
		return filepath.ToSlash(rel) + fragment, true
	}
}

func (c *SimpleController) transition(logger *log.Entry, result *entity.PageResult, state enum.TargetState) {
	logger.WithField("from", result.State).WithField("to", state).Debug("target state")
	result.State = state
}

func (c *SimpleController) record(logger *log.Entry, err error) {
	if err != nil {
		logger.WithError(err).Warn("fail to record ledger entry")
	}
}

// 没有声明content type时按html处理
func isHTML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return ct == "" || strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
