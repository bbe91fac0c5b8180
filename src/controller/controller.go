package controller

import (
	"context"

	"github.com/andrewyi/sitemirror/src/entity"
)

type Controller interface {
	// Process 处理单个target，返回规范化后的子页面链接
	// 每个子页面链接在保存页面之前交给schedule
	Process(ctx context.Context, target entity.CrawlTarget, schedule Scheduler) (entity.PageResult, error)
}

// Scheduler 将链接交给frontier，返回该链接在本次运行中是否被接受
// 只有被接受的链接会在convert_links时改写
type Scheduler func(link string) bool

// AssetClaimer 保证每个资源在一次运行中只被处理一次
type AssetClaimer interface {
	ClaimAsset(ref entity.AssetRef) error
}
