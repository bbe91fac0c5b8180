package entity

import (
	"github.com/andrewyi/sitemirror/src/enum"
)

// CrawlTarget 一次运行中被接受的页面，NormalizedURL为其唯一标识
// 创建后不再修改
type CrawlTarget struct {
	RootURL         string
	NormalizedURL   string
	Depth           int
	DestinationRoot string
	LocalPath       string // 由pathmapper在发现时计算
	Parent          string // 发现此页面的页面，root为空
}

// 保存了下载的内容
type PageInfo struct {
	URL         string
	StatusCode  int
	ContentType string
	Content     []byte
}

// analyzer提取出的原始href，保持文档顺序并去重
type Index struct {
	Links  []string
	Assets []string
}

// AssetRef 静态资源（css/js），只下载，不再继续遍历
type AssetRef struct {
	RelativeHref      string
	ResolvedLocalPath string
}

// PageResult 处理单个target的结果，仅在处理期间由worker持有
type PageResult struct {
	Target           CrawlTarget
	State            enum.TargetState
	RawContent       []byte
	DiscoveredLinks  []string
	DiscoveredAssets []AssetRef
	BytesWritten     int64
	FilesWritten     int
}
