package enum

// 账本中记录的page状态，与原始下载状态(scanned/downloaded)对应
// 当前不会针对已经下载好、或下载失败的页面再次进行下载，即只操作一次
const (
	PageStatePending = 0
	PageStateSuccess = 1
	PageStateFail    = 2
)

const (
	KindPage  = "page"
	KindAsset = "asset"
)

// TargetState 单个CrawlTarget在一次运行中的状态
type TargetState uint8

const (
	StateDiscovered TargetState = iota
	StateFetching
	StateIndexed
	StatePersisted
	StateDone
	StateFailed
)

func (s TargetState) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateFetching:
		return "fetching"
	case StateIndexed:
		return "indexed"
	case StatePersisted:
		return "persisted"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

