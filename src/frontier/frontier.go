// Package frontier 一次运行内唯一的共享可变状态:
// 已访问集合、待处理队列(FIFO)、已认领的资源、本地路径的占用表以及被拒绝的url，全部由同一把锁保护
package frontier

import (
	"errors"
	"sync"

	"github.com/andrewyi/sitemirror/src/entity"
	"github.com/andrewyi/sitemirror/src/pathmapper"
)

var (
	ErrSeen     = errors.New("already visited")
	ErrRejected = errors.New("already rejected")
	ErrClosed   = errors.New("frontier closed")
	ErrLimit    = errors.New("page limit reached")
	ErrTooDeep  = errors.New("max depth exceeded")
)

type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	visited  map[string]struct{}
	rejected map[string]struct{}
	assets   map[string]struct{}
	claims   map[string]string // local path -> normalized url
	queue    []entity.CrawlTarget

	inflight int
	closed   bool

	maxDepth int
	maxPages int
}

// New maxDepth/maxPages为0时不限制
func New(maxDepth, maxPages int) *Frontier {
	f := &Frontier{
		visited:  make(map[string]struct{}),
		rejected: make(map[string]struct{}),
		assets:   make(map[string]struct{}),
		claims:   make(map[string]string),
		maxDepth: maxDepth,
		maxPages: maxPages,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push 检查并插入已访问集合、占用本地路径、入队，三者为同一原子步骤
// 路径冲突的url会被记住，之后的Push直接返回ErrRejected
func (f *Frontier) Push(t entity.CrawlTarget) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if _, ok := f.visited[t.NormalizedURL]; ok {
		return ErrSeen
	}
	if _, ok := f.rejected[t.NormalizedURL]; ok {
		return ErrRejected
	}
	if f.maxDepth > 0 && t.Depth > f.maxDepth {
		return ErrTooDeep
	}
	if f.maxPages > 0 && len(f.visited) >= f.maxPages {
		return ErrLimit
	}
	if err := f.claimLocked(t.LocalPath, t.NormalizedURL); err != nil {
		f.rejected[t.NormalizedURL] = struct{}{}
		return err
	}

	f.visited[t.NormalizedURL] = struct{}{}
	f.queue = append(f.queue, t)
	f.cond.Signal()
	return nil
}

// ClaimAsset 每个资源在一次运行中只会被认领一次
func (f *Frontier) ClaimAsset(ref entity.AssetRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.assets[ref.RelativeHref]; ok {
		return ErrSeen
	}
	if err := f.claimLocked(ref.ResolvedLocalPath, ref.RelativeHref); err != nil {
		return err
	}
	f.assets[ref.RelativeHref] = struct{}{}
	return nil
}

func (f *Frontier) claimLocked(localPath, normalizedURL string) error {
	if localPath == "" {
		return nil
	}
	if owner, ok := f.claims[localPath]; ok && owner != normalizedURL {
		return &pathmapper.PathConflictError{
			URL:    normalizedURL,
			Path:   localPath,
			Reason: "already claimed by " + owner,
		}
	}
	f.claims[localPath] = normalizedURL
	return nil
}

// Next 阻塞直到取得下一个target
// 队列为空且没有处理中的target(运行结束)，或frontier被关闭时返回false
func (f *Frontier) Next() (entity.CrawlTarget, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 && f.inflight > 0 && !f.closed {
		f.cond.Wait()
	}
	if f.closed || len(f.queue) == 0 {
		f.cond.Broadcast()
		return entity.CrawlTarget{}, false
	}

	t := f.queue[0]
	f.queue[0] = entity.CrawlTarget{}
	f.queue = f.queue[1:]
	f.inflight++
	return t, true
}

// Done 标记一个由Next取出的target处理完毕
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inflight--
	if f.inflight == 0 && len(f.queue) == 0 {
		f.cond.Broadcast()
	}
}

// Close 停止分发，等待中的Next全部返回false，已访问集合保持不变
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// Reject 记住无法映射到本地路径的url，第一次记录时返回true
func (f *Frontier) Reject(normalizedURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rejected[normalizedURL]; ok {
		return false
	}
	f.rejected[normalizedURL] = struct{}{}
	return true
}

func (f *Frontier) Rejected(normalizedURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rejected[normalizedURL]
	return ok
}

func (f *Frontier) Seen(normalizedURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[normalizedURL]
	return ok
}

func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func (f *Frontier) Visited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}
