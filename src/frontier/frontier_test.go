package frontier

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewyi/sitemirror/src/entity"
	"github.com/andrewyi/sitemirror/src/pathmapper"
)

func target(u string, depth int) entity.CrawlTarget {
	return entity.CrawlTarget{NormalizedURL: u, Depth: depth, LocalPath: "out" + u + "/index.html"}
}

func TestPushDeduplicates(t *testing.T) {
	f := New(0, 0)
	require.NoError(t, f.Push(target("/a", 0)))
	assert.ErrorIs(t, f.Push(target("/a", 1)), ErrSeen)
	assert.True(t, f.Seen("/a"))
	assert.False(t, f.Seen("/b"))
	assert.Equal(t, 1, f.Len())
}

func TestConcurrentPushClaimsOnce(t *testing.T) {
	f := New(0, 0)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Push(target("/same", 1)) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, f.Visited())
}

func TestFIFOOrder(t *testing.T) {
	f := New(0, 0)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.Push(target(fmt.Sprintf("/p%d", i), 1)))
	}
	for i := 0; i < 3; i++ {
		got, ok := f.Next()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("/p%d", i), got.NormalizedURL)
	}
}

func TestLimits(t *testing.T) {
	f := New(2, 2)
	assert.ErrorIs(t, f.Push(target("/deep", 3)), ErrTooDeep)
	require.NoError(t, f.Push(target("/a", 0)))
	require.NoError(t, f.Push(target("/b", 2)))
	assert.ErrorIs(t, f.Push(target("/c", 1)), ErrLimit)
}

func TestPathClaims(t *testing.T) {
	f := New(0, 0)
	require.NoError(t, f.Push(entity.CrawlTarget{NormalizedURL: "/a.html", LocalPath: "out/a.html"}))

	err := f.Push(entity.CrawlTarget{NormalizedURL: "/a.php", LocalPath: "out/a.html"})
	var conflict *pathmapper.PathConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "/a.php", conflict.URL)
	assert.False(t, f.Seen("/a.php"))
	assert.True(t, f.Rejected("/a.php"))
	assert.ErrorIs(t, f.Push(entity.CrawlTarget{NormalizedURL: "/a.php", LocalPath: "out/a.html"}), ErrRejected)

	ref := entity.AssetRef{RelativeHref: "/app.js", ResolvedLocalPath: "out/app.js"}
	require.NoError(t, f.ClaimAsset(ref))
	assert.ErrorIs(t, f.ClaimAsset(ref), ErrSeen)

	err = f.ClaimAsset(entity.AssetRef{RelativeHref: "/a.html?v=2", ResolvedLocalPath: "out/a.html"})
	assert.True(t, errors.As(err, &conflict))
}

func TestReject(t *testing.T) {
	f := New(0, 0)
	assert.True(t, f.Reject("/../outside"))
	assert.False(t, f.Reject("/../outside"))
	assert.True(t, f.Rejected("/../outside"))
	assert.ErrorIs(t, f.Push(target("/../outside", 1)), ErrRejected)
	assert.Equal(t, 0, f.Visited())
}

func TestNextTerminatesWhenDrained(t *testing.T) {
	f := New(0, 0)
	require.NoError(t, f.Push(target("/", 0)))

	root, ok := f.Next()
	require.True(t, ok)

	done := make(chan bool)
	go func() {
		_, ok := f.Next()
		done <- ok
	}()

	// 处理中的root产生一个子页面，等待中的worker应当取到它
	require.NoError(t, f.Push(target("/child", root.Depth+1)))
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("waiting worker did not receive child")
	}

	go func() {
		_, ok := f.Next()
		done <- ok
	}()
	f.Done()
	f.Done()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after frontier drained")
	}
}

func TestClose(t *testing.T) {
	f := New(0, 0)
	require.NoError(t, f.Push(target("/", 0)))
	_, ok := f.Next()
	require.True(t, ok)

	done := make(chan bool)
	go func() {
		_, ok := f.Next()
		done <- ok
	}()
	f.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Close")
	}
	assert.ErrorIs(t, f.Push(target("/late", 1)), ErrClosed)
	assert.True(t, f.Seen("/"))
}
