package downloader

import (
	"context"
	"fmt"

	"github.com/andrewyi/sitemirror/src/entity"
)

type Downloader interface {
	Download(ctx context.Context, url string) (entity.PageInfo, error)
}

// FetchError 网络错误、超时或非2xx响应
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
