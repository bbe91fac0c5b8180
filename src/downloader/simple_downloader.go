// 简单的http GET下载，带超时、重试以及body大小限制
// 传输错误和5xx会重试，4xx直接失败
// 只跟随同源的重定向，PageInfo.URL为最终响应的url
package downloader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andrewyi/sitemirror/src/entity"
)

const maxRedirects = 10

var (
	ErrBodyTooLarge        = errors.New("response body too large")
	ErrCrossOriginRedirect = errors.New("redirect to another origin")
	ErrTooManyRedirects    = errors.New("too many redirects")
)

type Options struct {
	Timeout      time.Duration
	Retry        uint32
	RetryBackoff time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

type SimpleDownloader struct {
	opts   Options
	client *http.Client
}

func NewSimpleDownloader(opts Options) Downloader {
	if opts.Retry == 0 {
		opts.Retry = 1
	}
	return &SimpleDownloader{
		opts: opts,
		client: &http.Client{
			Timeout:       opts.Timeout,
			CheckRedirect: checkRedirect,
		},
	}
}

func (s *SimpleDownloader) Download(ctx context.Context, url string) (entity.PageInfo, error) {
	var (
		page entity.PageInfo
		err  error
	)

	for attempt := uint32(0); attempt < s.opts.Retry; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return entity.PageInfo{}, &FetchError{URL: url, Err: ctx.Err()}
			case <-time.After(s.opts.RetryBackoff * time.Duration(attempt)):
			}
		}

		var retryable bool
		page, retryable, err = s.get(ctx, url)
		if err == nil || !retryable || ctx.Err() != nil {
			break
		}
	}
	return page, err
}

func (s *SimpleDownloader) get(ctx context.Context, url string) (entity.PageInfo, bool, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return entity.PageInfo{}, false, &FetchError{URL: url, Err: err}
	}
	if s.opts.UserAgent != "" {
		req.Header.Set("User-Agent", s.opts.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		redirect := errors.Is(err, ErrCrossOriginRedirect) || errors.Is(err, ErrTooManyRedirects)
		return entity.PageInfo{}, !redirect, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return entity.PageInfo{}, resp.StatusCode >= 500, &FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	content, err := readAllLimit(resp.Body, s.opts.MaxBodyBytes)
	if err != nil {
		return entity.PageInfo{}, !errors.Is(err, ErrBodyTooLarge), &FetchError{URL: url, Err: err}
	}

	final := url
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return entity.PageInfo{
		URL:         final,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Content:     content,
	}, false, nil
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return ErrTooManyRedirects
	}
	first := via[0].URL
	if !strings.EqualFold(req.URL.Scheme, first.Scheme) || !strings.EqualFold(req.URL.Host, first.Host) {
		return ErrCrossOriginRedirect
	}
	return nil
}

// limit<=0时不限制
func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, ErrBodyTooLarge
	}
	return buf.Bytes(), nil
}
