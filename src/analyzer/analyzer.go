package analyzer

import (
	"fmt"

	"github.com/andrewyi/sitemirror/src/entity"
)

type Analyzer interface {
	// Index 提取超链接和静态资源的原始href，不做规范化
	Index(content []byte, pageURL string) (entity.Index, error)
	// Rewrite 用fn改写超链接与资源引用，fn返回false时保持原值
	Rewrite(content []byte, fn func(raw string) (string, bool)) ([]byte, error)
}

// ParseError 页面无法解析，调用方按照没有任何链接处理
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
