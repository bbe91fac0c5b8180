// Package pathmapper 由规范化url推导镜像中的本地文件路径
// 所有函数都是纯函数，冲突检测(同一路径被不同url占用)由frontier负责
package pathmapper

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

const IndexFile = "index.html"

// 视为页面的扩展名，统一改写为.html
var pageExtensions = map[string]struct{}{
	".html":  {},
	".htm":   {},
	".php":   {},
	".asp":   {},
	".aspx":  {},
	".jsp":   {},
	".shtml": {},
	".xhtml": {},
}

const (
	ReasonEscape    = "escapes destination"
	ReasonDirectory = "names a directory"
)

// PathConflictError 映射路径越界、不可用，或已被其他url占用
type PathConflictError struct {
	URL    string
	Path   string
	Reason string
}

func (e *PathConflictError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("path conflict for %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("path conflict for %s -> %s: %s", e.URL, e.Path, e.Reason)
}

// IsPageExtension 判断扩展名(包含".")是否为页面
func IsPageExtension(ext string) bool {
	_, ok := pageExtensions[strings.ToLower(ext)]
	return ok
}

// MapPage 页面映射规则:
// depth为0(root)固定为<dest>/index.html；已知页面扩展名替换为.html；其余追加index.html
func MapPage(normalizedURL string, depth int, destinationRoot string) (string, error) {
	if depth == 0 {
		return filepath.Join(destinationRoot, IndexFile), nil
	}

	p, err := cleanPath(normalizedURL)
	if err != nil {
		return "", err
	}

	switch ext := path.Ext(p); {
	case strings.HasSuffix(p, "/"):
		p += IndexFile
	case IsPageExtension(ext):
		p = strings.TrimSuffix(p, ext) + ".html"
	default:
		p += "/" + IndexFile
	}

	return join(normalizedURL, destinationRoot, p)
}

// MapAsset 资源直接拼接，不改写扩展名
func MapAsset(normalizedURL string, destinationRoot string) (string, error) {
	p, err := cleanPath(normalizedURL)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(p, "/") {
		return "", &PathConflictError{URL: normalizedURL, Reason: ReasonDirectory}
	}
	return join(normalizedURL, destinationRoot, p)
}

// cleanPath 去掉query并解码，拒绝任何".."片段
func cleanPath(normalizedURL string) (string, error) {
	raw := normalizedURL
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	p, err := url.PathUnescape(raw)
	if err != nil {
		return "", &PathConflictError{URL: normalizedURL, Reason: err.Error()}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || strings.ContainsAny(seg, "\\\x00") {
			return "", &PathConflictError{URL: normalizedURL, Reason: ReasonEscape}
		}
	}
	return p, nil
}

func join(normalizedURL, destinationRoot, p string) (string, error) {
	full := filepath.Join(destinationRoot, filepath.FromSlash(strings.TrimPrefix(p, "/")))
	rel, err := filepath.Rel(destinationRoot, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &PathConflictError{URL: normalizedURL, Path: full, Reason: ReasonEscape}
	}
	return full, nil
}
