// Package normalizer 将页面中的原始href规范化为相对root目录的形式，作为去重key
// 规范化形式以"/"开头，例如 /docs/guide、/search?q=1，root目录本身为"/"
package normalizer

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

var ErrInvalidRoot = errors.New("root url must be an absolute http(s) url")

type Normalizer struct {
	root   *url.URL
	origin string // scheme://host，默认端口已移除
	base   string // root所在目录的escaped path，以"/"结尾
	rootN  string
}

func NewNormalizer(rootURL string) (*Normalizer, error) {
	u, err := url.Parse(strings.TrimSpace(rootURL))
	if err != nil {
		return nil, err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidRoot
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHost(u.Scheme, u.Host)
	u.Fragment = ""

	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	base := p[:strings.LastIndex(p, "/")+1]

	n := &Normalizer{
		root:   u,
		origin: u.Scheme + "://" + u.Host,
		base:   base,
	}
	n.rootN = n.relative(p, u.RawQuery)
	return n, nil
}

// Normalize 是不持有状态的便捷形式
func Normalize(rootURL, currentPageURL, rawHref string) (string, bool) {
	n, err := NewNormalizer(rootURL)
	if err != nil {
		return "", false
	}
	return n.Normalize(currentPageURL, rawHref)
}

// Root 返回root url自身的规范化形式
func (n *Normalizer) Root() string {
	return n.rootN
}

// RootURL 返回去掉fragment后的root url
func (n *Normalizer) RootURL() string {
	return n.root.String()
}

// Resolve 由规范化形式得到可以直接请求的绝对url
func (n *Normalizer) Resolve(normalized string) string {
	return n.origin + strings.TrimSuffix(n.base, "/") + normalized
}

// Normalize 返回(规范化url, 是否接受)
// 拒绝: 空串、"#"、纯fragment、非http(s)协议、与root不同源
func (n *Normalizer) Normalize(currentPageURL, rawHref string) (string, bool) {
	href := strings.TrimSpace(rawHref)
	if href == "" || href == "#" {
		return "", false
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if href == "" {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	page := n.root
	if currentPageURL != "" {
		if page, err = url.Parse(currentPageURL); err != nil {
			return "", false
		}
	}
	abs := page.ResolveReference(ref)

	scheme := strings.ToLower(abs.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if scheme+"://"+canonicalHost(scheme, abs.Host) != n.origin {
		return "", false
	}

	p := abs.EscapedPath()
	if p == "" {
		p = "/"
	}
	return n.relative(p, abs.RawQuery), true
}

func (n *Normalizer) relative(p, rawQuery string) string {
	var rel string
	if strings.HasPrefix(p, n.base) {
		rel = "/" + p[len(n.base):]
	} else {
		rel = "/" + climb(n.base, p)
	}
	if rawQuery != "" {
		rel += "?" + rawQuery
	}
	return rel
}

// climb 计算从base目录到p的相对路径，p不在base之下，因此结果以".."开头
func climb(base, p string) string {
	bs := strings.Split(strings.Trim(base, "/"), "/")
	ps := strings.Split(strings.TrimPrefix(p, "/"), "/")
	if len(bs) == 1 && bs[0] == "" {
		bs = nil
	}

	i := 0
	for i < len(bs) && i < len(ps)-1 && bs[i] == ps[i] {
		i++
	}
	parts := make([]string, 0, len(bs)-i+len(ps)-i)
	for j := i; j < len(bs); j++ {
		parts = append(parts, "..")
	}
	parts = append(parts, ps[i:]...)
	return strings.Join(parts, "/")
}

func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}
