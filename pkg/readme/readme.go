package readme

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed README.md
var defaultDoc []byte

// Renderer 把 markdown 文档渲染成 HTML 页面
// 文档内容在进程生命周期内不变，只渲染一次
type Renderer struct {
	source []byte

	once sync.Once
	html []byte
	err  error
}

// NewRenderer 加载文档；path 为空时使用内置文档
func NewRenderer(path string) (*Renderer, error) {
	if path == "" {
		return &Renderer{source: defaultDoc}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read readme: %w", err)
	}
	return &Renderer{source: data}, nil
}

// NewRendererFromBytes 直接使用给定的 markdown
func NewRendererFromBytes(source []byte) *Renderer {
	return &Renderer{source: source}
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithXHTML()),
)

// HTML 返回渲染后的完整页面
func (r *Renderer) HTML() ([]byte, error) {
	r.once.Do(func() {
		var body bytes.Buffer
		if err := markdown.Convert(r.source, &body); err != nil {
			r.err = fmt.Errorf("failed to render readme: %w", err)
			return
		}

		var page bytes.Buffer
		page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>MockILS</title>\n</head>\n<body>\n")
		page.Write(body.Bytes())
		page.WriteString("</body>\n</html>\n")
		r.html = page.Bytes()
	})
	return r.html, r.err
}
