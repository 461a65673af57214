package client

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mockils/pkg/manifest"
	"mockils/pkg/storage"
	"mockils/pkg/types"
)

// 和服务端保持一致
const (
	snapshotHeader = "X-Mockils-Snapshot"
	snapshotParam  = "snapshot"
)

// ErrNotImplemented 对应服务端返回的 501
var ErrNotImplemented = errors.New("not implemented by server")

// StatusError 是非 2xx 响应
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Unwrap 把状态码映射回领域错误，调用方可以直接 errors.Is
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return storage.ErrNotFound
	case http.StatusBadRequest:
		return types.ErrInvalidSegment
	case http.StatusNotImplemented:
		return ErrNotImplemented
	default:
		return nil
	}
}

// ILSClient 封装了对 access API 的 HTTP 调用
type ILSClient struct {
	base *url.URL
	http *http.Client
}

// Manifest 是一次 manifest 请求的结果
type Manifest struct {
	XML      []byte
	Snapshot types.SnapshotID // 服务端关闭快照时为空
}

// NewILSClient 创建客户端
// 这里只解析地址，不发请求；服务端不可达会在第一次调用时报错
func NewILSClient(addr string) (*ILSClient, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %s: %w", addr, err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid server address %s: missing host", addr)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		// 保持连接活跃
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}

	// 不设置 http.Client.Timeout：对象下载可能很大，超时交给 ctx
	return &ILSClient{
		base: base,
		http: &http.Client{Transport: transport},
	}, nil
}

// Close 关闭空闲连接
func (c *ILSClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *ILSClient) Repositories(ctx context.Context) ([]string, error) {
	return c.nameList(ctx, c.endpoint(nil, "access", "repositories"))
}

func (c *ILSClient) Artifacts(ctx context.Context, repository string) ([]string, error) {
	return c.nameList(ctx, c.endpoint(nil, "access", "repositories", repository, "artifacts"))
}

func (c *ILSClient) Manifest(ctx context.Context, repository, idn string) (*Manifest, error) {
	resp, err := c.get(ctx, c.endpoint(nil, "access", "repositories", repository, "artifacts", idn, "objects"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return &Manifest{
		XML:      data,
		Snapshot: types.SnapshotID(resp.Header.Get(snapshotHeader)),
	}, nil
}

// Object 下载对象内容，调用方负责关闭
func (c *ILSClient) Object(ctx context.Context, repository, idn string, oid types.OID, snap types.SnapshotID) (io.ReadCloser, error) {
	var query url.Values
	if !snap.IsZero() {
		query = url.Values{snapshotParam: {snap.String()}}
	}
	resp, err := c.get(ctx, c.endpoint(query, "access", "repositories", repository, "artifacts", idn, "objects", oid.String()))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// endpoint 逐段转义后拼出完整 URL
// 段里的 "/" 会被转义成 %2F，不会改变路径层级
func (c *ILSClient) endpoint(query url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	u := *c.base
	u.RawPath = strings.TrimSuffix(c.base.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	u.Path, _ = url.PathUnescape(u.RawPath)
	u.RawQuery = ""
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *ILSClient) nameList(ctx context.Context, endpoint string) ([]string, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var list manifest.NameList
	if err := xml.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode name list: %w", err)
	}
	if list.Values == nil {
		return []string{}, nil
	}
	return list.Values, nil
}

// get 发起请求，非 2xx 统一转换为 *StatusError
func (c *ILSClient) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", endpoint, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return nil, &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
}
