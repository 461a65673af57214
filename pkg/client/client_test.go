package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"mockils/pkg/app"
	"mockils/pkg/server"
	"mockils/pkg/snapshot"
	"mockils/pkg/storage"
	"mockils/pkg/storage/disk"
	"mockils/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupServer 启动一个真实的 HTTP 服务 (真实目录树 + 内存快照)
// 返回客户端、根目录和请求计数
func setupServer(t *testing.T) (*ILSClient, string, *int32) {
	t.Helper()

	// 1. 目录树
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "warc", "1234"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "warc", "12345"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "web archive", "a b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "warc", "1234", "bla.txt"), []byte("Hallo\n"), 0644))

	tree, err := disk.NewAdapter(root)
	require.NoError(t, err)

	application := &app.App{
		Tree:      tree,
		Snapshots: snapshot.NewMemoryStore(time.Minute),
		RepoPath:  root,
	}

	// 2. 计数层，验证每次调用都打到了服务端
	var hits int32
	router := server.NewRouter(application)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	// 3. 客户端
	c, err := NewILSClient(srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	return c, root, &hits
}

// TestClient_Workflow 覆盖一次完整的浏览流程：
// 列仓库 -> 列 artifact -> 取 manifest -> 按快照下载对象
func TestClient_Workflow(t *testing.T) {
	c, root, hits := setupServer(t)
	ctx := context.Background()

	// 1. 浏览
	repos, err := c.Repositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"warc", "web archive"}, repos)

	artifacts, err := c.Artifacts(ctx, "warc")
	require.NoError(t, err)
	assert.Equal(t, []string{"1234", "12345"}, artifacts)

	// 2. manifest
	m, err := c.Manifest(ctx, "warc", "1234")
	require.NoError(t, err)
	require.False(t, m.Snapshot.IsZero())
	assert.Contains(t, string(m.XML), `xlink:href="bla.txt"`)

	// 3. 目录变化后按快照下载
	require.NoError(t, os.WriteFile(filepath.Join(root, "warc", "1234", "a.txt"), []byte("first"), 0644))

	body, err := c.Object(ctx, "warc", "1234", 0, m.Snapshot)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Equal(t, "Hallo\n", string(data))

	body, err = c.Object(ctx, "warc", "1234", 0, "")
	require.NoError(t, err)
	data, err = io.ReadAll(body)
	body.Close()
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	assert.Equal(t, int32(5), atomic.LoadInt32(hits))
}

func TestClient_EscapesSegments(t *testing.T) {
	c, _, _ := setupServer(t)

	artifacts, err := c.Artifacts(context.Background(), "web archive")
	require.NoError(t, err)
	assert.Equal(t, []string{"a b"}, artifacts)
}

func TestClient_Errors(t *testing.T) {
	c, _, _ := setupServer(t)
	ctx := context.Background()

	_, err := c.Artifacts(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)

	_, err = c.Object(ctx, "warc", "1234", 3, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = c.Object(ctx, "warc", "1234", 0, types.SnapshotID("stale"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// "/" 在段内被转义成 %2F，服务端解码后拒绝
	_, err = c.Artifacts(ctx, "warc/1234")
	assert.ErrorIs(t, err, types.ErrInvalidSegment)

	_, err = c.Manifest(ctx, "warc", "..")
	assert.ErrorIs(t, err, types.ErrInvalidSegment)
}

func TestNewILSClient(t *testing.T) {
	c, err := NewILSClient("localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/access/repositories/warc/artifacts",
		c.endpoint(nil, "access", "repositories", "warc", "artifacts"))
	assert.Equal(t, "http://localhost:8080/access/repositories/a%2Fb/artifacts",
		c.endpoint(nil, "access", "repositories", "a/b", "artifacts"))

	_, err = NewILSClient("http://")
	assert.Error(t, err)
}
