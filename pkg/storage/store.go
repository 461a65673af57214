package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"mockils/pkg/types"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrOutOfRange = errors.New("object ordinal out of range")

	// ErrInvalidSegment 复用 types 中的定义，方便调用方只依赖 storage
	ErrInvalidSegment = types.ErrInvalidSegment
)

// Object 是 artifact 目录中的一个普通文件
type Object struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Tree defines the read-only view of a mock repository tree:
// repository -> artifact (idn) -> object file.
type Tree interface {
	// ListRepositories 列出 base path 下的所有 repository (已排序，不含隐藏条目)
	ListRepositories(ctx context.Context) ([]string, error)

	// ListArtifacts 列出某个 repository 下的 artifact
	ListArtifacts(ctx context.Context, repository types.Segment) ([]string, error)

	// ListObjects 按文件名字典序列出 artifact 下的对象
	// 返回切片的下标就是对象的 oid
	ListObjects(ctx context.Context, repository, idn types.Segment) ([]Object, error)

	// GetObject 重新列一次目录，然后按 oid 取值
	// 两次调用之间目录变化会导致 oid 漂移，这是已知的、可接受的竞争
	GetObject(ctx context.Context, repository, idn types.Segment, oid types.OID) (Object, error)

	// OpenObject 按文件名打开 artifact 下的对象
	// 返回 io.ReadSeekCloser 以便 HTTP 层支持 Range 请求
	OpenObject(ctx context.Context, repository, idn, name types.Segment) (io.ReadSeekCloser, error)
}
