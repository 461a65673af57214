package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"mockils/pkg/app"
	"mockils/pkg/manifest"
	"mockils/pkg/snapshot"
	"mockils/pkg/storage"
	"mockils/pkg/types"
)

// ErrNotImplemented 对应 bulk download (zip stream) 接口
var ErrNotImplemented = errors.New("not implemented: would return a zip stream containing all of the objects")

type AccessService struct {
	tree      storage.Tree
	snapshots snapshot.Store // nil 表示关闭快照
	now       func() time.Time
}

func NewAccessService(application *app.App) *AccessService {
	return &AccessService{
		tree:      application.Tree,
		snapshots: application.Snapshots,
		now:       time.Now,
	}
}

// ManifestResult 是一次 manifest 生成的结果
type ManifestResult struct {
	XML      []byte
	Objects  []storage.Object
	Snapshot types.SnapshotID // 快照关闭时为空
}

// ObjectResult 是一次取对象的结果，调用方负责关闭 Content
type ObjectResult struct {
	Object  storage.Object
	Content io.ReadSeekCloser
}

func (s *AccessService) Repositories(ctx context.Context) ([]string, error) {
	return s.tree.ListRepositories(ctx)
}

func (s *AccessService) Artifacts(ctx context.Context, repository string) ([]string, error) {
	return s.tree.ListArtifacts(ctx, types.Segment(repository))
}

// Manifest 列出 artifact 下的对象并渲染 METS
// 开启快照时记录本次列表，客户端可以用返回的 id 固定 oid
func (s *AccessService) Manifest(ctx context.Context, repository, idn string) (*ManifestResult, error) {
	repo, id := types.Segment(repository), types.Segment(idn)

	// 1. 列目录 (每次都重新读盘)
	objects, err := s.tree.ListObjects(ctx, repo, id)
	if err != nil {
		return nil, err
	}

	now := s.now()

	// 2. 记录快照
	var snapID types.SnapshotID
	if s.snapshots != nil {
		snap := snapshot.New(repo, id, objects, now)
		if err := s.snapshots.Put(ctx, snap); err != nil {
			// 快照只是增强功能，写失败时降级为不带快照的 manifest
			slog.Warn("failed to record manifest snapshot",
				slog.String("repository", repository),
				slog.String("idn", idn),
				slog.String("err", err.Error()),
			)
		} else {
			snapID = snap.ID
		}
	}

	// 3. 渲染
	data, err := manifest.RenderManifest(objects, manifest.Options{
		Now:      func() time.Time { return now },
		Snapshot: snapID,
	})
	if err != nil {
		return nil, err
	}

	return &ManifestResult{XML: data, Objects: objects, Snapshot: snapID}, nil
}

// Object 按 oid 取对象
// snap 为空时重新列目录解析 oid (可能与之前的 manifest 不一致，这是可接受的竞争)
// snap 非空时按快照中记录的顺序解析
func (s *AccessService) Object(ctx context.Context, repository, idn string, oid types.OID, snap types.SnapshotID) (*ObjectResult, error) {
	repo, id := types.Segment(repository), types.Segment(idn)

	var obj storage.Object
	if snap.IsZero() {
		var err error
		obj, err = s.tree.GetObject(ctx, repo, id, oid)
		if err != nil {
			return nil, err
		}
	} else {
		entry, err := s.resolveSnapshot(ctx, repo, id, oid, snap)
		if err != nil {
			return nil, err
		}
		obj = storage.Object{Name: entry.Name, Size: entry.Size}
	}

	content, err := s.tree.OpenObject(ctx, repo, id, types.Segment(obj.Name))
	if err != nil {
		return nil, err
	}
	return &ObjectResult{Object: obj, Content: content}, nil
}

func (s *AccessService) resolveSnapshot(ctx context.Context, repo, idn types.Segment, oid types.OID, id types.SnapshotID) (snapshot.Entry, error) {
	if s.snapshots == nil {
		return snapshot.Entry{}, fmt.Errorf("%w: snapshots are disabled", snapshot.ErrSnapshotNotFound)
	}
	snap, err := s.snapshots.Get(ctx, id)
	if err != nil {
		return snapshot.Entry{}, err
	}
	return snap.Resolve(repo, idn, oid)
}

// ArtifactArchive 是 bulk download 的占位实现
// artifact 不存在时仍然返回 NotFound
func (s *AccessService) ArtifactArchive(ctx context.Context, repository, idn string) error {
	if _, err := s.tree.ListObjects(ctx, types.Segment(repository), types.Segment(idn)); err != nil {
		return err
	}
	return ErrNotImplemented
}
