package commands

import (
	"context"
	"fmt"
	"io"

	"mockils/pkg/client"
	"mockils/pkg/service"
	"mockils/pkg/types"
)

// backend 是子命令看到的统一视图
// 本地模式直接读目录树，--remote 模式走 HTTP
type backend interface {
	Repositories(ctx context.Context) ([]string, error)
	Artifacts(ctx context.Context, repository string) ([]string, error)
	Manifest(ctx context.Context, repository, idn string) ([]byte, types.SnapshotID, error)
	Object(ctx context.Context, repository, idn string, oid types.OID, snap types.SnapshotID) (io.ReadCloser, error)
}

type localBackend struct {
	svc *service.AccessService
}

func (b localBackend) Repositories(ctx context.Context) ([]string, error) {
	return b.svc.Repositories(ctx)
}

func (b localBackend) Artifacts(ctx context.Context, repository string) ([]string, error) {
	return b.svc.Artifacts(ctx, repository)
}

func (b localBackend) Manifest(ctx context.Context, repository, idn string) ([]byte, types.SnapshotID, error) {
	res, err := b.svc.Manifest(ctx, repository, idn)
	if err != nil {
		return nil, "", err
	}
	return res.XML, res.Snapshot, nil
}

func (b localBackend) Object(ctx context.Context, repository, idn string, oid types.OID, snap types.SnapshotID) (io.ReadCloser, error) {
	res, err := b.svc.Object(ctx, repository, idn, oid, snap)
	if err != nil {
		return nil, err
	}
	return res.Content, nil
}

type remoteBackend struct {
	c *client.ILSClient
}

func (b remoteBackend) Repositories(ctx context.Context) ([]string, error) {
	return b.c.Repositories(ctx)
}

func (b remoteBackend) Artifacts(ctx context.Context, repository string) ([]string, error) {
	return b.c.Artifacts(ctx, repository)
}

func (b remoteBackend) Manifest(ctx context.Context, repository, idn string) ([]byte, types.SnapshotID, error) {
	m, err := b.c.Manifest(ctx, repository, idn)
	if err != nil {
		return nil, "", err
	}
	return m.XML, m.Snapshot, nil
}

func (b remoteBackend) Object(ctx context.Context, repository, idn string, oid types.OID, snap types.SnapshotID) (io.ReadCloser, error) {
	return b.c.Object(ctx, repository, idn, oid, snap)
}

// currentBackend 优先使用远程客户端
func currentBackend() (backend, error) {
	switch {
	case Remote != nil:
		return remoteBackend{c: Remote}, nil
	case ILS != nil:
		return localBackend{svc: service.NewAccessService(ILS)}, nil
	default:
		return nil, fmt.Errorf("app not initialized")
	}
}
