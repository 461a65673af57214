// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mockils/pkg/meta"
	"mockils/pkg/readme"
	"mockils/pkg/snapshot"
	"mockils/pkg/snapshot/cache"
	"mockils/pkg/storage"
	"mockils/pkg/storage/disk"

	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// handler 通过它拿到配置好的实例，而不是读全局变量
type App struct {
	Tree      storage.Tree
	Snapshots snapshot.Store // snapshot.type=none 时为 nil
	Readme    *readme.Renderer
	RepoPath  string

	closers []io.Closer
}

// NewApp 是工厂函数，负责组装这一台机器
// 它遵循 Viper 的配置，但不知道具体的 CLI 命令
func NewApp(ctx context.Context) (*App, error) {
	// 1. 仓库树根路径 (Single Source of Truth)
	repoPath := viper.GetString("repository.path")
	if repoPath == "" {
		return nil, fmt.Errorf("repository path not set")
	}

	tree, err := disk.NewAdapter(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init repository tree: %w", err)
	}

	// 2. 文档页
	doc, err := readme.NewRenderer(viper.GetString("readme.path"))
	if err != nil {
		return nil, err
	}

	a := &App{
		Tree:     tree,
		Readme:   doc,
		RepoPath: repoPath,
	}

	// 3. 快照存储
	snaps, closer, err := initSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init snapshot store: %w", err)
	}
	if snaps != nil {
		a.Snapshots = snaps
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	return a, nil
}

// initSnapshots 根据 snapshot.type 选择快照后端
// 返回的 io.Closer 可能为 nil
func initSnapshots(ctx context.Context) (snapshot.Store, io.Closer, error) {
	ttl := viper.GetDuration("snapshot.ttl")

	switch viper.GetString("snapshot.type") {
	case "none":
		return nil, nil, nil

	case "", "memory":
		return snapshot.NewMemoryStore(ttl), nil, nil

	case "redis":
		url := viper.GetString("redis.url")
		if url == "" {
			return nil, nil, fmt.Errorf("redis url is required for redis snapshots")
		}
		store, err := cache.NewRedisStore(ctx, cache.Config{RedisURL: url, TTL: ttl})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case "sql":
		db, err := meta.NewDB(ctx, meta.Config{
			Driver:   viper.GetString("database.driver"),
			Host:     viper.GetString("database.host"),
			Port:     viper.GetInt("database.port"),
			User:     viper.GetString("database.user"),
			Password: viper.GetString("database.password"),
			DBName:   viper.GetString("database.dbname"),
			SSLMode:  viper.GetString("database.sslmode"),
			Path:     viper.GetString("database.path"),
		})
		if err != nil {
			return nil, nil, err
		}
		return meta.NewSnapshotRepository(db, ttl), db, nil

	default:
		return nil, nil, fmt.Errorf("unsupported snapshot type: %s", viper.GetString("snapshot.type"))
	}
}

// Close 释放外部连接 (Redis / DB)
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
