package service

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"mockils/pkg/app"
	"mockils/pkg/meta"
	"mockils/pkg/snapshot"
	"mockils/pkg/storage/disk"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestApp 是所有 Service 测试共享的基础设施初始化逻辑
// 目录树:
//
//	warc/1234/bla.txt   "Hallo\n"
//	warc/12345/         (空 artifact)
//	warc/.hidden/       (隐藏)
func setupTestApp(t *testing.T, snaps snapshot.Store) (*app.App, string) {
	t.Helper()
	root := t.TempDir()

	// 1. 目录树
	require.NoError(t, os.MkdirAll(filepath.Join(root, "warc", "1234"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "warc", "12345"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "warc", ".hidden"), 0755))
	writeObject(t, root, "warc/1234/bla.txt", "Hallo\n")

	// 2. Tree
	tree, err := disk.NewAdapter(root)
	require.NoError(t, err)

	return &app.App{
		Tree:      tree,
		Snapshots: snaps,
		RepoPath:  root,
	}, root
}

// setupSQLSnapshots 用内存 SQLite 构造快照仓库
func setupSQLSnapshots(t *testing.T) *meta.SnapshotRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	metaDB := meta.NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(&meta.SnapshotModel{}))
	t.Cleanup(func() { metaDB.Close() })

	return meta.NewSnapshotRepository(metaDB, 0)
}

func writeObject(t *testing.T, root, rel, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte(content), 0644))
}
