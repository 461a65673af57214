package meta

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mockils/pkg/snapshot"
	"mockils/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestRepo 构建隔离的测试环境
func setupTestRepo(t *testing.T, ttl time.Duration) *SnapshotRepository {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	metaDB := NewWithConn(db)
	require.NoError(t, metaDB.AutoMigrate(&SnapshotModel{}))

	return NewSnapshotRepository(metaDB, ttl)
}

// mustPut 强制写入快照，失败则终止
func mustPut(t *testing.T, repo *SnapshotRepository, snap *snapshot.Snapshot, msgAndArgs ...any) {
	t.Helper()
	require.NoError(t, repo.Put(context.Background(), snap), msgAndArgs...)
}

// countByArtifact 统计某个 artifact 下仍然保存的快照行数
func countByArtifact(ctx context.Context, repo *SnapshotRepository, repository, idn string) (int64, error) {
	var count int64
	err := repo.db.GetConn().WithContext(ctx).
		Model(&SnapshotModel{}).
		Where("repository = ? AND idn = ?", repository, idn).
		Count(&count).Error
	return count, err
}

func sampleSnapshot() *snapshot.Snapshot {
	return snapshot.New("warc", "1234", []storage.Object{
		{Name: "a.txt", Size: 1},
		{Name: "bla.txt", Size: 6},
	}, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
}

// -----------------------------------------------------------------------------
// 测试用例
// -----------------------------------------------------------------------------

func TestSnapshotRepository_Lifecycle(t *testing.T) {
	repo := setupTestRepo(t, time.Hour)
	ctx := context.Background()

	snap := sampleSnapshot()
	mustPut(t, repo, snap, "First put should succeed")

	got, err := repo.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, "warc", got.Repository)
	assert.Equal(t, "1234", got.IDN)
	assert.Equal(t, snap.Entries, got.Entries)

	// 解析 oid 的顺序与写入时一致
	e, err := got.Resolve("warc", "1234", 1)
	require.NoError(t, err)
	assert.Equal(t, "bla.txt", e.Name)
}

func TestSnapshotRepository_Idempotency(t *testing.T) {
	repo := setupTestRepo(t, time.Hour)
	ctx := context.Background()

	snap := sampleSnapshot()
	mustPut(t, repo, snap, "1st write failed")
	mustPut(t, repo, snap, "2nd write (idempotency check) failed")

	count, err := countByArtifact(ctx, repo, "warc", "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "Should have exactly 1 record after duplicate inserts")
}

func TestSnapshotRepository_NotFound(t *testing.T) {
	repo := setupTestRepo(t, time.Hour)

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)
}

func TestSnapshotRepository_Expiry(t *testing.T) {
	repo := setupTestRepo(t, time.Minute)
	ctx := context.Background()

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	old := sampleSnapshot()
	mustPut(t, repo, old)

	// 1. 未过期
	clock = clock.Add(30 * time.Second)
	_, err := repo.Get(ctx, old.ID)
	require.NoError(t, err)

	// 2. 过期后读不到
	clock = clock.Add(time.Minute)
	_, err = repo.Get(ctx, old.ID)
	assert.ErrorIs(t, err, snapshot.ErrSnapshotNotFound)

	// 3. 下一次 Put 清理过期行
	mustPut(t, repo, sampleSnapshot())
	count, err := countByArtifact(ctx, repo, "warc", "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSnapshotRepository_NoTTL(t *testing.T) {
	repo := setupTestRepo(t, 0)
	ctx := context.Background()

	snap := sampleSnapshot()
	mustPut(t, repo, snap)

	repo.now = func() time.Time { return time.Now().UTC().Add(24 * 365 * time.Hour) }
	_, err := repo.Get(ctx, snap.ID)
	assert.NoError(t, err)

	purged, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), purged)
}

func TestSnapshotRepository_EmptySnapshot(t *testing.T) {
	repo := setupTestRepo(t, time.Hour)

	snap := snapshot.New("warc", "12345", nil, time.Now())
	mustPut(t, repo, snap)

	got, err := repo.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Entries)
}

func TestConfig_Dialector(t *testing.T) {
	_, err := Config{Driver: "sqlite"}.dialector()
	assert.ErrorContains(t, err, "sqlite path is required")

	_, err = Config{Driver: "oracle"}.dialector()
	assert.ErrorContains(t, err, "unsupported database driver")

	d, err := Config{Driver: "postgres", Host: "localhost", Port: 5432}.dialector()
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())
}

func TestNewDB_SQLite(t *testing.T) {
	cfg := Config{Driver: "sqlite", Path: t.TempDir() + "/mockils.db"}
	db, err := NewDB(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	repo := NewSnapshotRepository(db, time.Minute)
	snap := sampleSnapshot()
	mustPut(t, repo, snap)

	_, err = repo.Get(context.Background(), snap.ID)
	assert.NoError(t, err)
}
