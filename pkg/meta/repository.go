package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mockils/pkg/snapshot"
	"mockils/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRepository 封装所有对 snapshots 表的操作，实现 snapshot.Store
type SnapshotRepository struct {
	db  *DB
	ttl time.Duration
	now func() time.Time
}

func NewSnapshotRepository(db *DB, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Put 将快照“投影”到 SQL 数据库中 (幂等写入)
func (r *SnapshotRepository) Put(ctx context.Context, snap *snapshot.Snapshot) error {
	// 1. 转换 Entries -> JSON
	entriesJSON, err := json.Marshal(snap.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}

	now := r.now()
	model := SnapshotModel{
		ID:         snap.ID.String(),
		Repository: snap.Repository,
		IDN:        snap.IDN,
		Entries:    datatypes.JSON(entriesJSON),
		CreatedAt:  snap.CreatedAt.UTC(),
	}
	if r.ttl > 0 {
		expiresAt := now.Add(r.ttl)
		model.ExpiresAt = &expiresAt
	}

	// 2. 写入数据库，ID 已存在则什么都不做
	err = r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	// 3. 顺手清理过期快照；失败不影响本次写入
	if _, err := r.PurgeExpired(ctx); err != nil {
		slog.Warn("failed to purge expired snapshots", slog.String("err", err.Error()))
	}
	return nil
}

func (r *SnapshotRepository) Get(ctx context.Context, id types.SnapshotID) (*snapshot.Snapshot, error) {
	var model SnapshotModel
	err := r.db.GetConn().WithContext(ctx).
		Where("id = ? AND (expires_at IS NULL OR expires_at > ?)", id.String(), r.now()).
		First(&model).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, snapshot.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}

	var entries []snapshot.Entry
	if len(model.Entries) > 0 {
		if err := json.Unmarshal(model.Entries, &entries); err != nil {
			return nil, fmt.Errorf("corrupted snapshot %s: %w", id, err)
		}
	}

	return &snapshot.Snapshot{
		ID:         types.SnapshotID(model.ID),
		Repository: model.Repository,
		IDN:        model.IDN,
		Entries:    entries,
		CreatedAt:  model.CreatedAt,
	}, nil
}

// PurgeExpired 删除所有已过期的快照，返回删除的行数
func (r *SnapshotRepository) PurgeExpired(ctx context.Context) (int64, error) {
	result := r.db.GetConn().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", r.now()).
		Delete(&SnapshotModel{})
	return result.RowsAffected, result.Error
}
