package meta

import (
	"time"

	"gorm.io/datatypes"
)

// SnapshotModel 是 snapshot.Snapshot 在关系型数据库中的投影
// 注意：为了避免跟 snapshot.Snapshot 混淆，我们叫它 SnapshotModel
type SnapshotModel struct {
	// ID 是主键 (UUID)
	ID string `gorm:"primaryKey;type:varchar(64)"`

	// 所属 artifact，联合索引方便按 artifact 排查
	Repository string `gorm:"index:idx_snapshot_artifact;type:varchar(255);not null"`
	IDN        string `gorm:"index:idx_snapshot_artifact;type:varchar(255);not null"`

	// Entries: 有序对象列表 [{"name": "bla.txt", "size": 6}, ...]
	// 顺序就是 oid
	Entries datatypes.JSON

	CreatedAt time.Time

	// ExpiresAt 为空表示永不过期
	ExpiresAt *time.Time `gorm:"index"`
}

// TableName 强制指定表名
func (SnapshotModel) TableName() string {
	return "snapshots"
}
