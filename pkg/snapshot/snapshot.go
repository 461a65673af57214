package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mockils/pkg/storage"
	"mockils/pkg/types"

	"github.com/google/uuid"
)

var ErrSnapshotNotFound = errors.New("snapshot not found or expired")

// Entry 是快照中记录的一个对象 (只保留名字和大小，取对象时再读盘)
type Entry struct {
	Name string `json:"name" cbor:"n"`
	Size int64  `json:"size" cbor:"s"`
}

// Snapshot 记录一次 manifest 生成时的有序对象列表
// 取对象时用它解析 oid，避免两次列目录之间目录变化导致 oid 漂移
type Snapshot struct {
	ID         types.SnapshotID `cbor:"id"`
	Repository string           `cbor:"r"`
	IDN        string           `cbor:"i"`
	Entries    []Entry          `cbor:"e"`
	CreatedAt  time.Time        `cbor:"t"`
}

// New 从当前对象列表创建一个新的快照
func New(repository, idn types.Segment, objects []storage.Object, now time.Time) *Snapshot {
	entries := make([]Entry, len(objects))
	for i, o := range objects {
		entries[i] = Entry{Name: o.Name, Size: o.Size}
	}
	return &Snapshot{
		ID:         types.SnapshotID(uuid.NewString()),
		Repository: repository.String(),
		IDN:        idn.String(),
		Entries:    entries,
		CreatedAt:  now,
	}
}

// Resolve 在快照中按 oid 查找对象
// repository/idn 必须与快照一致，否则视为不存在
func (s *Snapshot) Resolve(repository, idn types.Segment, oid types.OID) (Entry, error) {
	if s.Repository != repository.String() || s.IDN != idn.String() {
		return Entry{}, fmt.Errorf("%w: %s does not belong to %s/%s", ErrSnapshotNotFound, s.ID, repository, idn)
	}
	if !oid.InRange(len(s.Entries)) {
		return Entry{}, fmt.Errorf("%w: oid %d, snapshot %s has %d objects",
			storage.ErrOutOfRange, oid, s.ID, len(s.Entries))
	}
	return s.Entries[oid], nil
}

// Store 持久化快照
// Implementations can be in-memory, Redis or a SQL database.
type Store interface {
	// Put 保存快照，过期时间由实现自己决定
	Put(ctx context.Context, snap *Snapshot) error

	// Get 读取快照，不存在或已过期返回 ErrSnapshotNotFound
	Get(ctx context.Context, id types.SnapshotID) (*Snapshot, error)
}
