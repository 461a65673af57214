package snapshot

import (
	"context"
	"testing"
	"time"

	"mockils/pkg/storage"
	"mockils/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleObjects() []storage.Object {
	return []storage.Object{
		{Name: "a.txt", Size: 1},
		{Name: "bla.txt", Size: 6},
	}
}

func TestNew(t *testing.T) {
	now := time.Unix(1700000000, 0)
	snap := New("warc", "1234", sampleObjects(), now)

	assert.False(t, snap.ID.IsZero())
	assert.Equal(t, "warc", snap.Repository)
	assert.Equal(t, "1234", snap.IDN)
	assert.Equal(t, now, snap.CreatedAt)
	assert.Equal(t, []Entry{{"a.txt", 1}, {"bla.txt", 6}}, snap.Entries)

	// 每次生成的 id 都不同
	other := New("warc", "1234", sampleObjects(), now)
	assert.NotEqual(t, snap.ID, other.ID)
}

func TestSnapshot_Resolve(t *testing.T) {
	snap := New("warc", "1234", sampleObjects(), time.Now())

	e, err := snap.Resolve("warc", "1234", 1)
	require.NoError(t, err)
	assert.Equal(t, "bla.txt", e.Name)

	_, err = snap.Resolve("warc", "1234", 2)
	assert.ErrorIs(t, err, storage.ErrOutOfRange)

	_, err = snap.Resolve("warc", "12345", 0)
	assert.ErrorIs(t, err, ErrSnapshotNotFound, "snapshot of another artifact")

	_, err = snap.Resolve("audio", "1234", 0)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	snap := New("warc", "1234", sampleObjects(), time.Now())
	require.NoError(t, store.Put(ctx, snap))

	got, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	_, err = store.Get(ctx, types.SnapshotID("missing"))
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	clock := time.Unix(1700000000, 0)
	store.now = func() time.Time { return clock }

	old := New("warc", "1234", sampleObjects(), clock)
	require.NoError(t, store.Put(ctx, old))

	// 1. 未过期
	clock = clock.Add(59 * time.Second)
	_, err := store.Get(ctx, old.ID)
	require.NoError(t, err)

	// 2. 过期
	clock = clock.Add(time.Second)
	_, err = store.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	// 3. 下一次 Put 会清理过期条目
	fresh := New("warc", "1234", sampleObjects(), clock)
	require.NoError(t, store.Put(ctx, fresh))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_NoTTL(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	clock := time.Unix(1700000000, 0)
	store.now = func() time.Time { return clock }

	snap := New("warc", "1234", nil, clock)
	require.NoError(t, store.Put(ctx, snap))

	clock = clock.Add(24 * 365 * time.Hour)
	_, err := store.Get(ctx, snap.ID)
	assert.NoError(t, err)
}
