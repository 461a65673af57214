package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mockils/pkg/snapshot"
	"mockils/pkg/types"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

// 快照是短命数据，只需要稳定可解码；时间保留纳秒精度
var encOptions = cbor.EncOptions{
	Sort:        cbor.SortCanonical,
	Time:        cbor.TimeRFC3339Nano,
	IndefLength: cbor.IndefLengthForbidden,
}

var em, _ = encOptions.EncMode()

var decOptions = cbor.DecOptions{
	// 限制容器大小，防止 Redis 中的脏数据耗尽内存
	MaxArrayElements: 1_000_000,
	MaxMapPairs:      1000,
	MaxNestedLevels:  16,
}

var dm, _ = decOptions.DecMode()

// RedisStore 把快照保存在 Redis 中，多个 mockils 实例可以共享
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // 快照过期时间 (例如 10m)
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

func NewRedisStore(ctx context.Context, cfg Config) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

// key 添加前缀防止冲突
func (s *RedisStore) key(id types.SnapshotID) string {
	return "mockils:snap:" + string(id)
}

func (s *RedisStore) Put(ctx context.Context, snap *snapshot.Snapshot) error {
	data, err := em.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	// ttl 为 0 时 go-redis 不设置过期
	if err := s.client.Set(ctx, s.key(snap.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id types.SnapshotID) (*snapshot.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, snapshot.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var snap snapshot.Snapshot
	if err := dm.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("corrupted snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// Close 关闭底层连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
