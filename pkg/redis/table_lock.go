package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// luaReleaseTableLockIfMatch 仅当锁值匹配 token 时才删除，避免
// TTL 过期后误删其他写入者刚拿到的锁。
const luaReleaseTableLockIfMatch = `
local lockKey = KEYS[1]
local token = ARGV[1]
if redis.call('GET', lockKey) == token then
  return redis.call('DEL', lockKey)
end
return 0
`

// TableLock 桌位粒度的建议锁，实现 pos.TableLocker。
// 只是收窄“查占用 → 落单”窗口的优化；正确性兜底在数据库唯一索引。
type TableLock struct {
	rdb *rd.Client
	ttl time.Duration
}

func NewTableLock(rdb *rd.Client, ttl time.Duration) *TableLock {
	return &TableLock{rdb: rdb, ttl: ttl}
}

// Acquire SETNX 抢锁；TTL 防止持有者崩溃后死锁。
func (l *TableLock) Acquire(ctx context.Context, label, token string) (bool, error) {
	return l.rdb.SetNX(ctx, TableLockKey(label), token, l.ttl).Result()
}

// Release 安全释放：值不匹配说明锁已易主，不动。
func (l *TableLock) Release(ctx context.Context, label, token string) error {
	_, err := l.rdb.Eval(ctx, luaReleaseTableLockIfMatch, []string{TableLockKey(label)}, token).Int()
	return err
}
