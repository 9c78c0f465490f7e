package pos

import "context"

// TableLocker 桌位粒度的建议锁。用于在“查占用 → 落单”之间
// 进一步收窄并发窗口；兜底仍然是数据库的部分唯一索引，
// 所以锁实现可以缺席（Writer 接受 nil）。
type TableLocker interface {
	// Acquire 尝试以 token 占有 label 对应的锁，已被占时返回 false。
	Acquire(ctx context.Context, label, token string) (bool, error)
	// Release 仅当锁仍属于 token 时释放，避免误删他人锁。
	Release(ctx context.Context, label, token string) error
}
