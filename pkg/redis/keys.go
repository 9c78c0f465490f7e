package redis

import "fmt"

// TableLockKey 统一约定桌位锁键名。
func TableLockKey(label string) string {
	return fmt.Sprintf("cafe_pos:table:lock:%s", label)
}
