package pos

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError 必填字段缺失或非法（如未选桌位）。属于预期内错误，
// 调用方应提示用户修正，而不是当成系统故障。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// TableConflictError 目标桌位上已有一张 open 订单。
type TableConflictError struct {
	Table string
}

func (e *TableConflictError) Error() string {
	return fmt.Sprintf("table %s is currently occupied", e.Table)
}

// NotFoundError 更新/删除了不存在的订单。
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// StorageError 底层存储/事务故障，已整体回滚。
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// isUniqueViolation 识别唯一索引冲突：postgres 走 pgconn 错误码 23505，
// sqlite 只能做子串匹配。
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}
