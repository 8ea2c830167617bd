package order

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 按 id 更新/追加/查询时记录不存在
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateID 插入时 id 已存在
	ErrDuplicateID = errors.New("order id already exists")
	// ErrInvalidOrder 字段校验失败（桌号/客人数必须为正等）
	ErrInvalidOrder = errors.New("invalid order")
)

// StorageError 底层存储引擎错误。
// 读写路径统一向上抛出，由调用方决定是否降级展示。
type StorageError struct {
	Op  string // 失败的操作，如 "insert"、"search"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
