package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Table 负责 orders 表的 schema 和行级操作。
type Table struct {
	db *gorm.DB
}

func NewTable(db *gorm.DB) *Table {
	return &Table{db: db}
}

func (t *Table) withCtx(ctx context.Context) *gorm.DB {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.WithContext(ctx)
}

// migration 一条有序迁移。重复执行必须安全。
type migration struct {
	version int
	sql     string
}

// 迁移按版本号升序执行，记录在 schema_migrations 表。
// 2-4 是移动端老库的增量列：列已存在是迁移步骤的合法终态，标记完成即可。
var migrations = []migration{
	{1, `CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(36) PRIMARY KEY,
		audioUri TEXT NOT NULL,
		transcribedText TEXT NOT NULL,
		staffName TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		duration TEXT NOT NULL
	)`},
	{2, `ALTER TABLE orders ADD COLUMN tableNumber INTEGER`},
	{3, `ALTER TABLE orders ADD COLUMN guestCount INTEGER`},
	{4, `ALTER TABLE orders ADD COLUMN status VARCHAR(16) DEFAULT 'open'`},
}

// EnsureSchema 幂等地创建/演进 orders 表。
func (t *Table) EnsureSchema(ctx context.Context) error {
	db := t.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("table db is nil")
	}

	if err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`).Error; err != nil {
		return &StorageError{Op: "ensure schema", Err: err}
	}

	for _, m := range migrations {
		var count int64
		if err := db.Table("schema_migrations").Where("version = ?", m.version).Count(&count).Error; err != nil {
			return &StorageError{Op: "ensure schema", Err: err}
		}
		if count > 0 {
			continue
		}

		if err := db.Exec(m.sql).Error; err != nil && !isDuplicateColumn(err) {
			return &StorageError{Op: fmt.Sprintf("migration %d", m.version), Err: err}
		}

		if err := db.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			m.version, NowTimestamp()).Error; err != nil {
			return &StorageError{Op: fmt.Sprintf("migration %d", m.version), Err: err}
		}
	}
	return nil
}

// Insert 插入一条新订单；id 冲突返回 ErrDuplicateID。
func (t *Table) Insert(ctx context.Context, o *Order) error {
	db := t.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("table db is nil")
	}
	if err := db.Create(o).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("id=%s: %w", o.ID, ErrDuplicateID)
		}
		return &StorageError{Op: "insert", Err: err}
	}
	return nil
}

// GetAll 返回全部订单，按创建时间倒序。
func (t *Table) GetAll(ctx context.Context) ([]Order, error) {
	db := t.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("table db is nil")
	}
	var orders []Order
	if err := db.Order("timestamp DESC").Find(&orders).Error; err != nil {
		return nil, &StorageError{Op: "get all", Err: err}
	}
	return orders, nil
}

// GetByID 返回匹配的订单；不存在返回 ErrNotFound。
func (t *Table) GetByID(ctx context.Context, id string) (*Order, error) {
	db := t.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("table db is nil")
	}
	var o Order
	if err := db.Where("id = ?", id).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("id=%s: %w", id, ErrNotFound)
		}
		return nil, &StorageError{Op: "get by id", Err: err}
	}
	return &o, nil
}

// Search 对订单文本和点单员做大小写不敏感的子串匹配，按创建时间倒序。
// 空查询匹配全部。
func (t *Table) Search(ctx context.Context, query string) ([]Order, error) {
	db := t.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("table db is nil")
	}
	pattern := "%" + strings.ToLower(query) + "%"
	var orders []Order
	err := db.
		Where("LOWER(transcribedText) LIKE ? OR LOWER(staffName) LIKE ?", pattern, pattern).
		Order("timestamp DESC").
		Find(&orders).Error
	if err != nil {
		return nil, &StorageError{Op: "search", Err: err}
	}
	return orders, nil
}

// Update 部分更新；id 不存在返回 ErrNotFound。
func (t *Table) Update(ctx context.Context, id string, patch map[string]interface{}) error {
	db := t.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("table db is nil")
	}
	if len(patch) == 0 {
		return nil
	}

	// 先确认存在：部分驱动对无变化的 UPDATE 返回 0 行，不能拿影响行数判断存在性。
	var count int64
	if err := db.Model(&Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return &StorageError{Op: "update", Err: err}
	}
	if count == 0 {
		return fmt.Errorf("id=%s: %w", id, ErrNotFound)
	}

	if err := db.Model(&Order{}).Where("id = ?", id).Updates(patch).Error; err != nil {
		return &StorageError{Op: "update", Err: err}
	}
	return nil
}

// Delete 删除订单；id 不存在视为成功。
func (t *Table) Delete(ctx context.Context, id string) error {
	db := t.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("table db is nil")
	}
	if err := db.Where("id = ?", id).Delete(&Order{}).Error; err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}

// isDuplicateKey 主键冲突（sqlite/mysql 报错文案不同）。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry")
}

// isDuplicateColumn 增量加列时列已存在。
func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}
