package order

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ItemsSeparator 追加菜品时插入的分隔行。
const ItemsSeparator = "\n---\n"

// Store 是 UI 侧唯一的订单入口：封装 Table 并负责初始化生命周期。
// 未显式 Init 时在首次使用前完成建表。
type Store struct {
	table *Table

	initOnce sync.Once
	initErr  error
}

func NewStore(table *Table) *Store {
	return &Store{table: table}
}

// Init 幂等初始化底层表结构。
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.table == nil {
		return fmt.Errorf("store not initialized")
	}
	s.initOnce.Do(func() {
		s.initErr = s.table.EnsureSchema(ctx)
	})
	return s.initErr
}

// GetAll 返回全部订单，按创建时间倒序。
func (s *Store) GetAll(ctx context.Context) ([]Order, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s.table.GetAll(ctx)
}

// GetByID 返回指定订单；不存在返回 ErrNotFound。
func (s *Store) GetByID(ctx context.Context, id string) (*Order, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("id required: %w", ErrInvalidOrder)
	}
	return s.table.GetByID(ctx, id)
}

// Add 持久化一条新订单。id 缺省时由 store 生成。
func (s *Store) Add(ctx context.Context, o *Order) (*Order, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order is nil: %w", ErrInvalidOrder)
	}

	if strings.TrimSpace(o.ID) == "" {
		o.ID = uuid.NewString()
	}
	if o.Timestamp == "" {
		o.Timestamp = NowTimestamp()
	}
	if o.Status == "" {
		o.Status = StatusOpen
	}
	if o.Status != StatusOpen && o.Status != StatusClosed {
		return nil, fmt.Errorf("status %q: %w", o.Status, ErrInvalidOrder)
	}
	if o.TableNumber != nil && *o.TableNumber <= 0 {
		return nil, fmt.Errorf("table number must be positive: %w", ErrInvalidOrder)
	}
	if o.GuestCount != nil && *o.GuestCount <= 0 {
		return nil, fmt.Errorf("guest count must be positive: %w", ErrInvalidOrder)
	}

	if err := s.table.Insert(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Search 按订单文本/点单员检索，空查询等价于 GetAll。
func (s *Store) Search(ctx context.Context, query string) ([]Order, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	return s.table.Search(ctx, query)
}

// Delete 删除订单；id 不存在不报错。
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.Init(ctx); err != nil {
		return err
	}
	return s.table.Delete(ctx, strings.TrimSpace(id))
}

// CloseOrder 结账。
func (s *Store) CloseOrder(ctx context.Context, id string) (*Order, error) {
	return s.updateStatus(ctx, id, StatusClosed)
}

// ReopenOrder 重新打开已结账订单。
func (s *Store) ReopenOrder(ctx context.Context, id string) (*Order, error) {
	return s.updateStatus(ctx, id, StatusOpen)
}

func (s *Store) updateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	o, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ApplyTransition(o, to); err != nil {
		return nil, err
	}
	if err := s.table.Update(ctx, o.ID, map[string]interface{}{"status": string(o.Status)}); err != nil {
		return nil, err
	}
	return o, nil
}

// AppendItems 向已有订单追加菜品文本（只追加，不覆盖）。
func (s *Store) AppendItems(ctx context.Context, id, text string) (*Order, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("append text is empty: %w", ErrInvalidOrder)
	}

	o, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	combined := text
	if o.TranscribedText != "" {
		combined = o.TranscribedText + ItemsSeparator + text
	}
	if err := s.table.Update(ctx, o.ID, map[string]interface{}{"transcribedText": combined}); err != nil {
		return nil, err
	}
	o.TranscribedText = combined
	return o, nil
}
