package order

import "time"

// Order 订单 GORM 模型。
// 列名保持与历史 SQLite 库一致（camelCase），方便老库直接迁移。
type Order struct {
	ID              string `gorm:"column:id;primaryKey;size:36" json:"id"`
	AudioURI        string `gorm:"column:audioUri;not null" json:"audioUri"`                // 录音文件定位符，仅透传不解析
	TranscribedText string `gorm:"column:transcribedText;not null" json:"transcribedText"`  // 订单文本，追加场景下只增不删
	StaffName       string `gorm:"column:staffName;not null" json:"staffName"`              // 点单员，创建后不变
	Timestamp       string `gorm:"column:timestamp;not null;index" json:"timestamp"`        // 创建时间，ISO-8601 字符串
	Duration        string `gorm:"column:duration;not null" json:"duration"`                // 展示用时长，如 "0:15"
	TableNumber     *int   `gorm:"column:tableNumber" json:"tableNumber,omitempty"`         // 桌号，可空，正整数
	GuestCount      *int   `gorm:"column:guestCount" json:"guestCount,omitempty"`           // 客人数，可空，正整数
	Status          Status `gorm:"column:status;type:varchar(16);default:open" json:"status"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// NowTimestamp 生成创建时间戳（UTC，ISO-8601，字典序即时间序）
func NowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
