package order

import "fmt"

// Status 订单状态枚举（持久化为字符串）。
type Status string

const (
	StatusOpen   Status = "open"   // 进行中，可追加菜品
	StatusClosed Status = "closed" // 已结账
)

// AllowTransition 定义订单状态机的允许流转关系。
// open/closed 双向流转：结错账允许重新打开。
var AllowTransition = map[Status][]Status{
	StatusOpen:   {StatusClosed},
	StatusClosed: {StatusOpen},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对订单应用状态变更。
// 历史库里 status 可能为空（老 schema 迁移而来），按 open 处理。
func ApplyTransition(o *Order, to Status) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}
	from := o.Status
	if from == "" {
		from = StatusOpen
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid order status transition: %s -> %s", from, to)
	}
	o.Status = to
	return nil
}
