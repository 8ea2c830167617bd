package transcription

import (
	"context"
	"math/rand"
	"time"
)

// sampleOrders 开发环境的假转写结果
var sampleOrders = []string{
	"One large pepperoni pizza, extra cheese, with a side of garlic bread and a Diet Coke.",
	"Two burgers with fries, one without onions, and two chocolate milkshakes.",
	"Medium iced coffee, no sugar, with almond milk and a blueberry muffin.",
	"Caesar salad with grilled chicken, dressing on the side, and a glass of lemonade.",
	"Pasta carbonara, house salad, and a bottle of sparkling water.",
	"Three tacos, one vegetarian, chips and guacamole, and two iced teas.",
	"Grilled salmon with steamed vegetables, rice pilaf, and a glass of white wine.",
	"Chicken tikka masala, garlic naan, vegetable samosas, and mango lassi.",
}

// Mock 本地假流水线：不出网、不需要凭证，返回一条随机示例订单。
type Mock struct {
	Delay time.Duration
}

// NewMock 创建假流水线（默认 1.5s 延迟，模拟真实转写耗时）
func NewMock() *Mock {
	return &Mock{Delay: 1500 * time.Millisecond}
}

func (m *Mock) Process(ctx context.Context, audioHandle, apiKey string) (string, error) {
	delay := m.Delay
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return sampleOrders[rand.Intn(len(sampleOrders))], nil
}
