package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// BufferSource 内存采集源：客户端分段推送 PCM-16 小端字节流，
// Drain 时一次性交出本段全部样本。配合 FileDevice 即是服务端的录音通道。
type BufferSource struct {
	mu      sync.Mutex
	active  bool
	samples []int16
}

func NewBufferSource() *BufferSource {
	return &BufferSource{}
}

// Begin 开始一段新采集，清空上一段残留样本。
func (s *BufferSource) Begin(sampleRate int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return errors.New("capture already begun")
	}
	s.active = true
	s.samples = s.samples[:0]
	return nil
}

// Append 追加一段 PCM-16 小端字节流。
func (s *BufferSource) Append(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return errors.New("capture not begun")
	}
	if len(pcm)%2 != 0 {
		return fmt.Errorf("pcm payload must be 16-bit aligned, got %d bytes", len(pcm))
	}
	for i := 0; i < len(pcm); i += 2 {
		s.samples = append(s.samples, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	return nil
}

// Drain 结束采集并交出样本。
func (s *BufferSource) Drain() ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil, errors.New("capture not begun")
	}
	s.active = false
	out := make([]int16, len(s.samples))
	copy(out, s.samples)
	s.samples = s.samples[:0]
	return out, nil
}
