package recording

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Source 平台麦克风抽象：Begin 后开始产出 PCM-16 样本，Drain 结束并交出本次全部样本。
type Source interface {
	Begin(sampleRate int) error
	Drain() ([]int16, error)
}

// FileDevice 把采集到的样本落成 WAV 文件的设备实现。
// 录音文件写入 spool 目录，向外只暴露 file:// 定位符。
type FileDevice struct {
	dir        string
	sampleRate int
	source     Source
}

// NewFileDevice 创建落盘设备（sampleRate <= 0 时使用 44.1kHz 高质量预设）
func NewFileDevice(dir string, sampleRate int, source Source) (*FileDevice, error) {
	if dir == "" {
		return nil, fmt.Errorf("recording dir is empty")
	}
	if source == nil {
		return nil, fmt.Errorf("recording source is nil")
	}
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recording dir: %w", err)
	}
	return &FileDevice{dir: dir, sampleRate: sampleRate, source: source}, nil
}

// RequestPermission 文件落盘设备不需要系统权限。
func (d *FileDevice) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

// Begin 开始采集
func (d *FileDevice) Begin(ctx context.Context) error {
	if err := d.source.Begin(d.sampleRate); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	return nil
}

// Finish 结束采集，把样本编码成 WAV 写入 spool 目录。
func (d *FileDevice) Finish(ctx context.Context) (Result, error) {
	samples, err := d.source.Drain()
	if err != nil {
		return Result{}, fmt.Errorf("failed to drain capture: %w", err)
	}

	data, err := EncodeWAV(samples, d.sampleRate)
	if err != nil {
		return Result{}, err
	}

	path := filepath.Join(d.dir, uuid.NewString()+".wav")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return Result{}, fmt.Errorf("failed to write recording: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Result{
		URI:      "file://" + abs,
		Duration: FormatDuration(len(samples), d.sampleRate),
	}, nil
}
