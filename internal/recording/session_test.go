package recording

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

// fakeDevice 可编排的测试设备
type fakeDevice struct {
	granted   bool
	beginErr  error
	finishErr error
	result    Result
}

func (d *fakeDevice) RequestPermission(ctx context.Context) (bool, error) { return d.granted, nil }
func (d *fakeDevice) Begin(ctx context.Context) error                     { return d.beginErr }
func (d *fakeDevice) Finish(ctx context.Context) (Result, error) {
	return d.result, d.finishErr
}

func TestStartStopLifecycle(t *testing.T) {
	dev := &fakeDevice{granted: true, result: Result{URI: "file:///tmp/a.wav", Duration: "0:15"}}
	s := NewSession(dev)
	ctx := context.Background()

	if s.State() != StateIdle {
		t.Fatalf("expected idle state initially")
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != StateRecording {
		t.Fatalf("expected recording state after start")
	}

	res, err := s.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if res.URI != "file:///tmp/a.wav" || res.Duration != "0:15" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle state after stop")
	}
}

func TestStartTwiceFailsButKeepsRecording(t *testing.T) {
	dev := &fakeDevice{granted: true}
	s := NewSession(dev)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	// 原会话不受影响
	if s.State() != StateRecording {
		t.Fatalf("expected session to stay recording")
	}
}

func TestStartDeniedPermission(t *testing.T) {
	s := NewSession(&fakeDevice{granted: false})
	if err := s.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected idle state after denied start")
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := NewSession(&fakeDevice{granted: true})
	if _, err := s.Stop(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestStopClearsStateOnFinishFailure(t *testing.T) {
	dev := &fakeDevice{granted: true, finishErr: errors.New("disk full")}
	s := NewSession(dev)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Stop(ctx); err == nil {
		t.Fatalf("expected finish failure to propagate")
	}
	// 失败也必须回到 Idle，否则会话永久卡死
	if s.State() != StateIdle {
		t.Fatalf("expected idle state after failed stop")
	}
	if _, err := s.Stop(ctx); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession on second stop, got %v", err)
	}
}

// fakeSource 产出固定数量样本
type fakeSource struct {
	samples []int16
	began   bool
}

func (s *fakeSource) Begin(sampleRate int) error { s.began = true; return nil }
func (s *fakeSource) Drain() ([]int16, error)    { return s.samples, nil }

func TestFileDeviceWritesWAV(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{samples: make([]int16, 44100*15)} // 15s
	dev, err := NewFileDevice(dir, 44100, src)
	if err != nil {
		t.Fatalf("NewFileDevice: %v", err)
	}

	ctx := context.Background()
	if err := dev.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !src.began {
		t.Fatalf("expected source started")
	}

	res, err := dev.Finish(ctx)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if !strings.HasPrefix(res.URI, "file://") {
		t.Fatalf("expected file URI, got %q", res.URI)
	}
	if res.Duration != "0:15" {
		t.Fatalf("expected duration 0:15, got %q", res.Duration)
	}

	data, err := os.ReadFile(strings.TrimPrefix(res.URI, "file://"))
	if err != nil {
		t.Fatalf("read recording: %v", err)
	}
	if len(data) != 44+len(src.samples)*2 {
		t.Fatalf("unexpected wav size %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("not a wav file")
	}
}

func TestEncodeWAVRejectsEmpty(t *testing.T) {
	if _, err := EncodeWAV(nil, 44100); err == nil {
		t.Fatalf("expected error for empty samples")
	}
	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(44100*75, 44100); got != "1:15" {
		t.Fatalf("expected 1:15, got %q", got)
	}
	if got := FormatDuration(0, 44100); got != "0:00" {
		t.Fatalf("expected 0:00, got %q", got)
	}
}
