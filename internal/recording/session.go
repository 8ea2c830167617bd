package recording

import (
	"context"
	"errors"
	"sync"
)

// State 录音会话状态
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

var (
	// ErrPermissionDenied 未获得麦克风权限
	ErrPermissionDenied = errors.New("audio recording permission not granted")
	// ErrAlreadyRecording 已有会话进行中时再次 Start
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNoActiveSession Idle 状态下调用 Stop
	ErrNoActiveSession = errors.New("no active recording")
)

// Device 平台采集设备抽象
type Device interface {
	// RequestPermission 申请麦克风权限
	RequestPermission(ctx context.Context) (bool, error)
	// Begin 以高质量预设开始采集
	Begin(ctx context.Context) error
	// Finish 结束采集并落盘，返回音频定位符和展示用时长
	Finish(ctx context.Context) (Result, error)
}

// Result 一次完成的录音
type Result struct {
	URI      string // 音频定位符，下游只透传不解析
	Duration string // 展示用时长，如 "0:15"
}

// Session 把设备采集包成 start/stop 两段协议。
// 进程内同一时刻只允许一个活动会话：状态检查和流转在锁内完成，
// 不依赖裸标志位。
type Session struct {
	device Device

	mu    sync.Mutex
	state State
}

func NewSession(device Device) *Session {
	return &Session{device: device, state: StateIdle}
}

// State 返回当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RequestPermission 返回 false 时调用方不得发起录音。
func (s *Session) RequestPermission(ctx context.Context) (bool, error) {
	if s == nil || s.device == nil {
		return false, errors.New("session not initialized")
	}
	return s.device.RequestPermission(ctx)
}

// Start 开始录音。重复调用返回 ErrAlreadyRecording，原会话不受影响。
func (s *Session) Start(ctx context.Context) error {
	if s == nil || s.device == nil {
		return errors.New("session not initialized")
	}

	granted, err := s.device.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRecording {
		return ErrAlreadyRecording
	}

	if err := s.device.Begin(ctx); err != nil {
		return err
	}
	s.state = StateRecording
	return nil
}

// Stop 结束录音并返回音频定位符。
// 无论设备 Finish 是否失败，会话都回到 Idle，不会卡死在 Recording。
func (s *Session) Stop(ctx context.Context) (Result, error) {
	if s == nil || s.device == nil {
		return Result{}, errors.New("session not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return Result{}, ErrNoActiveSession
	}
	s.state = StateIdle

	return s.device.Finish(ctx)
}
