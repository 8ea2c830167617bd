package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store 凭证存储抽象。核心只消费这个接口，不关心背后的安全机制。
type Store interface {
	// Get 返回已保存的凭证；未保存返回空串，不报错。
	Get() (string, error)
	Save(value string) error
	Delete() error
}

// FileStore 文件实现：单文件 0600 权限，进程内加锁串行读写。
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credential path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create credential dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) Save(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.path, []byte(value), 0600); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (s *FileStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
