package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Consul     ConsulConfig     `json:"consul"`
	Jaeger     JaegerConfig     `json:"jaeger"`
	OpenAI     OpenAIConfig     `json:"openai"`
	Recording  RecordingConfig  `json:"recording"`
	Credential CredentialConfig `json:"credential"`
	RateLimit  RateLimitConfig  `json:"rate_limit"`
	Log        LogConfig        `json:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	HTTPPort int    `json:"http_port"` // HTTP端口
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动：sqlite / mysql
	Path     string `json:"path"`     // sqlite 数据库文件路径
	Host     string `json:"host"`     // mysql 地址
	Port     int    `json:"port"`     // mysql 端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// OpenAIConfig 语音转写/订单提取远程服务配置
type OpenAIConfig struct {
	TranscribeURL   string  `json:"transcribe_url"`   // 语音转写接口
	ExtractURL      string  `json:"extract_url"`      // 文本提取接口
	TranscribeModel string  `json:"transcribe_model"` // 转写模型
	ExtractModel    string  `json:"extract_model"`    // 提取模型
	Temperature     float64 `json:"temperature"`      // 提取温度
	TimeoutSeconds  int     `json:"timeout_seconds"`  // 单次请求超时（秒）
	UseMock         bool    `json:"use_mock"`         // 开发环境使用本地假转写
}

// RecordingConfig 录音配置
type RecordingConfig struct {
	Dir        string `json:"dir"`         // 录音文件落盘目录
	SampleRate int    `json:"sample_rate"` // 采样率（高质量预设）
}

// CredentialConfig 凭证存储配置
type CredentialConfig struct {
	Path string `json:"path"` // 凭证文件路径
}

// RateLimitConfig 转写接口限流配置
type RateLimitConfig struct {
	Strategy      string `json:"strategy"`       // token_bucket / sliding_window
	Capacity      int64  `json:"capacity"`       // 令牌桶容量
	RefillRate    int64  `json:"refill_rate"`    // 令牌桶每秒补充数
	WindowSeconds int    `json:"window_seconds"` // 滑动窗口长度（秒）
	MaxRequests   int    `json:"max_requests"`   // 窗口内最大请求数
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		// 如果配置文件不存在，使用默认配置
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "order-service",
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			Path:     "data/orders.db",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "tablevoice",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Sampler:  1.0,
		},
		OpenAI: OpenAIConfig{
			TranscribeURL:   "https://api.openai.com/v1/audio/transcriptions",
			ExtractURL:      "https://api.openai.com/v1/chat/completions",
			TranscribeModel: "whisper-1",
			ExtractModel:    "gpt-4o-mini",
			Temperature:     0.3,
			TimeoutSeconds:  60,
			UseMock:         false,
		},
		Recording: RecordingConfig{
			Dir:        "data/recordings",
			SampleRate: 44100,
		},
		Credential: CredentialConfig{
			Path: "data/credential",
		},
		RateLimit: RateLimitConfig{
			Strategy:      "token_bucket",
			Capacity:      5,
			RefillRate:    1,
			WindowSeconds: 60,
			MaxRequests:   30,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
	}
}
