package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/TableVoice/TableVoice/internal/api"
	"github.com/TableVoice/TableVoice/internal/common/config"
	"github.com/TableVoice/TableVoice/internal/common/db"
	"github.com/TableVoice/TableVoice/internal/common/logger"
	"github.com/TableVoice/TableVoice/internal/common/metrics"
	"github.com/TableVoice/TableVoice/internal/common/middleware"
	"github.com/TableVoice/TableVoice/internal/common/server"
	"github.com/TableVoice/TableVoice/internal/common/tracing"
	"github.com/TableVoice/TableVoice/internal/credential"
	"github.com/TableVoice/TableVoice/internal/order"
	"github.com/TableVoice/TableVoice/internal/recording"
	"github.com/TableVoice/TableVoice/internal/transcription"
)

var (
	configPath  = flag.String("config", "configs/order-service.json", "配置文件路径")
	consulKVKey = flag.String("consul-kv", "", "从 Consul KV 加载配置的 key（留空则读本地文件）")
)

func main() {
	flag.Parse()

	// 加载配置（优先 Consul KV，其次本地文件）
	var (
		cfg *config.Config
		err error
	)
	if *consulKVKey != "" {
		base, baseErr := config.LoadConfig(*configPath)
		if baseErr != nil {
			panic(fmt.Sprintf("failed to load config: %v", baseErr))
		}
		cfg, err = config.LoadConfigFromConsulKV(base.Consul.Host, base.Consul.Port, *consulKVKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库并建表
	gormDB, err := db.Open(
		cfg.Database.Driver,
		cfg.Database.Path,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	store := order.NewStore(order.NewTable(gormDB))
	if err := store.Init(context.Background()); err != nil {
		log.Fatalf("failed to init order store: %v", err)
	}

	// 转写流水线：开发环境可切换为本地假转写
	var pipeline transcription.Processor
	if cfg.OpenAI.UseMock {
		log.Warn("using mock transcription pipeline")
		pipeline = transcription.NewMock()
	} else {
		pipeline, err = transcription.NewClient(transcription.Config{
			TranscribeURL:   cfg.OpenAI.TranscribeURL,
			ExtractURL:      cfg.OpenAI.ExtractURL,
			TranscribeModel: cfg.OpenAI.TranscribeModel,
			ExtractModel:    cfg.OpenAI.ExtractModel,
			Temperature:     cfg.OpenAI.Temperature,
			Timeout:         time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			log.Fatalf("failed to init transcription client: %v", err)
		}
	}

	// API 凭证落盘存储
	creds, err := credential.NewFileStore(cfg.Credential.Path)
	if err != nil {
		log.Fatalf("failed to init credential store: %v", err)
	}

	// 录音通道：接收客户端推送的 PCM，落成 WAV 后交给转写流水线
	capture := recording.NewBufferSource()
	device, err := recording.NewFileDevice(cfg.Recording.Dir, cfg.Recording.SampleRate, capture)
	if err != nil {
		log.Fatalf("failed to init recording device: %v", err)
	}
	session := recording.NewSession(device)

	m := metrics.New("tablevoice")
	handler := api.NewHandler(store, pipeline, creds, session, capture, m, log)
	router := api.NewRouter(handler, m, log, cfg.Server.Name, newTranscribeLimiter(cfg.RateLimit))

	// 启动统一的 HTTP 服务模板
	if err := server.RunHTTPServer(cfg, log, router); err != nil {
		log.Fatalf("order-service exited with error: %v", err)
	}
}

// newTranscribeLimiter 按配置选择限流策略，默认令牌桶。
func newTranscribeLimiter(cfg config.RateLimitConfig) middleware.RateLimiter {
	switch cfg.Strategy {
	case "sliding_window":
		return middleware.NewSlidingWindow(time.Duration(cfg.WindowSeconds)*time.Second, cfg.MaxRequests)
	default:
		return middleware.NewTokenBucket(cfg.Capacity, cfg.RefillRate)
	}
}
