package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// 两段式流水线：录音 -> 语音转写 -> 订单提取。
// 两次外呼严格串行，单次尝试不重试，是否重试交给调用方。

// ErrMissingCredential 未提供 API 凭证
var ErrMissingCredential = errors.New("api credential is required")

// TranscriptionError 转写接口返回非 2xx
type TranscriptionError struct {
	StatusCode int
	Message    string
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed with status %d: %s", e.StatusCode, e.Message)
}

// ExtractionError 提取接口返回非 2xx
type ExtractionError struct {
	StatusCode int
	Message    string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("order extraction failed with status %d: %s", e.StatusCode, e.Message)
}

// extractSystemPrompt 固定的提取指令：只留餐/饮条目，剔除寒暄。
const extractSystemPrompt = "You are a restaurant order processor. Extract ONLY the meal and drink requests " +
	"from the customer transcription. Remove all chatter, greetings, and unnecessary words. " +
	"Format as a concise list of meals and drinks ordered. If no meals or drinks are mentioned, return \"No order\"."

// Processor 抽象整条流水线，方便开发环境替换为本地假转写。
type Processor interface {
	Process(ctx context.Context, audioHandle, apiKey string) (string, error)
}

// Config 流水线配置
type Config struct {
	TranscribeURL   string
	ExtractURL      string
	TranscribeModel string
	ExtractModel    string
	Temperature     float64
	Timeout         time.Duration
}

// Client 转写/提取 HTTP 客户端
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient 创建流水线客户端
func NewClient(config Config) (*Client, error) {
	if config.TranscribeURL == "" || config.ExtractURL == "" {
		return nil, fmt.Errorf("transcribe/extract endpoint cannot be empty")
	}
	if config.TranscribeModel == "" {
		config.TranscribeModel = "whisper-1"
	}
	if config.ExtractModel == "" {
		config.ExtractModel = "gpt-4o-mini"
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}
	// 远程调用必须有界：挂死的上游不能无限阻塞点单流程
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Process 完整流水线：音频 -> 原始转写 -> 清洗后的订单文本。
func (c *Client) Process(ctx context.Context, audioHandle, apiKey string) (string, error) {
	rawText, err := c.Transcribe(ctx, audioHandle, apiKey)
	if err != nil {
		return "", err
	}
	return c.ExtractOrderItems(ctx, rawText, apiKey)
}

// Transcribe 上传音频并请求语音转写。
func (c *Client) Transcribe(ctx context.Context, audioHandle, apiKey string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingCredential
	}

	audioPath := strings.TrimPrefix(audioHandle, "file://")
	audioData, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio %s: %w", audioHandle, err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(audioData); err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model", c.config.TranscribeModel); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TranscribeURL, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TranscriptionError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody, resp.StatusCode),
		}
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to parse transcription response: %w", err)
	}
	return out.Text, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExtractOrderItems 把原始转写清洗成订单条目文本。
func (c *Client) ExtractOrderItems(ctx context.Context, rawText, apiKey string) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingCredential
	}

	reqBody := struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		Temperature float64       `json:"temperature"`
	}{
		Model: c.config.ExtractModel,
		Messages: []chatMessage{
			{Role: "system", Content: extractSystemPrompt},
			{Role: "user", Content: fmt.Sprintf("Extract the meal and drink orders from this transcription:\n\n%q", rawText)},
		},
		Temperature: c.config.Temperature,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal extraction request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.ExtractURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ExtractionError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody, resp.StatusCode),
		}
	}

	var out struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to parse extraction response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("extraction response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// errorMessage 解析 { error: { message } } 错误信封，失败时退回状态码文案。
func errorMessage(body []byte, statusCode int) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return http.StatusText(statusCode)
}
