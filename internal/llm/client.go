// 本文件用于本地 LLM 服务的 OpenAI 兼容客户端
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"salon-agent/internal/config"
	"salon-agent/internal/logger"
	"salon-agent/internal/models"
)

// 启动连通性检查参数：全仓库唯一的重试逻辑
const (
	connectAttempts   = 3
	connectRetryDelay = 5 * time.Second
)

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client 封装对本地 LLM HTTP 端点的调用
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	retryDelay time.Duration
}

// NewClient 创建 LLM 客户端，未启用 AI 时返回 nil
func NewClient(cfg *models.Config) *Client {
	if cfg == nil || !cfg.AIEnabled {
		return nil
	}
	return &Client{
		baseURL:    cfg.AIBaseURL,
		apiKey:     cfg.AIAPIKey,
		model:      cfg.AIModel,
		httpClient: &http.Client{Timeout: config.AITimeout(cfg)},
		retryDelay: connectRetryDelay,
	}
}

// Chat 发起一次对话补全请求并返回文本内容
func (c *Client) Chat(ctx context.Context, systemPrompt, userContent string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("LLM客户端未启用")
	}
	endpoint, err := buildChatCompletionURL(c.baseURL)
	if err != nil {
		return "", err
	}
	payload := openAIChatRequest{
		Model: c.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: 0.2,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("AI请求构造失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("AI请求创建失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("AI请求失败: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("AI响应读取失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("AI响应异常: %s", strings.TrimSpace(string(data)))
	}
	var parsed openAIChatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("AI响应解析失败: %w", err)
	}
	if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return "", fmt.Errorf("AI响应错误: %s", strings.TrimSpace(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("AI响应为空")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("AI响应为空")
	}
	return content, nil
}

// CheckConnectivity 在启动阶段验证 LLM 端点可达
// 固定重试三次，每次间隔五秒，全部失败后返回错误由上层终止启动
func (c *Client) CheckConnectivity(ctx context.Context) error {
	if c == nil {
		return nil
	}
	endpoint, err := buildModelsURL(c.baseURL)
	if err != nil {
		return err
	}
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		lastErr = c.probe(ctx, endpoint)
		if lastErr == nil {
			logger.Info("LLM 端点连通性检查通过: %s", endpoint)
			return nil
		}
		logger.Warn("LLM 端点第 %d/%d 次检查失败: %v", attempt, connectAttempts, lastErr)
		if attempt < connectAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return fmt.Errorf("LLM 端点不可达: %w", lastErr)
}

func (c *Client) probe(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("探测请求创建失败: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 500 {
		return fmt.Errorf("探测响应异常，状态码: %d", resp.StatusCode)
	}
	return nil
}

// buildChatCompletionURL 兼容带与不带 /v1 前缀的 Base URL
func buildChatCompletionURL(base string) (string, error) {
	parsed, err := parseBaseURL(base)
	if err != nil {
		return "", err
	}
	path := strings.TrimSuffix(parsed.Path, "/")
	switch {
	case strings.HasSuffix(path, "/chat/completions"):
		parsed.Path = path
	case strings.HasSuffix(path, "/v1"):
		parsed.Path = path + "/chat/completions"
	case path == "":
		parsed.Path = "/v1/chat/completions"
	default:
		parsed.Path = path + "/chat/completions"
	}
	return parsed.String(), nil
}

func buildModelsURL(base string) (string, error) {
	parsed, err := parseBaseURL(base)
	if err != nil {
		return "", err
	}
	path := strings.TrimSuffix(parsed.Path, "/")
	switch {
	case strings.HasSuffix(path, "/v1"):
		parsed.Path = path + "/models"
	case path == "":
		parsed.Path = "/v1/models"
	default:
		parsed.Path = path + "/models"
	}
	return parsed.String(), nil
}

func parseBaseURL(base string) (*url.URL, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		return nil, fmt.Errorf("AI Base URL不能为空")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("AI Base URL无效: %s", trimmed)
	}
	return parsed, nil
}
