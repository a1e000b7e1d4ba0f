// Package service 提供外部模型服务的客户端实现。
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/freadom/readrec/core"
)

// EmbeddingClient 是句向量编码服务的 REST 客户端。
//
// 服务协议（HTTP/JSON）：
//   - POST {endpoint}/v1/encode
//     请求  {"texts": [...], "model": "...", "version": "..."}
//     响应  {"embeddings": [[...], ...], "model_version": "..."}
//   - GET {endpoint}/v1/health：200 表示模型已加载、可服务
//
// 模型加载发生在服务端；客户端的 Health + 一次预热编码合起来
// 等价于"模型初始化成功"的判定。
type EmbeddingClient struct {
	// Endpoint 服务端点，如 "http://localhost:8501"
	Endpoint string

	// ModelName 默认模型名（请求里可覆盖）
	ModelName string

	// ModelVersion 模型版本（可选，为空则使用最新版本）
	ModelVersion string

	// Timeout 单次请求超时
	Timeout time.Duration

	// Token Bearer 认证（可选）
	Token string

	httpClient *http.Client
}

// EmbeddingClientOption 配置 EmbeddingClient。
type EmbeddingClientOption func(*EmbeddingClient)

// WithVersion 设置模型版本。
func WithVersion(version string) EmbeddingClientOption {
	return func(c *EmbeddingClient) { c.ModelVersion = version }
}

// WithTimeout 设置请求超时。
func WithTimeout(timeout time.Duration) EmbeddingClientOption {
	return func(c *EmbeddingClient) { c.Timeout = timeout }
}

// WithToken 设置 Bearer 认证。
func WithToken(token string) EmbeddingClientOption {
	return func(c *EmbeddingClient) { c.Token = token }
}

// NewEmbeddingClient 创建编码服务客户端。
func NewEmbeddingClient(endpoint, modelName string, opts ...EmbeddingClientOption) *EmbeddingClient {
	c := &EmbeddingClient{
		Endpoint:  endpoint,
		ModelName: modelName,
		Timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient = &http.Client{Timeout: c.Timeout}
	return c
}

type encodeRequest struct {
	Texts   []string `json:"texts"`
	Model   string   `json:"model,omitempty"`
	Version string   `json:"version,omitempty"`
}

type encodeResponse struct {
	Embeddings   [][]float64 `json:"embeddings"`
	ModelVersion string      `json:"model_version,omitempty"`
}

// Predict 实现 core.MLService：批量编码文本。
func (c *EmbeddingClient) Predict(ctx context.Context, req *core.MLPredictRequest) (*core.MLPredictResponse, error) {
	if len(req.Texts) == 0 {
		return nil, fmt.Errorf("texts are required")
	}

	model := req.ModelName
	if model == "" {
		model = c.ModelName
	}
	version := req.ModelVersion
	if version == "" {
		version = c.ModelVersion
	}

	payload, err := json.Marshal(encodeRequest{Texts: req.Texts, Model: model, Version: version})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/encode", c.Endpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("encoder error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	var result encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(result.Embeddings) != len(req.Texts) {
		return nil, fmt.Errorf("encoder returned %d embeddings for %d texts",
			len(result.Embeddings), len(req.Texts))
	}

	return &core.MLPredictResponse{
		Embeddings:   result.Embeddings,
		ModelVersion: result.ModelVersion,
	}, nil
}

// Health 实现 core.MLService：确认服务端模型已加载。
func (c *EmbeddingClient) Health(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/health", c.Endpoint)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addAuth(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed: status=%d, body=%s", resp.StatusCode, string(body))
	}
	return nil
}

// Close 实现 core.MLService。HTTP 客户端无需显式关闭。
func (c *EmbeddingClient) Close(_ context.Context) error {
	return nil
}

func (c *EmbeddingClient) addAuth(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

var _ core.MLService = (*EmbeddingClient)(nil)
