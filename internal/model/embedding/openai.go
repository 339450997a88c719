// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/go-resty/resty/v2"

	"research-platform/pkg/config"
)

// OpenAIEmbedder OpenAI 兼容的 Embedding 客户端，实现 eino embedding.Embedder
type OpenAIEmbedder struct {
	model   string
	apiKey  string
	baseURL string
	client  *resty.Client
}

// NewOpenAIEmbedder 创建 Embedding 客户端；baseURL 为空时用默认或 OPENAI_BASE_URL
func NewOpenAIEmbedder(model, apiKey, baseURL string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embedding api_key not configured")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
		if envURL := os.Getenv("OPENAI_BASE_URL"); envURL != "" {
			baseURL = envURL
		}
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(5 * time.Second)

	return &OpenAIEmbedder{
		model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
	}, nil
}

// NewEmbedderFromConfig 根据 config.Model.Defaults.Embedding 创建 Embedder
func NewEmbedderFromConfig(cfg *config.ModelConfig) (embedding.Embedder, error) {
	if cfg == nil || cfg.Defaults.Embedding == "" {
		return nil, fmt.Errorf("model.defaults.embedding not configured")
	}
	parts := strings.SplitN(cfg.Defaults.Embedding, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid default embedding key %q", cfg.Defaults.Embedding)
	}
	pc, ok := cfg.Embedding.Providers[parts[0]]
	if !ok {
		return nil, fmt.Errorf("embedding provider %q not configured", parts[0])
	}
	mi, ok := pc.Models[parts[1]]
	if !ok {
		return nil, fmt.Errorf("embedding model %q not configured in provider %q", parts[1], parts[0])
	}
	return NewOpenAIEmbedder(mi.Name, pc.APIKey, pc.BaseURL)
}

// EmbedStrings 实现 embedding.Embedder
func (e *OpenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]interface{}{
		"model": e.model,
		"input": texts,
	}

	response, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+e.apiKey).
		SetBody(request).
		Post(e.baseURL + "/embeddings")

	if err != nil {
		return nil, fmt.Errorf("调用 Embedding API failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("Embedding API 返回错误: %s", response.String())
	}

	var result struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 Embedding 响应failed: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("Embedding API 返回 %d 条结果，期望 %d 条", len(result.Data), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for _, item := range result.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("Embedding API 返回非法 index %d", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
