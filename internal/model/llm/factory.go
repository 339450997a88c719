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

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"research-platform/pkg/config"
)

// NewChatModel 根据 config.Model.Defaults.LLM（provider.model_key）创建 ChatModel。
// 目前只支持 OpenAI 兼容的 provider，BaseURL 可配置为任意兼容端点。
func NewChatModel(ctx context.Context, cfg *config.ModelConfig) (model.ToolCallingChatModel, error) {
	if cfg == nil || cfg.Defaults.LLM == "" {
		return nil, fmt.Errorf("model.defaults.llm not configured")
	}
	provider, modelKey, err := parseDefaultKey(cfg.Defaults.LLM)
	if err != nil {
		return nil, err
	}
	pc, ok := cfg.LLM.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("LLM provider %q not configured", provider)
	}
	mi, ok := pc.Models[modelKey]
	if !ok {
		return nil, fmt.Errorf("LLM model %q not configured in provider %q", modelKey, provider)
	}
	if pc.APIKey == "" {
		return nil, fmt.Errorf("LLM provider %q api_key not configured", provider)
	}

	mc := &openai.ChatModelConfig{
		Model:   mi.Name,
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
	}
	if mi.Temperature > 0 {
		temp := float32(mi.Temperature)
		mc.Temperature = &temp
	}
	if mi.MaxTokens > 0 {
		maxTokens := mi.MaxTokens
		mc.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("创建 OpenAI ChatModel failed: %w", err)
	}

	if cfg.RateLimit.RequestsPerMinute > 0 || cfg.RateLimit.MaxConcurrent > 0 {
		return NewRateLimitedChatModel(chatModel, cfg.RateLimit), nil
	}
	return chatModel, nil
}

// parseDefaultKey 解析 "provider.model_key" 形式的默认模型键
func parseDefaultKey(key string) (provider, modelKey string, err error) {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid default model key %q, want provider.model_key", key)
	}
	return parts[0], parts[1], nil
}
