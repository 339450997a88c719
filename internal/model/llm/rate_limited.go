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

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"research-platform/pkg/config"
)

// RateLimitedChatModel 在 ChatModel 外包一层 RPS 与并发限流。
// WithTools 返回的新实例共享同一组限流器，配额按 provider 计。
type RateLimitedChatModel struct {
	inner     model.ToolCallingChatModel
	limiter   *rate.Limiter
	semaphore chan struct{}
}

// NewRateLimitedChatModel 创建限流包装
func NewRateLimitedChatModel(inner model.ToolCallingChatModel, cfg config.LLMRateLimit) *RateLimitedChatModel {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		rps := cfg.RequestsPerMinute / 60.0
		burst := int(rps * 2)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	var semaphore chan struct{}
	if cfg.MaxConcurrent > 0 {
		semaphore = make(chan struct{}, cfg.MaxConcurrent)
	}
	return &RateLimitedChatModel{inner: inner, limiter: limiter, semaphore: semaphore}
}

// Generate 实现 model.BaseChatModel
func (m *RateLimitedChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()
	return m.inner.Generate(ctx, in, opts...)
}

// Stream 实现 model.BaseChatModel
func (m *RateLimitedChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()
	return m.inner.Stream(ctx, in, opts...)
}

// WithTools 实现 model.ToolCallingChatModel
func (m *RateLimitedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := m.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &RateLimitedChatModel{inner: bound, limiter: m.limiter, semaphore: m.semaphore}, nil
}

func (m *RateLimitedChatModel) acquire(ctx context.Context) error {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if m.semaphore != nil {
		select {
		case m.semaphore <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *RateLimitedChatModel) release() {
	if m.semaphore != nil {
		<-m.semaphore
	}
}
