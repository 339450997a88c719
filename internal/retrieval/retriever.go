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

package retrieval

import (
	"context"
	"fmt"

	einoembed "github.com/cloudwego/eino/components/embedding"

	"research-platform/pkg/config"
)

// Filter 检索过滤条件。字段为空表示不过滤，非空时做精确匹配。
type Filter struct {
	Year   string
	Period string
}

// Snippet 一条命中的语料片段
type Snippet struct {
	ID      string
	Content string
	Score   float64
	Year    string
	Period  string
	Source  string
}

// Retriever 财报语料检索接口
type Retriever interface {
	Retrieve(ctx context.Context, query string, filter Filter) ([]Snippet, error)
}

// NewRetriever 根据配置创建检索后端（memory 内置；redis 使用 eino-ext 组件）
func NewRetriever(ctx context.Context, cfg config.RetrievalConfig, embedder einoembed.Embedder) (Retriever, error) {
	t := cfg.Type
	if t == "" {
		t = "memory"
	}
	switch t {
	case "memory":
		return NewMemoryRetriever(cfg, embedder)
	case "redis":
		return NewRedisRetriever(ctx, cfg, embedder)
	default:
		return nil, fmt.Errorf("unsupported retrieval type: %s", t)
	}
}

// matchFilter 精确匹配过滤条件，缺失元数据的片段在设置过滤时被排除
func matchFilter(s Snippet, f Filter) bool {
	if f.Year != "" && s.Year != f.Year {
		return false
	}
	if f.Period != "" && s.Period != f.Period {
		return false
	}
	return true
}
