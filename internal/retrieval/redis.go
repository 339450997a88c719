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
	"strconv"

	redisretriever "github.com/cloudwego/eino-ext/components/retriever/redis"
	einoembed "github.com/cloudwego/eino/components/embedding"
	einoretriever "github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"research-platform/pkg/config"
)

const (
	defaultTopK       = 5
	defaultThreshold  = 0.3
	defaultCollection = "earnings_calls"
)

// RedisRetriever Redis Stack 向量检索后端。
// 年份/季度过滤在召回之后按元数据精确匹配完成。
type RedisRetriever struct {
	inner einoretriever.Retriever
}

// RedisOptions 从检索配置构造 redis.Options
func RedisOptions(cfg config.RetrievalConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       0,
	}
	if cfg.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	if cfg.DB != "" {
		if db, err := strconv.Atoi(cfg.DB); err == nil && db >= 0 {
			opts.DB = db
		}
	}
	// Redis Stack 向量检索需 Protocol 2、UnstableResp3 true（见 eino-ext retriever 注释）
	opts.Protocol = 2
	opts.UnstableResp3 = true
	return opts
}

// NewRedisRetriever 创建 Redis 检索后端
func NewRedisRetriever(ctx context.Context, cfg config.RetrievalConfig, embedder einoembed.Embedder) (*RedisRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("redis retriever requires an embedder")
	}
	client := redis.NewClient(RedisOptions(cfg))
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	index := cfg.Collection
	if index == "" {
		index = defaultCollection
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	inner, err := redisretriever.NewRetriever(ctx, &redisretriever.RetrieverConfig{
		Client:    client,
		Index:     index,
		TopK:      topK,
		Embedding: embedder,
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis retriever: %w", err)
	}
	return &RedisRetriever{inner: inner}, nil
}

// Retrieve 实现 Retriever
func (r *RedisRetriever) Retrieve(ctx context.Context, query string, filter Filter) ([]Snippet, error) {
	docs, err := r.inner.Retrieve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("redis retrieve: %w", err)
	}
	snippets := make([]Snippet, 0, len(docs))
	for _, doc := range docs {
		s := snippetFromDocument(doc)
		if matchFilter(s, filter) {
			snippets = append(snippets, s)
		}
	}
	return snippets, nil
}

func snippetFromDocument(doc *schema.Document) Snippet {
	s := Snippet{ID: doc.ID, Content: doc.Content}
	if score, ok := doc.MetaData["_score"].(float64); ok {
		s.Score = score
	}
	s.Year = metaString(doc.MetaData, "year")
	s.Period = metaString(doc.MetaData, "period")
	s.Source = metaString(doc.MetaData, "source")
	return s
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
