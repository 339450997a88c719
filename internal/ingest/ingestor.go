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

package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	redisindexer "github.com/cloudwego/eino-ext/components/indexer/redis"
	einoembed "github.com/cloudwego/eino/components/embedding"
	einoindexer "github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"research-platform/internal/retrieval"
	"research-platform/pkg/config"
	"research-platform/pkg/log"
)

const defaultBatchSize = 100

// Transcript 一份待入库的财报电话会议记录
type Transcript struct {
	Path   string
	Year   string
	Period string
	Source string
}

// Ingestor 语料入库流水线：提取、切片、嵌入、建索引
type Ingestor struct {
	indexer  einoindexer.Indexer
	splitter *Splitter
	logger   *log.Logger
}

// NewIngestor 创建入库流水线
func NewIngestor(indexer einoindexer.Indexer, splitter *Splitter, logger *log.Logger) *Ingestor {
	if splitter == nil {
		splitter = NewSplitter(0, 0)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Ingestor{indexer: indexer, splitter: splitter, logger: logger}
}

// NewIndexer 根据检索配置创建索引后端（memory 复用 MemoryRetriever；redis 用 eino-ext）
func NewIndexer(ctx context.Context, cfg config.RetrievalConfig, embedder einoembed.Embedder, memory *retrieval.MemoryRetriever) (einoindexer.Indexer, error) {
	t := cfg.Type
	if t == "" {
		t = "memory"
	}
	switch t {
	case "memory":
		if memory == nil {
			return nil, fmt.Errorf("retrieval type is memory but no memory retriever provided")
		}
		return &memoryIndexer{retriever: memory}, nil
	case "redis":
		client := redis.NewClient(retrieval.RedisOptions(cfg))
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		prefix := cfg.Collection
		if prefix == "" {
			prefix = "earnings_calls"
		}
		idx, err := redisindexer.NewIndexer(ctx, &redisindexer.IndexerConfig{
			Client:    client,
			KeyPrefix: prefix,
			BatchSize: defaultBatchSize,
			Embedding: embedder,
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis indexer: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported retrieval type: %s", t)
	}
}

// IngestFile 入库一份记录，返回建索引的切片数
func (ing *Ingestor) IngestFile(ctx context.Context, t Transcript) (int, error) {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return 0, fmt.Errorf("read transcript: %w", err)
	}

	var text string
	switch strings.ToLower(filepath.Ext(t.Path)) {
	case ".pdf":
		text, err = ExtractPDFText(data)
		if err != nil {
			return 0, err
		}
	case ".txt", ".md":
		text = string(data)
	default:
		return 0, fmt.Errorf("unsupported transcript format: %s", filepath.Ext(t.Path))
	}

	chunks := ing.splitter.Split(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	source := t.Source
	if source == "" {
		source = filepath.Base(t.Path)
	}
	docs := make([]*schema.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = &schema.Document{
			ID:      uuid.New().String(),
			Content: chunk,
			MetaData: map[string]any{
				"year":   t.Year,
				"period": t.Period,
				"source": source,
			},
		}
	}

	if _, err := ing.indexer.Store(ctx, docs); err != nil {
		return 0, fmt.Errorf("index transcript: %w", err)
	}
	ing.logger.Info("transcript ingested",
		"path", t.Path, "year", t.Year, "period", t.Period, "chunks", len(chunks))
	return len(chunks), nil
}

// memoryIndexer 把 eino Indexer 适配到内存检索后端
type memoryIndexer struct {
	retriever *retrieval.MemoryRetriever
}

func (m *memoryIndexer) Store(ctx context.Context, docs []*schema.Document, opts ...einoindexer.Option) ([]string, error) {
	snippets := make([]retrieval.Snippet, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		snippets[i] = retrieval.Snippet{
			ID:      doc.ID,
			Content: doc.Content,
			Year:    metaString(doc.MetaData, "year"),
			Period:  metaString(doc.MetaData, "period"),
			Source:  metaString(doc.MetaData, "source"),
		}
		ids[i] = doc.ID
	}
	if err := m.retriever.Add(ctx, snippets); err != nil {
		return nil, err
	}
	return ids, nil
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

// ParseTranscriptName 从文件名推断年份与季度，形如 NVDA_2024_Q1.pdf
func ParseTranscriptName(name string) (year, period string) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	for _, part := range strings.Split(base, "_") {
		switch {
		case len(part) == 4 && part >= "1900" && part <= "2999":
			year = part
		case len(part) == 2 && (part[0] == 'Q' || part[0] == 'q') && part[1] >= '1' && part[1] <= '4':
			period = strings.ToUpper(part)
		}
	}
	return year, period
}
