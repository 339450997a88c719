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
	"math"
	"sort"
	"sync"

	einoembed "github.com/cloudwego/eino/components/embedding"

	"research-platform/pkg/config"
)

// MemoryRetriever 内存检索后端，开发与测试用。
// 向量余弦相似度召回，语义与 Redis 后端一致。
type MemoryRetriever struct {
	mu        sync.RWMutex
	docs      []memoryDoc
	embedder  einoembed.Embedder
	topK      int
	threshold float64
}

type memoryDoc struct {
	snippet Snippet
	vector  []float64
}

// NewMemoryRetriever 创建内存检索后端
func NewMemoryRetriever(cfg config.RetrievalConfig, embedder einoembed.Embedder) (*MemoryRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("memory retriever requires an embedder")
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &MemoryRetriever{
		embedder:  embedder,
		topK:      topK,
		threshold: threshold,
	}, nil
}

// Add 入库一批片段
func (m *MemoryRetriever) Add(ctx context.Context, snippets []Snippet) error {
	if len(snippets) == 0 {
		return nil
	}
	texts := make([]string, len(snippets))
	for i, s := range snippets {
		texts[i] = s.Content
	}
	vectors, err := m.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed snippets: %w", err)
	}
	if len(vectors) != len(snippets) {
		return fmt.Errorf("embedder returned %d vectors for %d snippets", len(vectors), len(snippets))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range snippets {
		m.docs = append(m.docs, memoryDoc{snippet: s, vector: vectors[i]})
	}
	return nil
}

// Retrieve 实现 Retriever
func (m *MemoryRetriever) Retrieve(ctx context.Context, query string, filter Filter) ([]Snippet, error) {
	vectors, err := m.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for query")
	}
	queryVec := vectors[0]

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Snippet, 0, m.topK)
	for _, doc := range m.docs {
		if !matchFilter(doc.snippet, filter) {
			continue
		}
		score := cosineSimilarity(queryVec, doc.vector)
		if score < m.threshold {
			continue
		}
		s := doc.snippet
		s.Score = score
		matches = append(matches, s)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > m.topK {
		matches = matches[:m.topK]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
