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

package research

import (
	"context"
	"fmt"
	"strings"

	"research-platform/internal/orchestrator"
	"research-platform/internal/retrieval"
	"research-platform/internal/warehouse"
	"research-platform/internal/websearch"
)

// emptyResultPayload 空检索结果写入研究轨迹的固定文本
const emptyResultPayload = "no relevant data found"

// NewRetrievalAdapter 把语料检索绑定为工具适配器
func NewRetrievalAdapter(r retrieval.Retriever) orchestrator.Adapter {
	return orchestrator.AdapterFunc(func(ctx context.Context, args orchestrator.Arguments) (string, error) {
		ra, ok := args.(*orchestrator.RetrieveArgs)
		if !ok {
			return "", fmt.Errorf("retrieval adapter got %T", args)
		}
		snippets, err := r.Retrieve(ctx, ra.Query, retrieval.Filter{Year: ra.Year, Period: ra.Period})
		if err != nil {
			return "", err
		}
		return formatSnippets(snippets), nil
	})
}

func formatSnippets(snippets []retrieval.Snippet) string {
	if len(snippets) == 0 {
		return emptyResultPayload
	}
	var sb strings.Builder
	for i, s := range snippets {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		label := s.Source
		if label == "" {
			label = s.ID
		}
		if s.Year != "" {
			label += fmt.Sprintf(" (FY%s %s)", s.Year, s.Period)
		}
		sb.WriteString("[")
		sb.WriteString(label)
		sb.WriteString("]\n")
		sb.WriteString(s.Content)
	}
	return sb.String()
}

// NewWarehouseAdapter 把财务数仓查询绑定为工具适配器
func NewWarehouseAdapter(w *warehouse.Warehouse) orchestrator.Adapter {
	return orchestrator.AdapterFunc(func(ctx context.Context, args orchestrator.Arguments) (string, error) {
		wa, ok := args.(*orchestrator.WarehouseArgs)
		if !ok {
			return "", fmt.Errorf("warehouse adapter got %T", args)
		}
		result, err := w.Query(ctx, wa.Query, warehouse.Filter{Year: wa.Year, Periods: wa.Periods})
		if err != nil {
			return "", err
		}
		return result.Render(), nil
	})
}

// NewWebSearchAdapter 把联网搜索绑定为工具适配器
func NewWebSearchAdapter(c *websearch.Client) orchestrator.Adapter {
	return orchestrator.AdapterFunc(func(ctx context.Context, args orchestrator.Arguments) (string, error) {
		sa, ok := args.(*orchestrator.SearchArgs)
		if !ok {
			return "", fmt.Errorf("websearch adapter got %T", args)
		}
		results, err := c.Search(ctx, sa.Query)
		if err != nil {
			return "", err
		}
		return websearch.FormatResults(results), nil
	})
}
