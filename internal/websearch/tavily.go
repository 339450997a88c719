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

package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"research-platform/pkg/config"
)

const defaultBaseURL = "https://api.tavily.com"
const defaultMaxResults = 5

// SearchResult 一条搜索命中
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Client Tavily 搜索客户端。
// 查询未提及公司时自动加上公司名前缀，保证结果围绕研究标的。
type Client struct {
	apiKey     string
	baseURL    string
	company    string
	maxResults int
	client     *resty.Client
}

// NewClient 创建搜索客户端
func NewClient(cfg config.WebSearchConfig, company string) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("websearch api_key not configured")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(2)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(5 * time.Second)

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		company:    company,
		maxResults: maxResults,
		client:     client,
	}, nil
}

// Search 执行搜索并返回命中列表
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	request := map[string]interface{}{
		"api_key":     c.apiKey,
		"query":       c.scopeQuery(query),
		"max_results": c.maxResults,
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		Post(c.baseURL + "/search")

	if err != nil {
		return nil, fmt.Errorf("调用 Tavily API failed: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("Tavily API 返回错误: %s", response.String())
	}

	var result struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.Unmarshal(response.Body(), &result); err != nil {
		return nil, fmt.Errorf("解析 Tavily 响应failed: %w", err)
	}
	return result.Results, nil
}

// scopeQuery 查询未提及公司时加上公司名前缀
func (c *Client) scopeQuery(query string) string {
	if c.company == "" {
		return query
	}
	if strings.Contains(strings.ToLower(query), strings.ToLower(c.company)) {
		return query
	}
	return c.company + " " + query
}

// FormatResults 将命中渲染为 Markdown 文本，空结果返回固定提示
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "no relevant data found"
	}
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("### ")
		sb.WriteString(r.Title)
		sb.WriteString("\n")
		sb.WriteString(r.URL)
		sb.WriteString("\n")
		sb.WriteString(r.Content)
	}
	return sb.String()
}
