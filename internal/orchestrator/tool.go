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

package orchestrator

import (
	"github.com/cloudwego/eino/schema"

	"research-platform/pkg/errors"
)

// ToolID 工具标识。控制循环内所有路由都以 ToolID 为键。
type ToolID string

const (
	// ToolRetrieveContext 财报语料向量检索
	ToolRetrieveContext ToolID = "retrieve_context"
	// ToolWarehouseQuery 财务数仓指标查询
	ToolWarehouseQuery ToolID = "warehouse_query"
	// ToolWebSearch 联网搜索
	ToolWebSearch ToolID = "web_search"
	// ToolFinalAnswer 终结动作：生成最终研究报告
	ToolFinalAnswer ToolID = "final_answer"
)

// ParseToolID 解析字符串为 ToolID，未知名称返回 ErrUnknownTool。
func ParseToolID(name string) (ToolID, error) {
	switch ToolID(name) {
	case ToolRetrieveContext, ToolWarehouseQuery, ToolWebSearch, ToolFinalAnswer:
		return ToolID(name), nil
	default:
		return "", errors.Wrapf(errors.ErrUnknownTool, "tool %q", name)
	}
}

// IsTerminal 判断是否为终结工具
func (id ToolID) IsTerminal() bool {
	return id == ToolFinalAnswer
}

// Descriptor 工具描述，提供给 Oracle 作为可选动作清单。
type Descriptor struct {
	ID   ToolID
	Desc string
	Info *schema.ToolInfo
}

// Descriptors 返回给定工具集合的描述清单，顺序稳定。
// Oracle 每轮决策看到的就是这份清单，终结工具始终在列。
func Descriptors(enabled []ToolID) []Descriptor {
	all := []Descriptor{
		{
			ID:   ToolRetrieveContext,
			Desc: "检索历史财报电话会议语料，支持按年份与季度过滤",
			Info: &schema.ToolInfo{
				Name: string(ToolRetrieveContext),
				Desc: "Search historical earnings call transcripts. Supports exact year and quarter filters.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {
						Type:     schema.String,
						Desc:     "Search query describing the information to retrieve",
						Required: true,
					},
					"year": {
						Type: schema.String,
						Desc: "Fiscal year filter, e.g. \"2024\"",
					},
					"period": {
						Type: schema.String,
						Desc: "Fiscal quarter filter, e.g. \"Q1\"",
					},
				}),
			},
		},
		{
			ID:   ToolWarehouseQuery,
			Desc: "查询财务数仓中的结构化指标，返回摘要与图表引用",
			Info: &schema.ToolInfo{
				Name: string(ToolWarehouseQuery),
				Desc: "Query the financial data warehouse for structured metrics such as revenue, margins and growth rates. Returns a summary and chart references.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {
						Type:     schema.String,
						Desc:     "Natural language description of the financial metrics to query",
						Required: true,
					},
				}),
			},
		},
		{
			ID:   ToolWebSearch,
			Desc: "联网搜索公司最新动态与行业资讯",
			Info: &schema.ToolInfo{
				Name: string(ToolWebSearch),
				Desc: "Search the web for recent news and industry information about the company.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {
						Type:     schema.String,
						Desc:     "Web search query",
						Required: true,
					},
				}),
			},
		},
		{
			ID:   ToolFinalAnswer,
			Desc: "终结研究并生成结构化报告",
			Info: &schema.ToolInfo{
				Name: string(ToolFinalAnswer),
				Desc: "Finish the research session and produce the final structured report.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"summary": {
						Type: schema.String,
						Desc: "Concise summary of the findings",
					},
				}),
			},
		},
	}

	if len(enabled) == 0 {
		return all
	}

	allowed := make(map[ToolID]bool, len(enabled)+1)
	for _, id := range enabled {
		allowed[id] = true
	}
	// 终结工具不可被禁用，否则循环无法收敛
	allowed[ToolFinalAnswer] = true

	out := make([]Descriptor, 0, len(all))
	for _, d := range all {
		if allowed[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

// ToolInfos 提取描述清单中的 eino ToolInfo，用于绑定 ChatModel。
func ToolInfos(descriptors []Descriptor) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(descriptors))
	for _, d := range descriptors {
		infos = append(infos, d.Info)
	}
	return infos
}
