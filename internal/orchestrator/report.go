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
	"encoding/json"
	"fmt"
	"strings"
)

// NotAvailable 报告缺省段落的占位文本
const NotAvailable = "not available"

// Report 结构化研究报告。所有段落都保证非空：
// 没有内容的段落填充占位文本，序列化与反序列化互逆。
type Report struct {
	ResearchSteps         []string `json:"research_steps"`
	HistoricalPerformance string   `json:"historical_performance"`
	FinancialAnalysis     string   `json:"financial_analysis"`
	IndustryInsights      string   `json:"industry_insights"`
	Summary               string   `json:"summary"`
	Sources               []string `json:"sources"`
	AnalysisType          string   `json:"analysis_type"`
}

// normalize 填充缺省段落，保证每个字段非空
func (r *Report) normalize() {
	if r.ResearchSteps == nil {
		r.ResearchSteps = []string{}
	}
	if r.HistoricalPerformance == "" {
		r.HistoricalPerformance = NotAvailable
	}
	if r.FinancialAnalysis == "" {
		r.FinancialAnalysis = NotAvailable
	}
	if r.IndustryInsights == "" {
		r.IndustryInsights = NotAvailable
	}
	if r.Summary == "" {
		r.Summary = NotAvailable
	}
	if r.Sources == nil {
		r.Sources = []string{}
	}
	if r.AnalysisType == "" {
		r.AnalysisType = "general"
	}
}

// Render 渲染为面向用户的 Markdown 答案
func (r *Report) Render() string {
	var sb strings.Builder
	sb.WriteString("## Summary\n\n")
	sb.WriteString(r.Summary)
	sb.WriteString("\n\n## Historical Performance\n\n")
	sb.WriteString(r.HistoricalPerformance)
	sb.WriteString("\n\n## Financial Analysis\n\n")
	sb.WriteString(r.FinancialAnalysis)
	sb.WriteString("\n\n## Industry Insights\n\n")
	sb.WriteString(r.IndustryInsights)
	if len(r.ResearchSteps) > 0 {
		sb.WriteString("\n\n## Research Steps\n\n")
		for _, step := range r.ResearchSteps {
			sb.WriteString("- ")
			sb.WriteString(step)
			sb.WriteString("\n")
		}
	}
	if len(r.Sources) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for _, src := range r.Sources {
			sb.WriteString("- ")
			sb.WriteString(src)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// MarshalJSON 先填充缺省段落再序列化，保证输出字段齐全
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	clone := *r
	clone.normalize()
	return json.Marshal((*alias)(&clone))
}

// researchSteps 从记录推导研究轨迹描述
func researchSteps(records []ActionRecord) []string {
	steps := make([]string, 0, len(records))
	for _, rec := range records {
		desc := fmt.Sprintf("Step %d: called %s", rec.Step, rec.Tool)
		if rec.Args != nil {
			if b, err := json.Marshal(rec.Args); err == nil {
				desc += " with " + string(b)
			}
		}
		if rec.Failed {
			desc += " (failed)"
		}
		steps = append(steps, desc)
	}
	return steps
}

// classifyAnalysis 按实际使用过的工具标注分析类型
func classifyAnalysis(records []ActionRecord) string {
	used := map[ToolID]bool{}
	for _, rec := range records {
		if !rec.Failed {
			used[rec.Tool] = true
		}
	}
	switch {
	case used[ToolRetrieveContext] && used[ToolWarehouseQuery],
		used[ToolRetrieveContext] && used[ToolWebSearch],
		used[ToolWarehouseQuery] && used[ToolWebSearch]:
		return "comprehensive"
	case used[ToolWarehouseQuery]:
		return "financial"
	case used[ToolRetrieveContext]:
		return "historical"
	case used[ToolWebSearch]:
		return "industry"
	default:
		return "general"
	}
}
