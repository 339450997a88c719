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
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"research-platform/pkg/log"
)

// Synthesizer 报告合成步。会话终结后基于完整研究轨迹生成结构化报告。
// 模型失败时退化为从记录拼装的报告，报告生成从不让会话以错误告终。
type Synthesizer struct {
	chatModel  model.BaseChatModel
	scratchpad *Scratchpad
	company    string
	timeout    time.Duration
	logger     *log.Logger
}

// SynthesizerOptions Synthesizer 构造参数
type SynthesizerOptions struct {
	ChatModel  model.BaseChatModel
	Scratchpad *Scratchpad
	Company    string
	Timeout    time.Duration
	Logger     *log.Logger
}

// NewSynthesizer 创建报告合成步
func NewSynthesizer(opts SynthesizerOptions) *Synthesizer {
	scratchpad := opts.Scratchpad
	if scratchpad == nil {
		scratchpad = NewScratchpad(0)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Synthesizer{
		chatModel:  opts.ChatModel,
		scratchpad: scratchpad,
		company:    opts.Company,
		timeout:    timeout,
		logger:     logger,
	}
}

// Synthesize 生成最终报告。research_steps 与 analysis_type 由记录推导，
// 叙述性段落交给模型，模型不可用时使用降级报告。
// 模型没有覆盖的段落从对应工具的最近一次输出回填，
// 只有轨迹里确实没有的段落才落到占位文本。
func (s *Synthesizer) Synthesize(ctx context.Context, session *Session) *Report {
	report := s.generate(ctx, session)
	if report == nil {
		report = s.fallback(session)
	}
	report.ResearchSteps = researchSteps(session.Records)
	report.AnalysisType = classifyAnalysis(session.Records)
	fillSections(report, session.Records)
	report.normalize()
	return report
}

// fillSections 空白段落回填该段落对应工具最近一次成功输出。
// retrieve_context 对应 historical_performance，warehouse_query 对应
// financial_analysis，web_search 对应 industry_insights。
func fillSections(r *Report, records []ActionRecord) {
	latest := map[ToolID]string{}
	for _, rec := range records {
		if rec.Failed {
			continue
		}
		latest[rec.Tool] = rec.Output
	}
	if r.HistoricalPerformance == "" {
		r.HistoricalPerformance = latest[ToolRetrieveContext]
	}
	if r.FinancialAnalysis == "" {
		r.FinancialAnalysis = latest[ToolWarehouseQuery]
	}
	if r.IndustryInsights == "" {
		r.IndustryInsights = latest[ToolWebSearch]
	}
}

func (s *Synthesizer) generate(ctx context.Context, session *Session) *Report {
	if s.chatModel == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.chatModel.Generate(ctx, s.buildMessages(session))
	if err != nil {
		s.logger.Error("report synthesis failed, using fallback", "session", session.ID, "error", err)
		return nil
	}

	var report Report
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &report); err != nil {
		// 模型没有给出合法 JSON：全文作为 summary
		s.logger.Warn("report is not valid JSON, using raw content as summary", "session", session.ID)
		return &Report{Summary: strings.TrimSpace(resp.Content)}
	}
	return &report
}

// fallback 模型不可用时从记录拼装报告
func (s *Synthesizer) fallback(session *Session) *Report {
	report := &Report{}
	if session.Pending != nil {
		if fa, ok := session.Pending.Args.(*FinalizeArgs); ok {
			report.Summary = fa.Summary
		}
	}
	if report.Summary == "" {
		// 最后一条成功记录的输出作为兜底摘要
		for i := len(session.Records) - 1; i >= 0; i-- {
			if !session.Records[i].Failed {
				report.Summary = session.Records[i].Output
				break
			}
		}
	}
	return report
}

func (s *Synthesizer) buildMessages(session *Session) []*schema.Message {
	var sys strings.Builder
	sys.WriteString("You are an equity research analyst")
	if s.company != "" {
		sys.WriteString(" covering ")
		sys.WriteString(s.company)
	}
	sys.WriteString(". Write the final research report as a JSON object with the fields ")
	sys.WriteString(`"historical_performance", "financial_analysis", "industry_insights", "summary" and "sources" (array of strings). `)
	sys.WriteString("Base every statement on the research trail. Use \"" + NotAvailable + "\" for sections the trail does not cover. Respond with JSON only.")

	var user strings.Builder
	user.WriteString("Question: ")
	user.WriteString(session.Request.Query)
	user.WriteString("\n\nResearch trail:\n")
	if pad := s.scratchpad.Render(session.Records); pad != "" {
		user.WriteString(pad)
	} else {
		user.WriteString("(no tool calls were made)")
	}
	if session.Pending != nil {
		if fa, ok := session.Pending.Args.(*FinalizeArgs); ok && fa.Summary != "" {
			user.WriteString("\n\nDraft summary from the orchestrator:\n")
			user.WriteString(fa.Summary)
		}
	}

	return []*schema.Message{
		schema.SystemMessage(sys.String()),
		schema.UserMessage(user.String()),
	}
}

// extractJSON 剥离模型输出中的 markdown 代码围栏
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	}
	return strings.TrimSpace(content)
}
