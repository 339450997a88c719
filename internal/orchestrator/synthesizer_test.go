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
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestSynthesizeFromModelJSON(t *testing.T) {
	model := &scriptedModel{script: []scriptedTurn{
		{msg: contentMsg(`{"summary":"growth driven by data center","financial_analysis":"revenue up 20%","sources":["Q1 call"]}`)},
	}}
	synth := NewSynthesizer(SynthesizerOptions{ChatModel: model, Company: "NVIDIA"})

	s := NewSession(QueryContext{Query: "how was Q1"})
	s.Records = []ActionRecord{
		{Step: 1, Tool: ToolRetrieveContext, Args: &RetrieveArgs{Query: "Q1"}, Output: "revenue grew 20%"},
	}

	report := synth.Synthesize(context.Background(), s)
	if report.Summary != "growth driven by data center" {
		t.Errorf("Summary = %q", report.Summary)
	}
	if report.FinancialAnalysis != "revenue up 20%" {
		t.Errorf("FinancialAnalysis = %q", report.FinancialAnalysis)
	}
	// 叙述段落来自模型，轨迹字段始终来自记录
	if len(report.ResearchSteps) != 1 {
		t.Fatalf("ResearchSteps = %v", report.ResearchSteps)
	}
	if report.AnalysisType != "historical" {
		t.Errorf("AnalysisType = %q", report.AnalysisType)
	}
	if report.IndustryInsights != NotAvailable {
		t.Errorf("IndustryInsights = %q, want placeholder", report.IndustryInsights)
	}
}

func TestSynthesizeStripsCodeFence(t *testing.T) {
	model := &scriptedModel{script: []scriptedTurn{
		{msg: contentMsg("```json\n{\"summary\":\"fenced\"}\n```")},
	}}
	synth := NewSynthesizer(SynthesizerOptions{ChatModel: model})

	report := synth.Synthesize(context.Background(), NewSession(QueryContext{Query: "q"}))
	if report.Summary != "fenced" {
		t.Errorf("Summary = %q", report.Summary)
	}
}

func TestSynthesizeInvalidJSONUsesContent(t *testing.T) {
	model := &scriptedModel{script: []scriptedTurn{
		{msg: contentMsg("the quarter looked solid overall")},
	}}
	synth := NewSynthesizer(SynthesizerOptions{ChatModel: model})

	report := synth.Synthesize(context.Background(), NewSession(QueryContext{Query: "q"}))
	if report.Summary != "the quarter looked solid overall" {
		t.Errorf("Summary = %q", report.Summary)
	}
}

func TestSynthesizeFallbackUsesDraftSummary(t *testing.T) {
	model := &scriptedModel{script: []scriptedTurn{
		{err: fmt.Errorf("model down")},
	}}
	synth := NewSynthesizer(SynthesizerOptions{ChatModel: model})

	s := NewSession(QueryContext{Query: "q"})
	s = s.WithDecision(&Decision{Tool: ToolFinalAnswer, Args: &FinalizeArgs{Summary: "draft from oracle"}})

	report := synth.Synthesize(context.Background(), s)
	if report.Summary != "draft from oracle" {
		t.Errorf("Summary = %q", report.Summary)
	}
}

func TestSynthesizeFallbackUsesLastSuccessfulRecord(t *testing.T) {
	synth := NewSynthesizer(SynthesizerOptions{ChatModel: nil})

	s := NewSession(QueryContext{Query: "q"})
	s.Records = []ActionRecord{
		{Step: 1, Tool: ToolWebSearch, Args: &SearchArgs{Query: "a"}, Output: "first finding"},
		{Step: 2, Tool: ToolWebSearch, Args: &SearchArgs{Query: "b"}, Output: "ERROR: web_search failed", Failed: true},
	}

	report := synth.Synthesize(context.Background(), s)
	if report.Summary != "first finding" {
		t.Errorf("Summary = %q", report.Summary)
	}
	if report.AnalysisType != "industry" {
		t.Errorf("AnalysisType = %q", report.AnalysisType)
	}
}

func TestSynthesizeSectionsFromToolOutputs(t *testing.T) {
	synth := NewSynthesizer(SynthesizerOptions{ChatModel: nil})

	s := NewSession(QueryContext{Query: "full picture"})
	s.Records = []ActionRecord{
		{Step: 1, Tool: ToolRetrieveContext, Args: &RetrieveArgs{Query: "tone"}, Output: "old transcript"},
		{Step: 2, Tool: ToolRetrieveContext, Args: &RetrieveArgs{Query: "tone Q2"}, Output: "management tone upbeat"},
		{Step: 3, Tool: ToolWarehouseQuery, Args: &WarehouseArgs{Query: "revenue"}, Output: "revenue: FY2024 Q1 $26.0B"},
		{Step: 4, Tool: ToolWebSearch, Args: &SearchArgs{Query: "news"}, Output: "ERROR: web_search failed", Failed: true},
	}
	s = s.WithDecision(ForcedFinalize(s))

	report := synth.Synthesize(context.Background(), s)
	// 每个段落取对应工具最近一次成功输出
	if report.HistoricalPerformance != "management tone upbeat" {
		t.Errorf("HistoricalPerformance = %q", report.HistoricalPerformance)
	}
	if report.FinancialAnalysis != "revenue: FY2024 Q1 $26.0B" {
		t.Errorf("FinancialAnalysis = %q", report.FinancialAnalysis)
	}
	// 失败记录不进段落
	if report.IndustryInsights != NotAvailable {
		t.Errorf("IndustryInsights = %q, want placeholder", report.IndustryInsights)
	}
}

func TestSynthesizeEmptyRetrievalKeepsMarker(t *testing.T) {
	synth := NewSynthesizer(SynthesizerOptions{ChatModel: nil})

	s := NewSession(QueryContext{Query: "obscure topic"})
	s.Records = []ActionRecord{
		{Step: 1, Tool: ToolRetrieveContext, Args: &RetrieveArgs{Query: "obscure topic"}, Output: "no relevant data found"},
	}
	s = s.WithDecision(ForcedFinalize(s))

	report := synth.Synthesize(context.Background(), s)
	if report.HistoricalPerformance != "no relevant data found" {
		t.Errorf("HistoricalPerformance = %q, want the empty-retrieval marker", report.HistoricalPerformance)
	}
}

func TestSynthesizeModelSectionWins(t *testing.T) {
	model := &scriptedModel{script: []scriptedTurn{
		{msg: contentMsg(`{"summary":"ok","historical_performance":"model narrative"}`)},
	}}
	synth := NewSynthesizer(SynthesizerOptions{ChatModel: model})

	s := NewSession(QueryContext{Query: "q"})
	s.Records = []ActionRecord{
		{Step: 1, Tool: ToolRetrieveContext, Args: &RetrieveArgs{Query: "q"}, Output: "raw chunk"},
	}

	report := synth.Synthesize(context.Background(), s)
	if report.HistoricalPerformance != "model narrative" {
		t.Errorf("HistoricalPerformance = %q, model section must not be overwritten", report.HistoricalPerformance)
	}
}

func TestSynthesizePromptCarriesTrailAndDraft(t *testing.T) {
	model := &scriptedModel{script: []scriptedTurn{
		{msg: contentMsg(`{"summary":"ok"}`)},
	}}
	synth := NewSynthesizer(SynthesizerOptions{ChatModel: model, Company: "NVIDIA"})

	s := NewSession(QueryContext{Query: "margins?"})
	s.Records = []ActionRecord{
		{Step: 1, Tool: ToolWarehouseQuery, Args: &WarehouseArgs{Query: "gross margin"}, Output: "FY2024 Q1: 78.4%"},
	}
	s = s.WithDecision(&Decision{Tool: ToolFinalAnswer, Args: &FinalizeArgs{Summary: "margins expanded"}})

	synth.Synthesize(context.Background(), s)

	var userPrompt string
	for _, msg := range model.lastIn {
		if msg.Role == schema.User {
			userPrompt = msg.Content
		}
	}
	if !strings.Contains(userPrompt, "FY2024 Q1: 78.4%") {
		t.Errorf("prompt missing trail: %s", userPrompt)
	}
	if !strings.Contains(userPrompt, "margins expanded") {
		t.Errorf("prompt missing draft summary: %s", userPrompt)
	}
}
