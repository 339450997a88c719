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

import "testing"

func TestNormalizeRetrieveArgs(t *testing.T) {
	qctx := QueryContext{Query: "revenue growth", Year: "2024", Periods: []string{"Q1", "Q2"}}

	args, verr := NormalizeArguments(ToolRetrieveContext, `{"query":"data center revenue"}`, qctx)
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	ra, ok := args.(*RetrieveArgs)
	if !ok {
		t.Fatalf("expected *RetrieveArgs, got %T", args)
	}
	if ra.Query != "data center revenue" {
		t.Errorf("query = %q", ra.Query)
	}
	// 缺失的过滤条件从请求上下文补齐
	if ra.Year != "2024" {
		t.Errorf("year = %q, want injected 2024", ra.Year)
	}
	if ra.Period != "Q1" {
		t.Errorf("period = %q, want first request quarter", ra.Period)
	}
}

func TestNormalizeRetrieveArgsExplicitFilterWins(t *testing.T) {
	qctx := QueryContext{Year: "2024", Periods: []string{"Q1"}}
	args, verr := NormalizeArguments(ToolRetrieveContext, `{"query":"margins","year":"2023","period":"Q4"}`, qctx)
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	ra := args.(*RetrieveArgs)
	if ra.Year != "2023" || ra.Period != "Q4" {
		t.Errorf("explicit filters must not be overridden, got year=%q period=%q", ra.Year, ra.Period)
	}
}

func TestNormalizePeriodListTakesFirst(t *testing.T) {
	args, verr := NormalizeArguments(ToolRetrieveContext, `{"query":"guidance","period":["Q2","Q3"]}`, QueryContext{})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if got := args.(*RetrieveArgs).Period; got != "Q2" {
		t.Errorf("period = %q, want Q2", got)
	}
}

func TestNormalizeNumericYear(t *testing.T) {
	args, verr := NormalizeArguments(ToolRetrieveContext, `{"query":"guidance","year":2024}`, QueryContext{})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if got := args.(*RetrieveArgs).Year; got != "2024" {
		t.Errorf("year = %q, want 2024", got)
	}
}

func TestNormalizeScalarBecomesQuery(t *testing.T) {
	args, verr := NormalizeArguments(ToolWebSearch, `"latest GPU announcements"`, QueryContext{})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if got := args.(*SearchArgs).Query; got != "latest GPU announcements" {
		t.Errorf("query = %q", got)
	}

	// 非 JSON 文本同样折叠为 query
	args, verr = NormalizeArguments(ToolWebSearch, `plain text query`, QueryContext{})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if got := args.(*SearchArgs).Query; got != "plain text query" {
		t.Errorf("query = %q", got)
	}
}

func TestNormalizeWarehouseInputAlias(t *testing.T) {
	args, verr := NormalizeArguments(ToolWarehouseQuery, `{"input":"quarterly revenue by segment"}`, QueryContext{})
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	if got := args.(*WarehouseArgs).Query; got != "quarterly revenue by segment" {
		t.Errorf("query = %q, input key should map to query", got)
	}
}

func TestNormalizeWarehouseInjectsContext(t *testing.T) {
	qctx := QueryContext{Year: "2024", Periods: []string{"Q1", "Q2"}}

	args, verr := NormalizeArguments(ToolWarehouseQuery, `{"query":"quarterly revenue"}`, qctx)
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	wa := args.(*WarehouseArgs)
	// 缺失的过滤条件从请求上下文补齐
	if wa.Year != "2024" {
		t.Errorf("year = %q, want injected 2024", wa.Year)
	}
	if len(wa.Periods) != 2 || wa.Periods[0] != "Q1" || wa.Periods[1] != "Q2" {
		t.Errorf("periods = %v, want request quarters", wa.Periods)
	}

	// 模型显式给出的过滤条件优先
	args, verr = NormalizeArguments(ToolWarehouseQuery, `{"query":"revenue","year":"2023","period":"Q4"}`, qctx)
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}
	wa = args.(*WarehouseArgs)
	if wa.Year != "2023" || len(wa.Periods) != 1 || wa.Periods[0] != "Q4" {
		t.Errorf("explicit filters must win, got year=%q periods=%v", wa.Year, wa.Periods)
	}
}

func TestWarehouseArgsEqualIncludesFilter(t *testing.T) {
	a := &WarehouseArgs{Query: "revenue", Year: "2024", Periods: []string{"Q1"}}
	if !a.Equal(&WarehouseArgs{Query: "revenue", Year: "2024", Periods: []string{"Q1"}}) {
		t.Error("identical args must be equal")
	}
	if a.Equal(&WarehouseArgs{Query: "revenue", Year: "2023", Periods: []string{"Q1"}}) {
		t.Error("different year must not be equal")
	}
	if a.Equal(&WarehouseArgs{Query: "revenue", Year: "2024", Periods: []string{"Q2"}}) {
		t.Error("different periods must not be equal")
	}
}

func TestNormalizeEmptyQueryRejected(t *testing.T) {
	for _, tool := range []ToolID{ToolRetrieveContext, ToolWarehouseQuery, ToolWebSearch} {
		if _, verr := NormalizeArguments(tool, `{}`, QueryContext{}); verr == nil {
			t.Errorf("%s: empty query should be rejected", tool)
		}
	}
	// 终结动作允许空参数
	if _, verr := NormalizeArguments(ToolFinalAnswer, ``, QueryContext{}); verr != nil {
		t.Errorf("final_answer with empty args should be valid: %v", verr)
	}
}

func TestParseToolID(t *testing.T) {
	if _, err := ParseToolID("retrieve_context"); err != nil {
		t.Errorf("known tool rejected: %v", err)
	}
	if _, err := ParseToolID("delete_everything"); err == nil {
		t.Error("unknown tool accepted")
	}
}
