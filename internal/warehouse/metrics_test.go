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

package warehouse

import (
	"strings"
	"testing"
)

func TestClassifyMetrics(t *testing.T) {
	cases := []struct {
		query string
		want  []string
	}{
		{"quarterly revenue by segment", []string{"revenue"}},
		{"gross margin trend", []string{"gross_margin"}},
		{"revenue and margin", []string{"revenue", "gross_margin"}},
		{"how is the company doing", []string{"revenue"}},
		{"EPS last four quarters", []string{"eps"}},
	}
	for _, tc := range cases {
		got := classifyMetrics(tc.query)
		if len(got) != len(tc.want) {
			t.Errorf("%q: got %v, want %v", tc.query, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%q: got %v, want %v", tc.query, got, tc.want)
				break
			}
		}
	}
}

func sampleRows() []MetricRow {
	return []MetricRow{
		{Metric: "revenue", Year: "2023", Period: "Q1", Value: 7.19e9, Unit: "USD"},
		{Metric: "revenue", Year: "2024", Period: "Q1", Value: 26.04e9, Unit: "USD"},
	}
}

func TestBuildSummary(t *testing.T) {
	summary := buildSummary(sampleRows(), false)
	for _, want := range []string{"revenue:", "FY2023 Q1: $7.2B", "FY2024 Q1: $26.0B"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
	if strings.Contains(summary, "YoY") {
		t.Error("growth not requested but present")
	}
}

func TestBuildSummaryWithGrowth(t *testing.T) {
	summary := buildSummary(sampleRows(), true)
	if !strings.Contains(summary, "YoY: +262.2%") {
		t.Errorf("growth line missing or wrong:\n%s", summary)
	}
}

func TestYoYGrowthNeedsMatchingQuarter(t *testing.T) {
	rows := []MetricRow{
		{Metric: "revenue", Year: "2023", Period: "Q4", Value: 10},
		{Metric: "revenue", Year: "2024", Period: "Q1", Value: 20},
	}
	if _, ok := yoyGrowth(rows); ok {
		t.Error("different quarters must not yield a YoY figure")
	}
}

func TestFormatValue(t *testing.T) {
	cases := []struct {
		value float64
		unit  string
		want  string
	}{
		{26.04e9, "USD", "$26.0B"},
		{350e6, "USD", "$350.0M"},
		{12.5, "USD", "$12.50"},
		{75.2, "percent", "75.2%"},
		{5.16, "", "5.16"},
	}
	for _, tc := range cases {
		if got := formatValue(tc.value, tc.unit); got != tc.want {
			t.Errorf("formatValue(%v, %q) = %q, want %q", tc.value, tc.unit, got, tc.want)
		}
	}
}

func TestChartSeries(t *testing.T) {
	spec := chartSeries(sampleRows(), "revenue")
	if len(spec.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(spec.Points))
	}
	if spec.Points[0].Label != "FY2023 Q1" || spec.Unit != "USD" {
		t.Errorf("unexpected spec: %+v", spec)
	}
}

func TestResultRender(t *testing.T) {
	r := &Result{Summary: "revenue: $26.0B", Rows: sampleRows(), ChartRefs: []string{"/api/charts/abc"}}
	out := r.Render()
	if !strings.Contains(out, "Chart: /api/charts/abc") {
		t.Errorf("chart ref missing:\n%s", out)
	}
	// 指标行以表格预览出现
	if !strings.Contains(out, "| revenue | FY2024 Q1 | $26.0B |") {
		t.Errorf("row preview missing:\n%s", out)
	}
}

func TestMetricQueryAppendsFilters(t *testing.T) {
	sql, args := metricQuery("revenue", Filter{})
	if strings.Contains(sql, "$2") || len(args) != 1 {
		t.Errorf("empty filter must not add predicates: %s %v", sql, args)
	}

	sql, args = metricQuery("revenue", Filter{Year: "2024", Periods: []string{"Q1", "Q2"}})
	if !strings.Contains(sql, "year = $2") {
		t.Errorf("year predicate missing: %s", sql)
	}
	if !strings.Contains(sql, "period = ANY($3)") {
		t.Errorf("period predicate missing: %s", sql)
	}
	if len(args) != 3 {
		t.Fatalf("args = %v, want 3", args)
	}
	if args[1] != "2024" {
		t.Errorf("year arg = %v", args[1])
	}

	sql, args = metricQuery("eps", Filter{Periods: []string{"Q4"}})
	if !strings.Contains(sql, "period = ANY($2)") || len(args) != 2 {
		t.Errorf("periods-only filter wrong: %s %v", sql, args)
	}
}
