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
	"fmt"
	"strings"
)

// metricKeywords 自然语言意图到指标名的映射，按声明顺序匹配
var metricKeywords = []struct {
	metric   string
	keywords []string
}{
	{"revenue", []string{"revenue", "sales", "top line"}},
	{"gross_margin", []string{"gross margin", "margin"}},
	{"net_income", []string{"net income", "profit", "earnings", "bottom line"}},
	{"operating_expense", []string{"operating expense", "opex", "expense", "cost"}},
	{"eps", []string{"eps", "per share"}},
}

// classifyMetrics 从查询文本识别指标，无命中时退化为 revenue
func classifyMetrics(query string) []string {
	lower := strings.ToLower(query)
	var metrics []string
	for _, mk := range metricKeywords {
		for _, kw := range mk.keywords {
			if strings.Contains(lower, kw) {
				metrics = append(metrics, mk.metric)
				break
			}
		}
	}
	if len(metrics) == 0 {
		metrics = []string{"revenue"}
	}
	return metrics
}

// wantsGrowth 查询是否关心增长率
func wantsGrowth(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range []string{"growth", "grow", "yoy", "year over year", "increase", "trend"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// buildSummary 将指标行渲染为摘要文本，withGrowth 时附同比变化
func buildSummary(rows []MetricRow, withGrowth bool) string {
	var sb strings.Builder
	byMetric := map[string][]MetricRow{}
	var order []string
	for _, r := range rows {
		if _, seen := byMetric[r.Metric]; !seen {
			order = append(order, r.Metric)
		}
		byMetric[r.Metric] = append(byMetric[r.Metric], r)
	}

	for i, metric := range order {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(metric)
		sb.WriteString(":")
		series := byMetric[metric]
		for _, r := range series {
			sb.WriteString(fmt.Sprintf("\n  FY%s %s: %s", r.Year, r.Period, formatValue(r.Value, r.Unit)))
		}
		if withGrowth {
			if growth, ok := yoyGrowth(series); ok {
				sb.WriteString(fmt.Sprintf("\n  YoY: %+.1f%%", growth))
			}
		}
	}
	return sb.String()
}

// yoyGrowth 同比增长：首尾同季度对比，数据不足时不输出
func yoyGrowth(series []MetricRow) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}
	last := series[len(series)-1]
	for i := len(series) - 2; i >= 0; i-- {
		if series[i].Period == last.Period && series[i].Year != last.Year {
			if series[i].Value == 0 {
				return 0, false
			}
			return (last.Value - series[i].Value) / series[i].Value * 100, true
		}
	}
	return 0, false
}

func formatValue(value float64, unit string) string {
	switch unit {
	case "USD":
		switch {
		case value >= 1e9:
			return fmt.Sprintf("$%.1fB", value/1e9)
		case value >= 1e6:
			return fmt.Sprintf("$%.1fM", value/1e6)
		default:
			return fmt.Sprintf("$%.2f", value)
		}
	case "percent":
		return fmt.Sprintf("%.1f%%", value)
	default:
		if unit == "" {
			return fmt.Sprintf("%.2f", value)
		}
		return fmt.Sprintf("%.2f %s", value, unit)
	}
}

// chartSeries 提取单个指标的图表序列
func chartSeries(rows []MetricRow, metric string) ChartSpec {
	spec := ChartSpec{Title: metric, Kind: "line"}
	for _, r := range rows {
		if r.Metric != metric {
			continue
		}
		spec.Points = append(spec.Points, ChartPoint{
			Label: fmt.Sprintf("FY%s %s", r.Year, r.Period),
			Value: r.Value,
		})
		if spec.Unit == "" {
			spec.Unit = r.Unit
		}
	}
	return spec
}
