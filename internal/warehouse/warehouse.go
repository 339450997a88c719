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
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"research-platform/pkg/config"
	"research-platform/pkg/log"
)

// MetricRow 数仓指标行
type MetricRow struct {
	Metric string
	Year   string
	Period string
	Value  float64
	Unit   string
}

// Filter 指标过滤条件。字段为空表示不过滤。
type Filter struct {
	Year    string
	Periods []string
}

// Result 一次数仓查询的结果
type Result struct {
	Summary   string
	ChartRefs []string
	Rows      []MetricRow
}

// Render 渲染为可写入研究轨迹的文本，指标行以表格预览附在摘要之后
func (r *Result) Render() string {
	var sb strings.Builder
	sb.WriteString(r.Summary)
	if len(r.Rows) > 0 {
		sb.WriteString("\n\n| metric | period | value |\n| --- | --- | --- |")
		for _, row := range r.Rows {
			fmt.Fprintf(&sb, "\n| %s | FY%s %s | %s |", row.Metric, row.Year, row.Period, formatValue(row.Value, row.Unit))
		}
	}
	for _, ref := range r.ChartRefs {
		sb.WriteString("\nChart: ")
		sb.WriteString(ref)
	}
	return sb.String()
}

// Warehouse 财务数仓。指标数据存 PostgreSQL，
// 查询按自然语言意图映射到指标，结果附带图表引用。
type Warehouse struct {
	pool    *pgxpool.Pool
	charts  *ChartStore
	baseURL string
	logger  *log.Logger
}

// New 连接数仓
func New(ctx context.Context, cfg config.WarehouseConfig, logger *log.Logger) (*Warehouse, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("warehouse dsn not configured")
	}
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse warehouse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("warehouse ping: %w", err)
	}
	baseURL := cfg.ChartBaseURL
	if baseURL == "" {
		baseURL = "/api/charts"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Warehouse{
		pool:    pool,
		charts:  NewChartStore(pool),
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// Close 关闭连接池
func (w *Warehouse) Close() {
	w.pool.Close()
}

// Charts 返回图表存储，供 HTTP 层按 ID 读取
func (w *Warehouse) Charts() *ChartStore {
	return w.charts
}

// Query 执行一次自然语言指标查询，filter 限定财年与季度
func (w *Warehouse) Query(ctx context.Context, query string, filter Filter) (*Result, error) {
	metrics := classifyMetrics(query)

	var rows []MetricRow
	for _, metric := range metrics {
		fetched, err := w.fetchMetric(ctx, metric, filter)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fetched...)
	}
	if len(rows) == 0 {
		return &Result{Summary: "no matching metrics in the warehouse", Rows: nil}, nil
	}

	result := &Result{
		Summary: buildSummary(rows, wantsGrowth(query)),
		Rows:    rows,
	}

	for _, metric := range metrics {
		series := chartSeries(rows, metric)
		if len(series.Points) < 2 {
			continue
		}
		id, err := w.charts.Save(ctx, series)
		if err != nil {
			// 图表是附加产物，保存失败不影响查询结果
			w.logger.Warn("chart save failed", "metric", metric, "error", err)
			continue
		}
		result.ChartRefs = append(result.ChartRefs, w.baseURL+"/"+id)
	}
	return result, nil
}

func (w *Warehouse) fetchMetric(ctx context.Context, metric string, filter Filter) ([]MetricRow, error) {
	sql, args := metricQuery(metric, filter)
	dbRows, err := w.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query metric %s: %w", metric, err)
	}
	defer dbRows.Close()

	var rows []MetricRow
	for dbRows.Next() {
		var r MetricRow
		if err := dbRows.Scan(&r.Metric, &r.Year, &r.Period, &r.Value, &r.Unit); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		rows = append(rows, r)
	}
	if err := dbRows.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// metricQuery 构造指标查询语句，过滤条件按出现顺序追加占位符
func metricQuery(metric string, filter Filter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT metric, year, period, value, unit FROM financial_metrics WHERE metric = $1`)
	args := []any{metric}
	if filter.Year != "" {
		args = append(args, filter.Year)
		fmt.Fprintf(&sb, " AND year = $%d", len(args))
	}
	if len(filter.Periods) > 0 {
		args = append(args, filter.Periods)
		fmt.Fprintf(&sb, " AND period = ANY($%d)", len(args))
	}
	sb.WriteString(" ORDER BY year, period")
	return sb.String(), args
}
