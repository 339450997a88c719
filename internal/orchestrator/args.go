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

// QueryContext 用户请求携带的研究上下文，参数规范化时用于补齐缺省过滤条件。
// Enabled 非空时限制本次会话可用的工具集合，终结工具始终可用。
type QueryContext struct {
	Query   string
	Year    string
	Periods []string
	Enabled []ToolID
}

// ValidationError 参数规范化失败。Oracle 收到该错误后重试决策而非中止会话。
type ValidationError struct {
	Tool   ToolID
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
}

// Arguments 规范化后的工具参数。实现类型即工具种类，
// Equal 以结构等价定义，供 Loop Guard 判定重复调用。
type Arguments interface {
	Tool() ToolID
	Equal(other Arguments) bool
}

// RetrieveArgs 向量检索参数
type RetrieveArgs struct {
	Query  string `json:"query"`
	Year   string `json:"year,omitempty"`
	Period string `json:"period,omitempty"`
}

func (a *RetrieveArgs) Tool() ToolID { return ToolRetrieveContext }

func (a *RetrieveArgs) Equal(other Arguments) bool {
	b, ok := other.(*RetrieveArgs)
	if !ok {
		return false
	}
	return a.Query == b.Query && a.Year == b.Year && a.Period == b.Period
}

// WarehouseArgs 数仓查询参数
type WarehouseArgs struct {
	Query   string   `json:"query"`
	Year    string   `json:"year,omitempty"`
	Periods []string `json:"periods,omitempty"`
}

func (a *WarehouseArgs) Tool() ToolID { return ToolWarehouseQuery }

func (a *WarehouseArgs) Equal(other Arguments) bool {
	b, ok := other.(*WarehouseArgs)
	if !ok || a.Query != b.Query || a.Year != b.Year || len(a.Periods) != len(b.Periods) {
		return false
	}
	for i := range a.Periods {
		if a.Periods[i] != b.Periods[i] {
			return false
		}
	}
	return true
}

// SearchArgs 联网搜索参数
type SearchArgs struct {
	Query string `json:"query"`
}

func (a *SearchArgs) Tool() ToolID { return ToolWebSearch }

func (a *SearchArgs) Equal(other Arguments) bool {
	b, ok := other.(*SearchArgs)
	if !ok {
		return false
	}
	return a.Query == b.Query
}

// FinalizeArgs 终结参数
type FinalizeArgs struct {
	Summary string `json:"summary,omitempty"`
}

func (a *FinalizeArgs) Tool() ToolID { return ToolFinalAnswer }

func (a *FinalizeArgs) Equal(other Arguments) bool {
	_, ok := other.(*FinalizeArgs)
	// 终结动作不区分参数：两次 finalize 恒等价
	return ok
}

// NormalizeArguments 将模型产出的原始参数规范化为确定的结构。
//
// 规范化规则：
//   - 原始参数不是 JSON 对象时，整体视为 {"query": <原文>}
//   - retrieve_context 缺失 year/period 时从请求上下文补齐；
//     period 为数组时取第一个元素
//   - warehouse_query 的 "input" 键重命名为 "query"，
//     缺失 year/periods 时同样从请求上下文补齐
//   - query 为空（终结动作除外）判定为参数无效
func NormalizeArguments(tool ToolID, raw string, qctx QueryContext) (Arguments, *ValidationError) {
	fields := parseRawArgs(raw)

	switch tool {
	case ToolRetrieveContext:
		args := &RetrieveArgs{
			Query:  stringField(fields, "query"),
			Year:   stringField(fields, "year"),
			Period: stringField(fields, "period"),
		}
		if args.Year == "" {
			args.Year = qctx.Year
		}
		if args.Period == "" && len(qctx.Periods) > 0 {
			args.Period = qctx.Periods[0]
		}
		if args.Query == "" {
			return nil, &ValidationError{Tool: tool, Reason: "query is required"}
		}
		return args, nil

	case ToolWarehouseQuery:
		query := stringField(fields, "query")
		if query == "" {
			query = stringField(fields, "input")
		}
		if query == "" {
			return nil, &ValidationError{Tool: tool, Reason: "query is required"}
		}
		args := &WarehouseArgs{Query: query, Year: stringField(fields, "year")}
		if p := stringField(fields, "period"); p != "" {
			args.Periods = []string{p}
		}
		if args.Year == "" {
			args.Year = qctx.Year
		}
		if len(args.Periods) == 0 && len(qctx.Periods) > 0 {
			args.Periods = append([]string(nil), qctx.Periods...)
		}
		return args, nil

	case ToolWebSearch:
		query := stringField(fields, "query")
		if query == "" {
			return nil, &ValidationError{Tool: tool, Reason: "query is required"}
		}
		return &SearchArgs{Query: query}, nil

	case ToolFinalAnswer:
		return &FinalizeArgs{Summary: stringField(fields, "summary")}, nil

	default:
		return nil, &ValidationError{Tool: tool, Reason: "unknown tool"}
	}
}

// parseRawArgs 解析原始参数字符串。非对象的 JSON 或非 JSON 文本
// 一律折叠为 {"query": <原文>}，保证下游总能拿到 map。
func parseRawArgs(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err == nil {
		return fields
	}

	var scalar any
	if err := json.Unmarshal([]byte(raw), &scalar); err == nil {
		return map[string]any{"query": fmt.Sprintf("%v", scalar)}
	}
	return map[string]any{"query": raw}
}

// stringField 读取 map 中的字符串字段。数组取第一个元素，数值转为字符串。
func stringField(fields map[string]any, key string) string {
	v, ok := fields[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []any:
		if len(val) == 0 {
			return ""
		}
		return strings.TrimSpace(fmt.Sprintf("%v", val[0]))
	case float64:
		// JSON 数字按整数渲染，年份 2024 不能变成 2024.000000
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}
