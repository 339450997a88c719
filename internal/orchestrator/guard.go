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

import "strings"

// Guard 循环防护。Oracle 的每个非终结提案在执行前都要经过 Guard：
// 提案与任何一条已完成记录在 (工具, 规范化参数) 上完全重合时，
// 提案被改写为强制终结，保证控制循环必然收敛。
type Guard struct{}

// Check 审查提案。重复提案返回强制终结决策，其余原样放行。
// 对同一会话状态多次调用结果一致。
func (g *Guard) Check(s *Session, d *Decision) *Decision {
	if d == nil || d.Terminal() {
		return d
	}
	for _, rec := range s.Records {
		if rec.Tool != d.Tool {
			continue
		}
		if rec.Args != nil && d.Args != nil && rec.Args.Equal(d.Args) {
			return ForcedFinalize(s)
		}
	}
	return d
}

// ForcedFinalize 构造强制终结决策。摘要汇聚每个工具最近一次的执行结果，
// 终结记录必须带上已有发现而不是空手收场。
func ForcedFinalize(s *Session) *Decision {
	return &Decision{
		Tool:   ToolFinalAnswer,
		Args:   &FinalizeArgs{Summary: aggregateOutputs(s)},
		Forced: true,
	}
}

// aggregateOutputs 按工具聚合最近一次输出，顺序与工具清单一致
func aggregateOutputs(s *Session) string {
	if s == nil || len(s.Records) == 0 {
		return ""
	}
	latest := map[ToolID]string{}
	for _, rec := range s.Records {
		latest[rec.Tool] = rec.Output
	}
	var sb strings.Builder
	for _, d := range Descriptors(nil) {
		out, ok := latest[d.ID]
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(string(d.ID))
		sb.WriteString(": ")
		sb.WriteString(out)
	}
	return sb.String()
}
