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

const (
	// DefaultScratchpadBudget Scratchpad 渲染的默认字符预算
	DefaultScratchpadBudget = 12000

	omittedMarker = "[earlier steps omitted]"
)

// Scratchpad 将会话记录渲染为 Oracle 可读的研究轨迹文本。
// 预算裁剪以整条记录为粒度，从最旧的记录开始丢弃，
// 被丢弃的部分用省略标记占位，最新记录始终保留。
type Scratchpad struct {
	Budget int
}

// NewScratchpad 创建 Scratchpad，budget <= 0 时使用默认预算。
func NewScratchpad(budget int) *Scratchpad {
	if budget <= 0 {
		budget = DefaultScratchpadBudget
	}
	return &Scratchpad{Budget: budget}
}

// Render 渲染全部记录。无记录时返回空串。
func (p *Scratchpad) Render(records []ActionRecord) string {
	if len(records) == 0 {
		return ""
	}

	entries := make([]string, len(records))
	for i, rec := range records {
		entries[i] = renderEntry(rec)
	}

	// 从最新记录向前累计，放不下的整条丢弃
	total := 0
	keep := len(entries)
	for i := len(entries) - 1; i >= 0; i-- {
		size := len(entries[i])
		if total > 0 {
			size += 2 // 条目间的空行
		}
		if total+size > p.Budget {
			break
		}
		total += size
		keep = i
	}

	if keep == len(entries) {
		// 连最新一条都放不下：按预算截断该条，保留行首的动作标识
		last := entries[len(entries)-1]
		if p.Budget > len(omittedMarker) {
			return last[:p.Budget-len(omittedMarker)] + omittedMarker
		}
		return last[:p.Budget]
	}

	var sb strings.Builder
	if keep > 0 {
		sb.WriteString(omittedMarker)
		sb.WriteString("\n\n")
	}
	for i := keep; i < len(entries); i++ {
		if i > keep {
			sb.WriteString("\n\n")
		}
		sb.WriteString(entries[i])
	}
	return sb.String()
}

func renderEntry(rec ActionRecord) string {
	args := "{}"
	if rec.Args != nil {
		if b, err := json.Marshal(rec.Args); err == nil {
			args = string(b)
		}
	}
	return fmt.Sprintf("Step %d: tool=%s, input=%s\nResult: %s", rec.Step, rec.Tool, args, rec.Output)
}
