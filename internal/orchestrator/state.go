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
	"time"

	"github.com/google/uuid"
)

// Decision Oracle 单轮决策：下一步调用哪个工具、带什么参数。
// Forced 表示该决策由 Loop Guard 强制改写为终结。
type Decision struct {
	Tool    ToolID
	Args    Arguments
	RawArgs string
	Forced  bool
}

// Terminal 判断决策是否终结控制循环
func (d *Decision) Terminal() bool {
	return d != nil && d.Tool.IsTerminal()
}

// ActionRecord 一次已完成的工具调用记录。记录只追加，不回改。
type ActionRecord struct {
	Step    int
	Tool    ToolID
	Args    Arguments
	Output  string
	Failed  bool
	Elapsed time.Duration
}

// Session 一次研究会话的全部状态。
// 在执行图中沿边传递，节点通过 Advance/WithDecision 派生新值，
// 已有记录不被任何节点改写。
type Session struct {
	ID      string
	Request QueryContext
	Records []ActionRecord
	Pending *Decision
	Forced  bool
	Report  *Report
	Started time.Time
}

// NewSession 创建新会话
func NewSession(req QueryContext) *Session {
	return &Session{
		ID:      uuid.New().String(),
		Request: req,
		Started: time.Now(),
	}
}

// WithDecision 派生一个携带待执行决策的会话副本
func (s *Session) WithDecision(d *Decision) *Session {
	clone := s.clone()
	clone.Pending = d
	if d != nil && d.Forced {
		clone.Forced = true
	}
	return clone
}

// Advance 派生一个追加了新记录并清空待执行决策的会话副本。
// 原会话的记录切片不被共享，调用方持有的旧值保持不变。
func (s *Session) Advance(rec ActionRecord) *Session {
	clone := s.clone()
	records := make([]ActionRecord, len(s.Records), len(s.Records)+1)
	copy(records, s.Records)
	clone.Records = append(records, rec)
	clone.Pending = nil
	return clone
}

// WithReport 派生一个携带最终报告的会话副本
func (s *Session) WithReport(r *Report) *Session {
	clone := s.clone()
	clone.Report = r
	return clone
}

// Finalize 派生终结后的会话副本：追加一条 final_answer 记录并携带最终报告。
// 研究轨迹因此自含，最后一条记录必然是终结动作。
func (s *Session) Finalize(report *Report) *Session {
	var args Arguments = &FinalizeArgs{}
	if s.Pending != nil && s.Pending.Args != nil {
		args = s.Pending.Args
	}
	rec := ActionRecord{
		Step:   len(s.Records) + 1,
		Tool:   ToolFinalAnswer,
		Args:   args,
		Output: report.Summary,
	}
	return s.Advance(rec).WithReport(report)
}

// Steps 已完成的工具调用次数
func (s *Session) Steps() int {
	return len(s.Records)
}

func (s *Session) clone() *Session {
	clone := *s
	return &clone
}
