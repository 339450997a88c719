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
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"research-platform/pkg/log"
	"research-platform/pkg/metrics"
)

// Oracle 决策步。每轮读取研究轨迹，产出且仅产出一个工具调用决策。
// 决策失败（模型错误、未知工具、参数无效）重试一次，仍失败则降级为终结，
// 任何情况下都不会让会话悬停。
type Oracle struct {
	chatModel   model.ToolCallingChatModel
	scratchpad  *Scratchpad
	guard       *Guard
	descriptors []Descriptor
	company     string
	timeout     time.Duration
	logger      *log.Logger
}

// OracleOptions Oracle 构造参数
type OracleOptions struct {
	ChatModel   model.ToolCallingChatModel
	Scratchpad  *Scratchpad
	Descriptors []Descriptor
	Company     string
	Timeout     time.Duration
	Logger      *log.Logger
}

// NewOracle 创建决策步。工具清单在每轮决策时按会话启用集绑定。
func NewOracle(opts OracleOptions) (*Oracle, error) {
	if opts.ChatModel == nil {
		return nil, fmt.Errorf("oracle requires a chat model")
	}
	descriptors := opts.Descriptors
	if len(descriptors) == 0 {
		descriptors = Descriptors(nil)
	}
	scratchpad := opts.Scratchpad
	if scratchpad == nil {
		scratchpad = NewScratchpad(0)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Oracle{
		chatModel:   opts.ChatModel,
		scratchpad:  scratchpad,
		guard:       &Guard{},
		descriptors: descriptors,
		company:     opts.Company,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// Decide 产出经过 Guard 审查的下一步决策
func (o *Oracle) Decide(ctx context.Context, s *Session) (*Decision, error) {
	d, err := o.propose(ctx, s)
	if err != nil {
		metrics.DecisionRetryTotal.Inc()
		o.logger.Warn("decision failed, retrying", "session", s.ID, "step", s.Steps(), "error", err)
		d, err = o.propose(ctx, s)
	}
	if err != nil {
		// 两次决策都失败：降级终结，由 Synthesizer 基于已有记录收尾
		o.logger.Error("decision failed twice, falling back to finalize", "session", s.ID, "error", err)
		return ForcedFinalize(s), nil
	}

	checked := o.guard.Check(s, d)
	if checked != d && checked.Forced {
		metrics.ForcedFinalizeTotal.Inc()
		o.logger.Info("duplicate tool call intercepted, forcing finalize",
			"session", s.ID, "tool", d.Tool, "step", s.Steps())
	}
	return checked, nil
}

// propose 单次模型决策
func (o *Oracle) propose(ctx context.Context, s *Session) (*Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	descs := o.descriptorsFor(s)
	bound, err := o.chatModel.WithTools(ToolInfos(descs))
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	resp, err := bound.Generate(ctx, o.buildMessages(s, descs))
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		metrics.LLMTokensTotal.WithLabelValues("prompt").Add(float64(resp.ResponseMeta.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues("completion").Add(float64(resp.ResponseMeta.Usage.CompletionTokens))
	}

	// 模型直接给出文本而非工具调用时，视为终结
	if len(resp.ToolCalls) == 0 {
		return &Decision{
			Tool: ToolFinalAnswer,
			Args: &FinalizeArgs{Summary: strings.TrimSpace(resp.Content)},
		}, nil
	}

	call := resp.ToolCalls[0]
	tool, err := ParseToolID(call.Function.Name)
	if err != nil {
		return nil, err
	}
	if !toolEnabled(tool, descs) {
		return nil, fmt.Errorf("tool %s not enabled for this session", tool)
	}
	args, verr := NormalizeArguments(tool, call.Function.Arguments, s.Request)
	if verr != nil {
		return nil, verr
	}
	return &Decision{Tool: tool, Args: args, RawArgs: call.Function.Arguments}, nil
}

func toolEnabled(tool ToolID, descs []Descriptor) bool {
	for _, d := range descs {
		if d.ID == tool {
			return true
		}
	}
	return false
}

// descriptorsFor 会话启用了工具子集时返回子集清单
func (o *Oracle) descriptorsFor(s *Session) []Descriptor {
	if len(s.Request.Enabled) == 0 {
		return o.descriptors
	}
	return Descriptors(s.Request.Enabled)
}

func (o *Oracle) buildMessages(s *Session, descs []Descriptor) []*schema.Message {
	var sys strings.Builder
	sys.WriteString("You are a research orchestrator for ")
	if o.company != "" {
		sys.WriteString(o.company)
	} else {
		sys.WriteString("the target company")
	}
	sys.WriteString(". On each turn pick exactly one tool to call next.\n")
	sys.WriteString("Call final_answer once the gathered evidence is sufficient to answer the question.\n")
	sys.WriteString("Never repeat a tool call with the same arguments, and do not call any tool more than twice in a session.\n\nAvailable tools:\n")
	for _, d := range descs {
		sys.WriteString("- ")
		sys.WriteString(string(d.ID))
		sys.WriteString(": ")
		sys.WriteString(d.Info.Desc)
		sys.WriteString("\n")
	}

	var user strings.Builder
	user.WriteString("Question: ")
	user.WriteString(s.Request.Query)
	user.WriteString("\n")
	if s.Request.Year != "" {
		user.WriteString("Fiscal year: ")
		user.WriteString(s.Request.Year)
		user.WriteString("\n")
	}
	if len(s.Request.Periods) > 0 {
		user.WriteString("Quarters: ")
		user.WriteString(strings.Join(s.Request.Periods, ", "))
		user.WriteString("\n")
	}
	if pad := o.scratchpad.Render(s.Records); pad != "" {
		user.WriteString("\nResearch so far:\n")
		user.WriteString(pad)
	} else {
		user.WriteString("\nNo research has been done yet.")
	}

	return []*schema.Message{
		schema.SystemMessage(sys.String()),
		schema.UserMessage(user.String()),
	}
}
