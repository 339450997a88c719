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

package research

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"

	"research-platform/internal/orchestrator"
	"research-platform/pkg/config"
	"research-platform/pkg/errors"
	"research-platform/pkg/log"
)

// Request 一次研究请求
type Request struct {
	Query    string   `json:"query"`
	Year     string   `json:"year,omitempty"`
	Quarters []string `json:"quarters,omitempty"`
	Tools    []string `json:"tools,omitempty"`
}

// Response 研究结果
type Response struct {
	SessionID string               `json:"session_id"`
	Answer    string               `json:"answer"`
	Report    *orchestrator.Report `json:"report"`
	Steps     int                  `json:"steps"`
	Forced    bool                 `json:"forced"`
	Elapsed   string               `json:"elapsed"`
}

// ToolDescriptor 对外暴露的工具说明
type ToolDescriptor struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// Service 研究服务门面：组装控制循环并暴露领域操作
type Service struct {
	engine    *orchestrator.Engine
	available []orchestrator.ToolID
	logger    *log.Logger
}

// ServiceOptions Service 构造参数
type ServiceOptions struct {
	ChatModel model.ToolCallingChatModel
	Adapters  map[orchestrator.ToolID]orchestrator.Adapter
	Company   string
	Config    config.OrchestratorConfig
	Logger    *log.Logger
}

// NewService 组装研究服务
func NewService(ctx context.Context, opts ServiceOptions) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	scratchpad := orchestrator.NewScratchpad(opts.Config.ScratchpadBudget)

	oracle, err := orchestrator.NewOracle(orchestrator.OracleOptions{
		ChatModel:  opts.ChatModel,
		Scratchpad: scratchpad,
		Company:    opts.Company,
		Timeout:    parseDuration(opts.Config.DecideTimeout, 60*time.Second),
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	dispatcher := orchestrator.NewDispatcher(orchestrator.DispatcherOptions{
		Adapters:     opts.Adapters,
		ToolTimeout:  parseDuration(opts.Config.ToolTimeout, 30*time.Second),
		RetryMax:     opts.Config.ToolRetryMax,
		ResultBudget: opts.Config.ResultBudget,
		Logger:       logger,
	})

	synthesizer := orchestrator.NewSynthesizer(orchestrator.SynthesizerOptions{
		ChatModel:  opts.ChatModel,
		Scratchpad: scratchpad,
		Company:    opts.Company,
		Logger:     logger,
	})

	engine, err := orchestrator.NewEngine(ctx, orchestrator.EngineOptions{
		Oracle:      oracle,
		Dispatcher:  dispatcher,
		Synthesizer: synthesizer,
		MaxSteps:    opts.Config.MaxSteps,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	// 仅向 Oracle 暴露有后端支撑的工具，按 Descriptors 的规范顺序
	var available []orchestrator.ToolID
	for _, d := range orchestrator.Descriptors(nil) {
		if _, ok := opts.Adapters[d.ID]; ok {
			available = append(available, d.ID)
		}
	}
	return &Service{engine: engine, available: available, logger: logger}, nil
}

// Research 执行一次完整研究会话
func (s *Service) Research(ctx context.Context, req Request) (*Response, error) {
	if req.Query == "" {
		return nil, errors.Wrap(errors.ErrInvalidArg, "query is required")
	}
	qctx := orchestrator.QueryContext{
		Query:   req.Query,
		Year:    req.Year,
		Periods: req.Quarters,
	}
	for _, name := range req.Tools {
		id, err := orchestrator.ParseToolID(name)
		if err != nil {
			return nil, err
		}
		qctx.Enabled = append(qctx.Enabled, id)
	}
	if len(qctx.Enabled) == 0 {
		qctx.Enabled = s.available
	}

	session, err := s.engine.Run(ctx, qctx)
	if err != nil {
		return nil, err
	}
	return &Response{
		SessionID: session.ID,
		Answer:    session.Report.Render(),
		Report:    session.Report,
		Steps:     session.Steps(),
		Forced:    session.Forced,
		Elapsed:   time.Since(session.Started).Round(time.Millisecond).String(),
	}, nil
}

// Tools 返回可用工具清单
func (s *Service) Tools() []ToolDescriptor {
	descs := orchestrator.Descriptors(nil)
	out := make([]ToolDescriptor, 0, len(descs))
	for _, d := range descs {
		out = append(out, ToolDescriptor{Name: string(d.ID), Desc: d.Info.Desc})
	}
	return out
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
