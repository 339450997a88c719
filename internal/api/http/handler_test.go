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

package http

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"

	"research-platform/internal/orchestrator"
	"research-platform/internal/research"
	"research-platform/pkg/config"
)

// replayModel 按脚本回放的 ChatModel
type replayModel struct {
	mu     sync.Mutex
	turns  []*schema.Message
	cursor int
}

func (m *replayModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor >= len(m.turns) {
		return nil, fmt.Errorf("no scripted response left")
	}
	msg := m.turns[m.cursor]
	m.cursor++
	return msg, nil
}

func (m *replayModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not supported in tests")
}

func (m *replayModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func newTestServer(t *testing.T, turns []*schema.Message) *server.Hertz {
	t.Helper()
	svc, err := research.NewService(context.Background(), research.ServiceOptions{
		ChatModel: &replayModel{turns: turns},
		Adapters:  map[orchestrator.ToolID]orchestrator.Adapter{},
		Company:   "NVIDIA",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	h := server.Default(server.WithHostPorts(":0"))
	handler := NewHandler(svc, nil, nil)
	if err := Register(h, handler, config.APIConfig{}, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return h
}

func performJSON(h *server.Hertz, method, path string, body []byte) *ut.ResponseRecorder {
	return ut.PerformRequest(h.Engine, method, path,
		&ut.Body{Body: bytes.NewReader(body), Len: len(body)},
		ut.Header{Key: "Content-Type", Value: "application/json"})
}

func TestHealthCheck(t *testing.T) {
	h := newTestServer(t, nil)
	w := ut.PerformRequest(h.Engine, "GET", "/api/health", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Errorf("HealthCheck status: got %d", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("ok")) {
		t.Errorf("HealthCheck body: %s", resp.Body())
	}
}

func TestResearchQuery(t *testing.T) {
	h := newTestServer(t, []*schema.Message{
		{Role: schema.Assistant, Content: "Revenue grew 20% on data center demand."},
		{Role: schema.Assistant, Content: `{"summary":"strong quarter","sources":["Q1 call"]}`},
	})

	body := []byte(`{"query":"how was the quarter","year":"2024","quarters":["Q1"]}`)
	w := performJSON(h, "POST", "/api/research/query", body)
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("status = %d, body: %s", resp.StatusCode(), resp.Body())
	}
	if !bytes.Contains(resp.Body(), []byte("strong quarter")) {
		t.Errorf("answer missing from body: %s", resp.Body())
	}
	if !bytes.Contains(resp.Body(), []byte("session_id")) {
		t.Errorf("session_id missing from body: %s", resp.Body())
	}
}

func TestResearchQueryMissingQuery(t *testing.T) {
	h := newTestServer(t, nil)
	w := performJSON(h, "POST", "/api/research/query", []byte(`{}`))
	resp := w.Result()
	if resp.StatusCode() != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode())
	}
	if !bytes.Contains(resp.Body(), []byte("query is required")) {
		t.Errorf("body: %s", resp.Body())
	}
}

func TestResearchQueryUnknownTool(t *testing.T) {
	h := newTestServer(t, nil)
	body := []byte(`{"query":"q","tools":["delete_everything"]}`)
	w := performJSON(h, "POST", "/api/research/query", body)
	resp := w.Result()
	if resp.StatusCode() != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode())
	}
}

func TestListTools(t *testing.T) {
	h := newTestServer(t, nil)
	w := ut.PerformRequest(h.Engine, "GET", "/api/research/tools", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	for _, tool := range []string{"retrieve_context", "warehouse_query", "web_search", "final_answer"} {
		if !bytes.Contains(resp.Body(), []byte(tool)) {
			t.Errorf("tool %s missing from body: %s", tool, resp.Body())
		}
	}
}

func TestGetChartWithoutStore(t *testing.T) {
	h := newTestServer(t, nil)
	w := ut.PerformRequest(h.Engine, "GET", "/api/charts/abc", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	resp := w.Result()
	if resp.StatusCode() != 503 {
		t.Errorf("status = %d, want 503", resp.StatusCode())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, nil)
	w := ut.PerformRequest(h.Engine, "GET", "/api/system/metrics", &ut.Body{Body: bytes.NewReader(nil), Len: 0})
	resp := w.Result()
	if resp.StatusCode() != 200 {
		t.Fatalf("status = %d", resp.StatusCode())
	}
}
