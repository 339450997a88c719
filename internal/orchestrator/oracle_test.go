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
	"testing"

	"github.com/cloudwego/eino/schema"
)

func newTestOracle(t *testing.T, m *scriptedModel) *Oracle {
	t.Helper()
	o, err := NewOracle(OracleOptions{ChatModel: m, Company: "NVIDIA"})
	if err != nil {
		t.Fatalf("NewOracle: %v", err)
	}
	return o
}

func TestOracleDecidesToolCall(t *testing.T) {
	m := &scriptedModel{script: []scriptedTurn{
		{msg: toolCallMsg(ToolRetrieveContext, `{"query":"data center revenue"}`)},
	}}
	o := newTestOracle(t, m)

	s := NewSession(QueryContext{Query: "how did data center do", Year: "2024"})
	d, err := o.Decide(context.Background(), s)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Tool != ToolRetrieveContext {
		t.Fatalf("tool = %s", d.Tool)
	}
	ra := d.Args.(*RetrieveArgs)
	if ra.Query != "data center revenue" || ra.Year != "2024" {
		t.Errorf("args = %+v, year should be injected from the request", ra)
	}
}

func TestOraclePlainContentFinalizes(t *testing.T) {
	m := &scriptedModel{script: []scriptedTurn{
		{msg: contentMsg("Revenue grew 20% on data center demand.")},
	}}
	o := newTestOracle(t, m)

	d, err := o.Decide(context.Background(), NewSession(QueryContext{Query: "q"}))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Tool != ToolFinalAnswer {
		t.Fatalf("content-only response must finalize, got %s", d.Tool)
	}
	if fa := d.Args.(*FinalizeArgs); !strings.Contains(fa.Summary, "Revenue grew 20%") {
		t.Errorf("summary lost: %q", fa.Summary)
	}
}

func TestOracleRetriesThenFallsBack(t *testing.T) {
	m := &scriptedModel{script: []scriptedTurn{
		{err: fmt.Errorf("rate limited")},
		{err: fmt.Errorf("rate limited")},
	}}
	o := newTestOracle(t, m)

	d, err := o.Decide(context.Background(), NewSession(QueryContext{Query: "q"}))
	if err != nil {
		t.Fatalf("double failure must degrade, not error: %v", err)
	}
	if d.Tool != ToolFinalAnswer || !d.Forced {
		t.Fatalf("expected forced finalize fallback, got %+v", d)
	}
	if m.genErrs != 2 {
		t.Errorf("model called %d times with errors, want 2 (one retry)", m.genErrs)
	}
}

func TestOracleRetriesOnUnknownTool(t *testing.T) {
	m := &scriptedModel{script: []scriptedTurn{
		{msg: toolCallMsg(ToolID("hallucinated_tool"), `{}`)},
		{msg: toolCallMsg(ToolWebSearch, `{"query":"latest news"}`)},
	}}
	o := newTestOracle(t, m)

	d, err := o.Decide(context.Background(), NewSession(QueryContext{Query: "q"}))
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Tool != ToolWebSearch {
		t.Fatalf("retry should recover from hallucinated tool, got %s", d.Tool)
	}
}

func TestOracleGuardsDuplicateProposal(t *testing.T) {
	m := &scriptedModel{script: []scriptedTurn{
		{msg: toolCallMsg(ToolRetrieveContext, `{"query":"revenue"}`)},
	}}
	o := newTestOracle(t, m)

	s := sessionWith(record(1, "revenue", "already retrieved"))
	d, err := o.Decide(context.Background(), s)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if d.Tool != ToolFinalAnswer || !d.Forced {
		t.Fatalf("duplicate proposal must be forced to finalize, got %+v", d)
	}
}

func TestOraclePromptCarriesScratchpad(t *testing.T) {
	m := &scriptedModel{script: []scriptedTurn{
		{msg: toolCallMsg(ToolFinalAnswer, `{}`)},
	}}
	o := newTestOracle(t, m)

	s := sessionWith(record(1, "margins", "gross margin 75%"))
	if _, err := o.Decide(context.Background(), s); err != nil {
		t.Fatalf("decide: %v", err)
	}
	var userContent string
	for _, msg := range m.lastIn {
		if msg.Role == schema.User {
			userContent = msg.Content
		}
	}
	if !strings.Contains(userContent, "gross margin 75%") {
		t.Errorf("prompt missing prior tool output:\n%s", userContent)
	}
}
