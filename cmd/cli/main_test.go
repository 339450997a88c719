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

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"Q1", []string{"Q1"}},
		{"Q1,Q2", []string{"Q1", "Q2"}},
		{" Q1 , Q2 ,", []string{"Q1", "Q2"}},
		{",,", []string{}},
	}
	for _, c := range cases {
		got := splitList(c.raw)
		if len(got) == 0 && len(c.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("splitList(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestPostQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/research/query" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["query"] != "how was Q1" {
			t.Errorf("query = %v", body["query"])
		}
		if body["year"] != "2024" {
			t.Errorf("year = %v", body["year"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_id":"s1","answer":"fine quarter"}`))
	}))
	defer srv.Close()
	t.Setenv("RESEARCH_API_URL", srv.URL)

	out, err := postQuery("how was Q1", "2024", []string{"Q1"}, nil)
	if err != nil {
		t.Fatalf("postQuery: %v", err)
	}
	if out["answer"] != "fine quarter" {
		t.Errorf("answer = %v", out["answer"])
	}
}

func TestPostQueryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"query is required"}`))
	}))
	defer srv.Close()
	t.Setenv("RESEARCH_API_URL", srv.URL)

	if _, err := postQuery("q", "", nil, nil); err == nil {
		t.Fatal("expected error on 400 response")
	}
}
