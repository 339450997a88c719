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
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

func apiBaseURL() string {
	if u := os.Getenv("RESEARCH_API_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newClient() *resty.Client {
	c := resty.New().
		SetBaseURL(apiBaseURL()).
		SetTimeout(5 * time.Minute).
		SetHeader("Content-Type", "application/json")
	if token := os.Getenv("RESEARCH_API_TOKEN"); token != "" {
		c.SetAuthToken(token)
	}
	return c
}

func checkHealth() error {
	resp, err := newClient().R().Get("/api/health")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("GET /api/health: %s", resp.String())
	}
	return nil
}

func postQuery(query, year string, quarters, tools []string) (map[string]interface{}, error) {
	body := map[string]interface{}{"query": query}
	if year != "" {
		body["year"] = year
	}
	if len(quarters) > 0 {
		body["quarters"] = quarters
	}
	if len(tools) > 0 {
		body["tools"] = tools
	}
	var out map[string]interface{}
	resp, err := newClient().R().
		SetBody(body).
		SetResult(&out).
		Post("/api/research/query")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("POST /api/research/query: %s", resp.String())
	}
	return out, nil
}

func listTools() ([]map[string]interface{}, error) {
	var out struct {
		Tools []map[string]interface{} `json:"tools"`
	}
	resp, err := newClient().R().
		SetResult(&out).
		Get("/api/research/tools")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/research/tools: %s", resp.String())
	}
	return out.Tools, nil
}

func getChart(id string) (map[string]interface{}, error) {
	var out map[string]interface{}
	resp, err := newClient().R().
		SetResult(&out).
		Get("/api/charts/" + id)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("GET /api/charts/%s: %s", id, resp.String())
	}
	return out, nil
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
