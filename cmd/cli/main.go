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
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"research-platform/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("research-platform cli 0.1.0")
	case "health":
		runHealth()
	case "config":
		runConfig()
	case "server":
		if len(args) > 0 && args[0] == "start" {
			runServerStart()
		} else {
			fmt.Fprintf(os.Stderr, "Usage: research server start\n")
			os.Exit(1)
		}
	case "ask":
		runAsk(args)
	case "tools":
		runTools()
	case "chart":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: research chart <id>\n")
			os.Exit(1)
		}
		runChart(args[0])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: research <command> [args]")
	fmt.Println("  version             - 显示版本")
	fmt.Println("  health              - 检查 API 服务健康状态")
	fmt.Println("  config              - 显示配置概要")
	fmt.Println("  server start        - 启动 API 服务（go run ./cmd/api）")
	fmt.Println("  ask <query> [flags] - 提交研究问题，输出报告")
	fmt.Println("      -year 2024 -quarters Q1,Q2 -tools retrieve_context,web_search -json")
	fmt.Println("  tools               - 列出可用研究工具")
	fmt.Println("  chart <id>          - 获取图表数据")
}

func runHealth() {
	if err := checkHealth(); err != nil {
		fmt.Fprintf(os.Stderr, "健康检查失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func runConfig() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("api.port=%d\n", cfg.API.Port)
	fmt.Printf("api.host=%s\n", cfg.API.Host)
	fmt.Printf("research.company=%s\n", cfg.Research.Company)
	fmt.Printf("retrieval.type=%s\n", cfg.Retrieval.Type)
}

func runServerStart() {
	c := exec.Command("go", "run", "./cmd/api")
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = "."
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server start: %v\n", err)
		os.Exit(1)
	}
}

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	year := fs.String("year", "", "财年，如 2024")
	quarters := fs.String("quarters", "", "季度列表，逗号分隔，如 Q1,Q2")
	tools := fs.String("tools", "", "允许的工具列表，逗号分隔")
	asJSON := fs.Bool("json", false, "输出完整 JSON 响应")

	var query string
	rest := args
	if len(rest) > 0 && !strings.HasPrefix(rest[0], "-") {
		query = rest[0]
		rest = rest[1:]
	}
	_ = fs.Parse(rest)
	if query == "" && fs.NArg() > 0 {
		query = fs.Arg(0)
	}
	if query == "" {
		fmt.Fprintf(os.Stderr, "Usage: research ask <query> [-year 2024] [-quarters Q1,Q2] [-tools ...]\n")
		os.Exit(1)
	}

	out, err := postQuery(query, *year, splitList(*quarters), splitList(*tools))
	if err != nil {
		fmt.Fprintf(os.Stderr, "研究请求失败: %v\n", err)
		os.Exit(1)
	}
	if *asJSON {
		fmt.Println(prettyJSON(out))
		return
	}
	if answer, ok := out["answer"].(string); ok && answer != "" {
		fmt.Println(answer)
	} else {
		fmt.Println(prettyJSON(out))
	}
}

func runTools() {
	tools, err := listTools()
	if err != nil {
		fmt.Fprintf(os.Stderr, "列出工具失败: %v\n", err)
		os.Exit(1)
	}
	for _, t := range tools {
		name, _ := t["name"].(string)
		desc, _ := t["desc"].(string)
		fmt.Printf("%-20s %s\n", name, desc)
	}
}

func runChart(id string) {
	chart, err := getChart(id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取图表失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(chart))
}

// splitList 拆分逗号分隔的参数，过滤空项
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
