package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// Runs against a live server started with `etiquetado serve` over the
// reference table, e.g.:
//
//	go run . -url http://localhost:8080 -token "$AUTH_TOKEN"

type MCPRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type MCPResponse struct {
	Result struct {
		IsError           bool            `json:"isError"`
		StructuredContent json.RawMessage `json:"structuredContent"`
		Content           []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// LabelResult is the subset of a food_label or preparation_label result checked here
type LabelResult struct {
	ServingSize  float64            `json:"serving_size"`
	PerServing   map[string]float64 `json:"per_serving"`
	WarningTexts []string           `json:"warning_texts"`
}

type LabelCase struct {
	Tool         string
	Arguments    map[string]any
	ExpectedKcal float64
}

// knownSeals are the only warning texts a label may carry
var knownSeals = map[string]bool{
	"ALTO EN CALORÍAS":         true,
	"ALTO EN AZÚCARES":         true,
	"ALTO EN GRASAS SATURADAS": true,
	"ALTO EN SODIO":            true,
}

var (
	serverURL   = flag.String("url", "http://localhost:8080", "server base URL")
	authToken   = flag.String("token", os.Getenv("AUTH_TOKEN"), "bearer token")
	maxDuration = flag.Duration("max", time.Second, "maximum duration of one tool call")
	testRuns    = flag.Int("runs", 5, "times each label case is run")
)

func main() {
	flag.Parse()

	fmt.Printf("🧪 Running acceptance tests for etiquetado\n")
	fmt.Printf("Expected: All tool calls should complete in under %v\n\n", *maxDuration)

	steps := []struct {
		name string
		run  func() error
	}{
		{"health endpoint (no auth)", testHealth},
		{"MCP endpoint without auth is rejected", func() error { return expectStatus("", http.StatusUnauthorized) }},
		{"MCP endpoint with wrong auth is rejected", func() error { return expectStatus("wrong-token", http.StatusUnauthorized) }},
		{"MCP endpoint with correct auth", func() error { return expectStatus(*authToken, http.StatusOK) }},
		{"label tools", testLabels},
	}

	for i, step := range steps {
		fmt.Printf("%d. Testing %s...\n", i+1, step.name)
		if err := step.run(); err != nil {
			fmt.Printf("❌ %s failed: %v\n", step.name, err)
			os.Exit(1)
		}
		fmt.Printf("✅ %s passed\n\n", step.name)
	}

	fmt.Printf("🎉 All acceptance tests passed!\n")
}

func testHealth() error {
	resp, err := http.Get(*serverURL + "/health")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
		Foods  int    `json:"foods"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if body.Status != "healthy" || body.Foods == 0 {
		return fmt.Errorf("unexpected health response: %+v", body)
	}
	fmt.Printf("   catalog has %d foods\n", body.Foods)
	return nil
}

func post(token string, req MCPRequest) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequest(http.MethodPost, *serverURL+"/mcp", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(httpReq)
}

func expectStatus(token string, expected int) error {
	resp, err := post(token, MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
	return nil
}

func callTool(id int, name string, args map[string]any) (*MCPResponse, time.Duration, error) {
	start := time.Now()
	resp, err := post(*authToken, MCPRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "tools/call",
		Params:  CallToolParams{Name: name, Arguments: args},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, duration, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var out MCPResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, duration, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return nil, duration, fmt.Errorf("JSON-RPC error %d: %s", out.Error.Code, out.Error.Message)
	}
	if out.Result.IsError {
		text := ""
		if len(out.Result.Content) > 0 {
			text = out.Result.Content[0].Text
		}
		return nil, duration, fmt.Errorf("tool error: %s", text)
	}
	return &out, duration, nil
}

func testLabels() error {
	out, _, err := callTool(2, "search_food", map[string]any{"query": "platano"})
	if err != nil {
		return fmt.Errorf("search_food: %w", err)
	}
	var found struct {
		Found bool `json:"found"`
		Food  struct {
			Name string `json:"name"`
		} `json:"food"`
		Per100 map[string]float64 `json:"per_100"`
	}
	if err := json.Unmarshal(out.Result.StructuredContent, &found); err != nil {
		return fmt.Errorf("failed to decode search_food result: %w", err)
	}
	if !found.Found {
		return fmt.Errorf("search_food did not find \"platano\"")
	}
	kcal := found.Per100["energy"]
	fmt.Printf("   %s: %.2f kcal per 100 g\n", found.Food.Name, kcal)

	cases := []LabelCase{
		{
			Tool:         "food_label",
			Arguments:    map[string]any{"query": "platano", "serving_size": 120},
			ExpectedKcal: kcal * 1.2,
		},
		{
			Tool: "preparation_label",
			Arguments: map[string]any{
				"name": "Plátano doble",
				"ingredients": []map[string]any{
					{"name": found.Food.Name, "quantity": 100},
					{"name": found.Food.Name, "quantity": 50},
				},
				"serving_size": 100,
			},
			ExpectedKcal: kcal,
		},
	}

	requestID := 10
	for _, tc := range cases {
		var total, slowest time.Duration
		for run := 1; run <= *testRuns; run++ {
			requestID++
			out, duration, err := callTool(requestID, tc.Tool, tc.Arguments)
			if err != nil {
				return fmt.Errorf("%s run %d: %w", tc.Tool, run, err)
			}
			total += duration
			if duration > slowest {
				slowest = duration
			}
			if duration > *maxDuration {
				return fmt.Errorf("%s run %d took %v, limit %v", tc.Tool, run, duration, *maxDuration)
			}
			if err := validateLabel(out, tc); err != nil {
				return fmt.Errorf("%s run %d: %w", tc.Tool, run, err)
			}
		}
		fmt.Printf("   %s: avg %v, max %v over %d runs\n", tc.Tool, total/time.Duration(*testRuns), slowest, *testRuns)
	}
	return nil
}

func validateLabel(out *MCPResponse, tc LabelCase) error {
	var result LabelResult
	if err := json.Unmarshal(out.Result.StructuredContent, &result); err != nil {
		return fmt.Errorf("failed to decode structured content: %w", err)
	}

	if kcal := result.PerServing["energy"]; math.Abs(kcal-tc.ExpectedKcal) > 1e-6 {
		return fmt.Errorf("expected %.2f kcal per serving, got %.4f", tc.ExpectedKcal, kcal)
	}
	for _, seal := range result.WarningTexts {
		if !knownSeals[seal] {
			return fmt.Errorf("unexpected seal %q", seal)
		}
	}
	return nil
}
