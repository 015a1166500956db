package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vision-relay-go/src/configs"
	"vision-relay-go/src/core/image"
	"vision-relay-go/src/core/providers/vlllm"
	"vision-relay-go/src/core/utils"
)

func newTestLogger(t *testing.T) *utils.Logger {
	t.Helper()
	config := configs.DefaultConfig()
	config.Log.LogDir = ""
	logger, err := utils.NewLogger(config)
	if err != nil {
		t.Fatalf("创建logger失败: %v", err)
	}
	return logger
}

func newTestProvider(t *testing.T, baseURL string) vlllm.Provider {
	t.Helper()
	provider, err := NewProvider(&vlllm.Config{
		Type:      "openai",
		ModelName: "gpt-4o",
		BaseURL:   baseURL,
		APIKey:    "sk-test",
		MaxTokens: 1000,
	}, newTestLogger(t))
	if err != nil {
		t.Fatalf("创建provider失败: %v", err)
	}
	if err := provider.Initialize(); err != nil {
		t.Fatalf("初始化provider失败: %v", err)
	}
	return provider
}

func TestAnalyze_Success(t *testing.T) {
	var gotRequest map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("请求路径 = %q, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want Bearer sk-test", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotRequest)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "X"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL+"/v1")
	result, err := provider.Analyze(context.Background(), image.ImageData{Data: "AAAA", Format: "png"}, "describe")
	if err != nil {
		t.Fatalf("Analyze返回错误: %v", err)
	}

	if result.Description != "X" {
		t.Errorf("Description = %q, want %q", result.Description, "X")
	}
	if result.PromptTokens != 10 || result.CompletionTokens != 5 {
		t.Errorf("usage = %d/%d, want 10/5", result.PromptTokens, result.CompletionTokens)
	}
	if gotRequest["model"] != "gpt-4o" {
		t.Errorf("上游请求model = %v, want gpt-4o", gotRequest["model"])
	}
}

func TestAnalyze_UpstreamUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "bad key", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL+"/v1")
	_, err := provider.Analyze(context.Background(), image.ImageData{Data: "AAAA", Format: "png"}, "")
	if err == nil {
		t.Fatal("期望Analyze返回错误")
	}

	var upstreamErr *vlllm.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("错误类型 = %T, want *vlllm.UpstreamError", err)
	}
	if upstreamErr.Message != "bad key" {
		t.Errorf("Message = %q, want %q", upstreamErr.Message, "bad key")
	}
}

func TestAnalyze_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [], "usage": {"prompt_tokens": 1, "completion_tokens": 0}}`))
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL+"/v1")
	_, err := provider.Analyze(context.Background(), image.ImageData{Data: "AAAA", Format: "png"}, "")
	if err == nil {
		t.Fatal("期望Analyze返回错误")
	}

	var upstreamErr *vlllm.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("错误类型 = %T, want *vlllm.UpstreamError", err)
	}
}

func TestAnalyze_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 立即关闭，模拟网络失败

	provider := newTestProvider(t, server.URL+"/v1")
	_, err := provider.Analyze(context.Background(), image.ImageData{Data: "AAAA", Format: "png"}, "")
	if err == nil {
		t.Fatal("期望Analyze返回错误")
	}

	var upstreamErr *vlllm.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("错误类型 = %T, want *vlllm.UpstreamError", err)
	}
	if upstreamErr.Message == "" {
		t.Error("网络失败应携带通用描述")
	}
}

func TestInitialize_MissingAPIKey(t *testing.T) {
	provider, err := NewProvider(&vlllm.Config{Type: "openai", ModelName: "gpt-4o"}, newTestLogger(t))
	if err != nil {
		t.Fatalf("创建provider失败: %v", err)
	}
	if err := provider.Initialize(); err == nil {
		t.Error("缺少API密钥时Initialize应返回错误")
	}
}
