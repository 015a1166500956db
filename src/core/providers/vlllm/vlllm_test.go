package vlllm

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveInstruction(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		configured  string
		expected    string
	}{
		{
			name:        "显式指令优先",
			instruction: "描述图中的裂缝",
			configured:  "配置的指令",
			expected:    "描述图中的裂缝",
		},
		{
			name:        "空指令回落到配置指令",
			instruction: "",
			configured:  "配置的指令",
			expected:    "配置的指令",
		},
		{
			name:        "全部为空使用内置默认指令",
			instruction: "",
			configured:  "",
			expected:    DefaultInstruction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ResolveInstruction(tt.instruction, tt.configured)
			if result != tt.expected {
				t.Errorf("ResolveInstruction() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestUpstreamError(t *testing.T) {
	t.Run("携带上游消息", func(t *testing.T) {
		err := NewUpstreamError("bad key", nil)
		if err.Error() != "bad key" {
			t.Errorf("Error() = %q, want %q", err.Error(), "bad key")
		}
	})

	t.Run("空消息使用通用描述", func(t *testing.T) {
		err := NewUpstreamError("", errors.New("connection refused"))
		if err.Error() == "" {
			t.Error("通用描述不应为空")
		}
		if !errors.Is(err, err.Err) {
			t.Error("Unwrap应返回底层错误")
		}
	})
}

func TestBuildDataURI(t *testing.T) {
	t.Run("带格式", func(t *testing.T) {
		uri := BuildDataURI("AAAA", "png")
		if uri != "data:image/png;base64,AAAA" {
			t.Errorf("BuildDataURI() = %q", uri)
		}
	})

	t.Run("空格式默认jpeg", func(t *testing.T) {
		uri := BuildDataURI("AAAA", "")
		if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
			t.Errorf("BuildDataURI() = %q, 期望jpeg前缀", uri)
		}
	})
}
