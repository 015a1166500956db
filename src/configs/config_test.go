package configs

import (
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Server.Port != 3000 {
		t.Errorf("默认端口 = %d, want 3000", config.Server.Port)
	}
	if config.Web.MaxBodySize != DefaultMaxBodySize {
		t.Errorf("默认请求体上限 = %d, want %d", config.Web.MaxBodySize, DefaultMaxBodySize)
	}

	name, vlllm, ok := config.SelectedVLLLM()
	if !ok {
		t.Fatal("默认配置缺少选中的VLLLM provider")
	}
	if name == "" || vlllm.Type != "openai" {
		t.Errorf("选中provider = %q type = %q, want openai类型", name, vlllm.Type)
	}
	if vlllm.ModelName == "" {
		t.Error("默认配置缺少模型名称")
	}
	if vlllm.Security.MaxFileSize != DefaultMaxUploadSize {
		t.Errorf("上传上限 = %d, want %d", vlllm.Security.MaxFileSize, DefaultMaxUploadSize)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("BUBBLE_DOMAIN", "https://myapp.bubbleapps.io")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VISION_MODEL", "gpt-4o-mini")
	t.Setenv("VISION_BASE_URL", "https://example.com/v1")

	config := DefaultConfig()
	config.applyEnvOverrides()

	if config.Server.Port != 8080 {
		t.Errorf("PORT覆盖失败: %d, want 8080", config.Server.Port)
	}
	if config.Web.BubbleDomain != "https://myapp.bubbleapps.io" {
		t.Errorf("BUBBLE_DOMAIN覆盖失败: %q", config.Web.BubbleDomain)
	}

	_, vlllm, ok := config.SelectedVLLLM()
	if !ok {
		t.Fatal("缺少选中的VLLLM provider")
	}
	if vlllm.APIKey != "sk-test" {
		t.Errorf("OPENAI_API_KEY覆盖失败: %q", vlllm.APIKey)
	}
	if vlllm.ModelName != "gpt-4o-mini" {
		t.Errorf("VISION_MODEL覆盖失败: %q", vlllm.ModelName)
	}
	if vlllm.BaseURL != "https://example.com/v1" {
		t.Errorf("VISION_BASE_URL覆盖失败: %q", vlllm.BaseURL)
	}
}

func TestApplyEnvOverrides_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	config := DefaultConfig()
	config.applyEnvOverrides()

	if config.Server.Port != 3000 {
		t.Errorf("无效PORT不应覆盖默认值: %d, want 3000", config.Server.Port)
	}
}
