package configs

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config 主配置结构
type Config struct {
	Server struct {
		IP   string `yaml:"ip"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Web struct {
		// 允许跨域访问的前端域名，留空表示不限制来源
		BubbleDomain string `yaml:"bubble_domain"`
		// 入站请求体上限（字节），独立于图片上传上限
		MaxBodySize int64 `yaml:"max_body_size"`
	} `yaml:"web"`

	Log struct {
		LogLevel string `yaml:"log_level"`
		LogDir   string `yaml:"log_dir"`
		LogFile  string `yaml:"log_file"`
	} `yaml:"log"`

	// 默认分析指令，请求未携带prompt时使用
	DefaultPrompt string `yaml:"prompt"`

	SelectedModule map[string]string `yaml:"selected_module"`

	VLLLM map[string]VLLMConfig `yaml:"VLLLM"`
}

// SecurityConfig 图片安全配置结构
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`   // 最大文件大小（字节）
	MaxPixels      int64    `yaml:"max_pixels"`      // 最大像素数量
	MaxWidth       int      `yaml:"max_width"`       // 最大宽度
	MaxHeight      int      `yaml:"max_height"`      // 最大高度
	AllowedFormats []string `yaml:"allowed_formats"` // 允许的图片格式
}

// VLLMConfig VLLLM配置结构（视觉语言大模型）
type VLLMConfig struct {
	Type        string         `yaml:"type"`        // API类型：openai / ollama
	ModelName   string         `yaml:"model_name"`  // 模型名称，使用支持视觉的模型
	BaseURL     string         `yaml:"url"`         // API地址
	APIKey      string         `yaml:"api_key"`     // API密钥
	Temperature float64        `yaml:"temperature"` // 温度参数
	MaxTokens   int            `yaml:"max_tokens"`  // 最大令牌数
	TopP        float64        `yaml:"top_p"`       // TopP参数
	Security    SecurityConfig `yaml:"security"`    // 图片安全配置
}

const (
	// DefaultMaxUploadSize 上传图片大小上限 20MiB
	DefaultMaxUploadSize = 20 * 1024 * 1024
	// DefaultMaxBodySize 入站请求体大小上限 50MiB
	DefaultMaxBodySize = 50 * 1024 * 1024
)

// DefaultConfig 返回内置默认配置，允许在没有配置文件时仅靠环境变量运行
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.IP = "0.0.0.0"
	config.Server.Port = 3000
	config.Web.MaxBodySize = DefaultMaxBodySize
	config.Log.LogLevel = "info"
	config.Log.LogDir = "logs"
	config.Log.LogFile = "server.log"
	config.SelectedModule = map[string]string{"VLLLM": "OpenAIVision"}
	config.VLLLM = map[string]VLLMConfig{
		"OpenAIVision": {
			Type:      "openai",
			ModelName: "gpt-4o",
			BaseURL:   "https://api.openai.com/v1",
			MaxTokens: 1000,
			Security: SecurityConfig{
				MaxFileSize:    DefaultMaxUploadSize,
				MaxPixels:      50000000,
				MaxWidth:       10000,
				MaxHeight:      10000,
				AllowedFormats: []string{"jpeg", "jpg", "png", "webp", "gif"},
			},
		},
	}
	return config
}

// LoadConfig 加载配置：内置默认值 -> 可选配置文件 -> 环境变量覆盖
func LoadConfig() (*Config, string, error) {
	config := DefaultConfig()

	path := ".config.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, path, err
		}
	} else {
		// 配置文件可选，没有文件时仅使用默认值和环境变量
		path = ""
	}

	config.applyEnvOverrides()
	return config, path, nil
}

// applyEnvOverrides 用环境变量覆盖配置，方便容器化部署
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("BUBBLE_DOMAIN"); v != "" {
		c.Web.BubbleDomain = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.LogLevel = v
	}

	selected := c.SelectedModule["VLLLM"]
	vlllm, ok := c.VLLLM[selected]
	if !ok {
		return
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		vlllm.APIKey = v
	}
	if v := os.Getenv("VISION_MODEL"); v != "" {
		vlllm.ModelName = v
	}
	if v := os.Getenv("VISION_BASE_URL"); v != "" {
		vlllm.BaseURL = v
	}
	c.VLLLM[selected] = vlllm
}

// SelectedVLLLM 返回当前选中的VLLLM配置
func (c *Config) SelectedVLLLM() (string, VLLMConfig, bool) {
	name := c.SelectedModule["VLLLM"]
	cfg, ok := c.VLLLM[name]
	return name, cfg, ok
}
