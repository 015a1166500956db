package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vision-relay-go/src/core/image"
	"vision-relay-go/src/core/providers/vlllm"
	"vision-relay-go/src/core/utils"
)

// Provider Ollama类型的VLLLM提供者，走本地多模态API
type Provider struct {
	config     *vlllm.Config
	logger     *utils.Logger
	httpClient *http.Client
}

// ollamaRequest Ollama API请求结构
type ollamaRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// ollamaMessage Ollama消息结构
type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64编码的图片
}

// ollamaResponse Ollama API响应结构
type ollamaResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

// ollamaErrorResponse Ollama错误响应结构
type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// init 注册Ollama VLLLM提供者
func init() {
	vlllm.Register("ollama", NewProvider)
}

// NewProvider 创建Ollama VLLLM提供者实例
func NewProvider(config *vlllm.Config, logger *utils.Logger) (vlllm.Provider, error) {
	return &Provider{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Initialize 初始化Provider，Ollama不需要API key
func (p *Provider) Initialize() error {
	if p.config.BaseURL == "" {
		p.config.BaseURL = "http://localhost:11434" // 默认Ollama地址
	}

	p.logger.Debug("Ollama VLLLM初始化成功 %v", map[string]interface{}{
		"base_url": p.config.BaseURL,
		"model":    p.config.ModelName,
	})
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Analyze 调用Ollama多模态API进行一次同步图像分析
// prompt_eval_count/eval_count映射为token用量计数
func (p *Provider) Analyze(ctx context.Context, imageData image.ImageData, instruction string) (*vlllm.AnalysisResult, error) {
	instruction = vlllm.ResolveInstruction(instruction, "")

	request := ollamaRequest{
		Model: p.config.ModelName,
		Messages: []ollamaMessage{
			{
				Role:    "user",
				Content: instruction,
				Images:  []string{imageData.Data}, // Ollama需要纯base64，不需要data URL前缀
			},
		},
		Stream: false,
		Options: map[string]interface{}{
			"temperature": p.config.Temperature,
			"top_p":       p.config.TopP,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, vlllm.NewUpstreamError("", fmt.Errorf("请求序列化失败: %v", err))
	}

	url := fmt.Sprintf("%s/api/chat", strings.TrimSuffix(p.config.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, vlllm.NewUpstreamError("", fmt.Errorf("创建请求失败: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("Ollama API调用失败 %v", err)
		return nil, vlllm.NewUpstreamError("", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		message := ""
		var errResp ollamaErrorResponse
		if json.Unmarshal(body, &errResp) == nil {
			message = errResp.Error
		}
		p.logger.Error(fmt.Sprintf("Ollama API返回错误: %d %s", resp.StatusCode, message))
		return nil, vlllm.NewUpstreamError(message, fmt.Errorf("ollama status %d", resp.StatusCode))
	}

	var response ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, vlllm.NewUpstreamError("", fmt.Errorf("解析Ollama响应失败: %v", err))
	}

	return &vlllm.AnalysisResult{
		Description:      response.Message.Content,
		PromptTokens:     response.PromptEvalCount,
		CompletionTokens: response.EvalCount,
	}, nil
}
