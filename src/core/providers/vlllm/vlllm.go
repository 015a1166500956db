package vlllm

import (
	"context"
	"fmt"

	"vision-relay-go/src/configs"
	"vision-relay-go/src/core/image"
)

// DefaultInstruction 未提供分析指令时使用的默认指令
const DefaultInstruction = "You are assisting with a building inspection. Analyze this image and describe " +
	"the overall condition, any visible defects or damage, and potential safety concerns in detail."

// Config VLLLM配置结构
type Config struct {
	Type        string
	ModelName   string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Security    configs.SecurityConfig
}

// AnalysisResult 图像分析结果与上游返回的token用量
type AnalysisResult struct {
	Description      string
	PromptTokens     int
	CompletionTokens int
}

// UpstreamError 上游视觉API调用失败
// Message优先携带上游返回的错误信息，否则为通用描述
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError 创建上游错误，message为空时使用通用描述
func NewUpstreamError(message string, err error) *UpstreamError {
	if message == "" {
		message = "图像分析服务暂时不可用，请稍后重试"
	}
	return &UpstreamError{Message: message, Err: err}
}

// Provider 视觉分析提供者接口
type Provider interface {
	// Initialize 初始化客户端，校验必需配置
	Initialize() error
	// Analyze 发起一次同步视觉分析调用，失败时返回*UpstreamError
	Analyze(ctx context.Context, imageData image.ImageData, instruction string) (*AnalysisResult, error)
	// Cleanup 清理资源
	Cleanup() error
}

// ResolveInstruction 归一化分析指令：空白指令回落到默认指令
func ResolveInstruction(instruction, configured string) string {
	if instruction != "" {
		return instruction
	}
	if configured != "" {
		return configured
	}
	return DefaultInstruction
}

// BuildDataURI 构建带格式前缀的data-URI图片引用
func BuildDataURI(base64Image, format string) string {
	if format == "" {
		format = "jpeg"
	}
	return fmt.Sprintf("data:image/%s;base64,%s", format, base64Image)
}
