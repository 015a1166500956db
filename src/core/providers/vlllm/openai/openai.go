package openai

import (
	"context"
	"errors"
	"fmt"

	"vision-relay-go/src/core/image"
	"vision-relay-go/src/core/providers/vlllm"
	"vision-relay-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// Provider OpenAI类型的VLLLM提供者
type Provider struct {
	config *vlllm.Config
	logger *utils.Logger
	client *openai.Client
}

// init 注册OpenAI VLLLM提供者
func init() {
	vlllm.Register("openai", NewProvider)
}

// NewProvider 创建OpenAI VLLLM提供者实例
func NewProvider(config *vlllm.Config, logger *utils.Logger) (vlllm.Provider, error) {
	return &Provider{
		config: config,
		logger: logger,
	}, nil
}

// Initialize 初始化OpenAI客户端
func (p *Provider) Initialize() error {
	if p.config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(p.config.APIKey)
	if p.config.BaseURL != "" {
		clientConfig.BaseURL = p.config.BaseURL
	}
	p.client = openai.NewClientWithConfig(clientConfig)

	p.logger.Debug("OpenAI VLLLM Provider初始化成功 %v", map[string]interface{}{
		"model_name": p.config.ModelName,
		"base_url":   p.config.BaseURL,
	})

	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Analyze 调用OpenAI Vision API进行一次同步图像分析
func (p *Provider) Analyze(ctx context.Context, imageData image.ImageData, instruction string) (*vlllm.AnalysisResult, error) {
	if p.client == nil {
		return nil, vlllm.NewUpstreamError("OpenAI客户端未初始化，请检查API密钥配置", nil)
	}

	instruction = vlllm.ResolveInstruction(instruction, "")

	// 构建包含图片的多模态消息
	visionMessage := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: instruction,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: vlllm.BuildDataURI(imageData.Data, imageData.Format),
				},
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       p.config.ModelName,
			Messages:    []openai.ChatCompletionMessage{visionMessage},
			MaxTokens:   p.config.MaxTokens,
			Temperature: float32(p.config.Temperature),
			TopP:        float32(p.config.TopP),
		},
	)
	if err != nil {
		p.logger.Error("OpenAI Vision API调用失败 %v", err)
		return nil, vlllm.NewUpstreamError(upstreamMessage(err), err)
	}

	if len(resp.Choices) == 0 {
		return nil, vlllm.NewUpstreamError("上游未返回任何分析结果", nil)
	}

	result := &vlllm.AnalysisResult{
		Description:      resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}

	p.logger.Debug("OpenAI Vision分析完成 %v", map[string]interface{}{
		"model":             p.config.ModelName,
		"prompt_tokens":     result.PromptTokens,
		"completion_tokens": result.CompletionTokens,
	})

	return result, nil
}

// upstreamMessage 提取上游返回的错误信息，没有时返回空串走通用描述
func upstreamMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
