package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vision-relay-go/src/configs"
	"vision-relay-go/src/core/image"
	"vision-relay-go/src/core/providers/vlllm"
	"vision-relay-go/src/core/utils"
	"vision-relay-go/src/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DefaultVisionService struct {
	logger    *utils.Logger
	config    *configs.Config
	vlllmMap  map[string]vlllm.Provider // 支持多个VLLLM provider
	validator *image.ImageSecurityValidator
	db        *gorm.DB // 可选，历史记录落库
}

// NewDefaultVisionService 构造函数
// provider初始化失败（如缺少API密钥）只记录警告，服务照常启动，分析请求届时返回500
func NewDefaultVisionService(config *configs.Config, logger *utils.Logger, db *gorm.DB) (*DefaultVisionService, error) {
	service := &DefaultVisionService{
		logger:   logger,
		config:   config,
		vlllmMap: make(map[string]vlllm.Provider),
		db:       db,
	}

	security := securityConfig(config)
	service.validator = image.NewImageSecurityValidator(security, logger)

	service.initVLLMProviders()
	return service, nil
}

// securityConfig 取选中VLLLM的图片安全配置，没有时使用内置默认值
func securityConfig(config *configs.Config) *configs.SecurityConfig {
	if _, cfg, ok := config.SelectedVLLLM(); ok {
		security := cfg.Security
		if security.MaxFileSize <= 0 {
			security.MaxFileSize = configs.DefaultMaxUploadSize
		}
		return &security
	}
	_, cfg, _ := configs.DefaultConfig().SelectedVLLLM()
	security := cfg.Security
	return &security
}

// initVLLMProviders 初始化VLLLM providers
func (s *DefaultVisionService) initVLLMProviders() {
	name, vlllmConfig, ok := s.config.SelectedVLLLM()
	if ok {
		provider, err := vlllm.Create(name, &vlllmConfig, s.logger)
		if err != nil {
			s.logger.Warn(fmt.Sprintf("创建VLLLM provider失败: %v", err))
		} else {
			s.vlllmMap[name] = provider
			s.logger.Info(fmt.Sprintf("VLLLM provider %s 初始化成功", name))
		}
	} else {
		s.logger.Warn("请设置好VLLLM provider配置")
	}

	if len(s.vlllmMap) == 0 {
		s.logger.Warn("没有可用的VLLLM provider，分析请求将返回错误")
	}
}

// Start 实现 VisionService 接口，注册所有路由
func (s *DefaultVisionService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	engine.GET("/health", s.handleHealth)

	apiGroup.POST("/process-image", s.handleProcessImage)
	apiGroup.POST("/process-base64", s.handleProcessBase64)
	apiGroup.POST("/test", s.handleTest)
	apiGroup.GET("/history", s.handleHistory)

	s.logger.Info("Vision HTTP服务路由注册完成")
	return nil
}

// handleHealth 存活检查
func (s *DefaultVisionService) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleProcessImage 处理multipart图片上传分析
func (s *DefaultVisionService) handleProcessImage(c *gin.Context) {
	req, err := s.parseMultipartRequest(c)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		s.logger.Warn(fmt.Sprintf("Vision上传请求解析失败: %v", err))
		return
	}

	s.processAnalysis(c, req)
}

// handleProcessBase64 处理base64图片分析
func (s *DefaultVisionService) handleProcessBase64(c *gin.Context) {
	var body Base64Request
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, http.StatusBadRequest, fmt.Sprintf("请求体解析失败: %v", err))
		return
	}

	if strings.TrimSpace(body.ImageBase64) == "" {
		s.respondError(c, http.StatusBadRequest, "缺少imageBase64字段")
		return
	}

	// data-URI前缀在解码时剥离，只保留逗号后的载荷
	data, err := image.DecodeBase64Payload(body.ImageBase64)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		s.respondError(c, http.StatusBadRequest, "图片数据为空")
		return
	}

	s.processAnalysis(c, &AnalysisRequest{
		ImageBytes:  data,
		Instruction: strings.TrimSpace(body.Prompt),
		Source:      "base64",
	})
}

// handleTest 配置回显，供前端检查后端连通性与配置状态
func (s *DefaultVisionService) handleTest(c *gin.Context) {
	apiKeyStatus := "✗ Missing"
	if _, cfg, ok := s.config.SelectedVLLLM(); ok && cfg.APIKey != "" {
		apiKeyStatus = "✓ Configured"
	}

	bubbleDomain := s.config.Web.BubbleDomain
	if bubbleDomain == "" {
		bubbleDomain = "unrestricted (all origins allowed)"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Backend connection successful",
		"apiKey":       apiKeyStatus,
		"bubbleDomain": bubbleDomain,
	})
}

// handleHistory 返回最近的分析记录，未配置数据库时返回关闭状态
func (s *DefaultVisionService) handleHistory(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"enabled": false,
			"records": []models.AnalysisRecord{},
		})
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	var records []models.AnalysisRecord
	if err := s.db.Order("created_at desc").Limit(limit).Find(&records).Error; err != nil {
		s.logger.Warn(fmt.Sprintf("查询分析历史失败: %v", err))
		s.respondError(c, http.StatusInternalServerError, "查询分析历史失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"enabled": true,
		"records": records,
	})
}

// parseMultipartRequest 解析multipart表单请求并执行上传侧校验
func (s *DefaultVisionService) parseMultipartRequest(c *gin.Context) (*AnalysisRequest, error) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("缺少图片文件: %v", err)
	}
	defer file.Close()

	maxUpload := s.validator.MaxFileSize()
	if header.Size > maxUpload {
		return nil, fmt.Errorf("图片大小超过限制，最大允许%dMB", maxUpload/1024/1024)
	}

	// MIME类型在解析阶段校验，不支持的类型直接拒绝
	contentType := header.Header.Get("Content-Type")
	if !image.IsAllowedContentType(contentType) {
		return nil, fmt.Errorf("不支持的文件类型: %s（支持JPEG、PNG、WebP、GIF格式）", contentType)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取图片数据失败: %v", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("图片数据为空")
	}

	if result := s.validator.ValidateBytes(data); !result.IsValid {
		return nil, result.Error
	}

	return &AnalysisRequest{
		ImageBytes:  data,
		Instruction: strings.TrimSpace(c.Request.FormValue("prompt")),
		Filename:    header.Filename,
		Source:      "upload",
	}, nil
}

// processAnalysis 执行分析调用并写出响应
func (s *DefaultVisionService) processAnalysis(c *gin.Context, req *AnalysisRequest) {
	result, err := s.analyze(c.Request.Context(), req)
	if err != nil {
		var upstreamErr *vlllm.UpstreamError
		message := err.Error()
		if errors.As(err, &upstreamErr) {
			message = upstreamErr.Message
		}
		s.logger.Warn(fmt.Sprintf("Vision分析失败(%s): %v", req.Source, err))
		s.respondError(c, http.StatusInternalServerError, message)
		return
	}

	response := AnalysisResponse{
		Success:     true,
		Filename:    req.Filename,
		Description: result.Description,
		Usage: UsagePayload{
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
		},
		ProcessedAt: time.Now().Format(time.RFC3339),
	}
	c.JSON(http.StatusOK, response)

	s.saveRecord(c, req, result)
}

// analyze 选择provider并发起一次上游调用
func (s *DefaultVisionService) analyze(ctx context.Context, req *AnalysisRequest) (*vlllm.AnalysisResult, error) {
	provider := s.selectProvider("")
	if provider == nil {
		return nil, vlllm.NewUpstreamError("没有可用的视觉分析模型，请检查API密钥配置", nil)
	}

	imageData := image.ImageData{
		Data:   base64.StdEncoding.EncodeToString(req.ImageBytes),
		Format: image.DetectFormat(req.ImageBytes),
	}

	instruction := req.Instruction
	if instruction == "" {
		instruction = s.config.DefaultPrompt
	}

	return provider.Analyze(ctx, imageData, instruction)
}

// selectProvider 选择VLLLM provider
func (s *DefaultVisionService) selectProvider(modelName string) vlllm.Provider {
	if modelName != "" {
		if provider, exists := s.vlllmMap[modelName]; exists {
			return provider
		}
	}

	for _, provider := range s.vlllmMap {
		return provider
	}
	return nil
}

// saveRecord 落库一条分析记录，失败只记录日志不影响响应
func (s *DefaultVisionService) saveRecord(c *gin.Context, req *AnalysisRequest, result *vlllm.AnalysisResult) {
	if s.db == nil {
		return
	}

	record := models.AnalysisRecord{
		RequestID:        c.GetString("request_id"),
		Source:           req.Source,
		Filename:         req.Filename,
		Prompt:           req.Instruction,
		Description:      result.Description,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
	}
	if err := s.db.Create(&record).Error; err != nil {
		s.logger.Warn(fmt.Sprintf("保存分析记录失败: %v", err))
	}
}

// respondError 返回统一错误响应
func (s *DefaultVisionService) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// Cleanup 清理资源
func (s *DefaultVisionService) Cleanup() error {
	for name, provider := range s.vlllmMap {
		if err := provider.Cleanup(); err != nil {
			s.logger.Warn(fmt.Sprintf("清理VLLLM provider %s 失败: %v", name, err))
		}
	}
	s.logger.Info("Vision服务清理完成")
	return nil
}
