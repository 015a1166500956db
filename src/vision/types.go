package vision

// AnalysisRequest 归一化后的分析请求（multipart或base64两种入口共用）
type AnalysisRequest struct {
	ImageBytes  []byte // 图片数据
	Instruction string // 分析指令（可选，空值回落到默认指令）
	Filename    string // 原始文件名（仅上传入口）
	Source      string // 入口来源：upload / base64
}

// Base64Request POST /api/process-base64 请求体
type Base64Request struct {
	ImageBase64 string `json:"imageBase64"`
	Prompt      string `json:"prompt"`
}

// UsagePayload 上游返回的token用量计数
type UsagePayload struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// AnalysisResponse 分析成功响应结构
type AnalysisResponse struct {
	Success     bool         `json:"success"`
	Filename    string       `json:"filename,omitempty"`
	Description string       `json:"description"`
	Usage       UsagePayload `json:"usage"`
	ProcessedAt string       `json:"processedAt"`
}

// ErrorResponse 统一错误响应结构
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
