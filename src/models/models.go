package models

import "time"

// AnalysisRecord 一次图像分析的落库记录（可选功能，配置了DATABASE_URL才启用）
type AnalysisRecord struct {
	ID               uint   `gorm:"primaryKey"`
	RequestID        string `gorm:"index"`
	Source           string // upload / base64
	Filename         string
	Prompt           string `gorm:"type:text"`
	Description      string `gorm:"type:text"`
	PromptTokens     int
	CompletionTokens int
	CreatedAt        time.Time
}
