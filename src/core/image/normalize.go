package image

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// StripDataURIPrefix 去掉data-URI前缀，只保留base64载荷
// "data:image/png;base64,AAAA" -> "AAAA"；不含逗号时原样返回
func StripDataURIPrefix(s string) string {
	if idx := strings.Index(s, ","); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

// DecodeBase64Payload 解码base64图片载荷，自动去掉data-URI前缀
func DecodeBase64Payload(s string) ([]byte, error) {
	payload := StripDataURIPrefix(strings.TrimSpace(s))
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("base64解码失败: %v", err)
	}
	return data, nil
}

// DetectFormat 通过文件头魔数检测图片格式
func DetectFormat(data []byte) string {
	switch {
	case hasJPEGHeader(data):
		return "jpeg"
	case hasPNGHeader(data):
		return "png"
	case hasGIFHeader(data):
		return "gif"
	case hasWebPHeader(data):
		return "webp"
	}
	return "jpeg" // 默认格式
}

// IsAllowedContentType 检查multipart上传声明的Content-Type是否为允许的图片类型
func IsAllowedContentType(contentType string) bool {
	allowed := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/webp",
		"image/gif",
	}

	contentTypeLower := strings.ToLower(contentType)
	for _, validType := range allowed {
		if strings.Contains(contentTypeLower, validType) {
			return true
		}
	}
	return false
}

// hasJPEGHeader 检查JPEG文件头
func hasJPEGHeader(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}

// hasPNGHeader 检查PNG文件头
func hasPNGHeader(data []byte) bool {
	return len(data) >= 8 &&
		data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
		data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A
}

// hasGIFHeader 检查GIF文件头
func hasGIFHeader(data []byte) bool {
	return len(data) >= 6 &&
		((data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 && data[4] == 0x37 && data[5] == 0x61) ||
			(data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 && data[4] == 0x39 && data[5] == 0x61))
}

// hasWebPHeader 检查WebP文件头
func hasWebPHeader(data []byte) bool {
	return len(data) >= 12 &&
		data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50
}
