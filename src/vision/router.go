package vision

import (
	"net/http"

	"vision-relay-go/src/configs"
	"vision-relay-go/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NewRouter 构建带全局中间件与兜底路由的Gin引擎
// 中间件顺序：请求ID -> 请求体大小限制 -> CORS -> panic恢复
func NewRouter(config *configs.Config, logger *utils.Logger) *gin.Engine {
	engine := gin.New()
	engine.SetTrustedProxies([]string{"0.0.0.0"})

	engine.Use(RequestIDMiddleware())
	engine.Use(BodySizeLimitMiddleware(config.Web.MaxBodySize))
	engine.Use(CORSMiddleware(config))
	engine.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		message := "服务器内部错误"
		if err, ok := recovered.(error); ok && err.Error() != "" {
			message = err.Error()
		}
		logger.Error("请求处理发生panic %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Error:   message,
		})
	}))

	// 未匹配到的路由统一返回固定的404载荷
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Success: false,
			Error:   "接口不存在",
		})
	})

	return engine
}

// RequestIDMiddleware 为每个请求生成或透传X-Request-Id
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-Id", requestID)
		c.Next()
	}
}

// BodySizeLimitMiddleware 限制入站请求体大小，独立于图片上传上限
func BodySizeLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = configs.DefaultMaxBodySize
	}
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// CORSMiddleware 跨域策略：允许配置的前端域名，未配置时不限制来源
func CORSMiddleware(config *configs.Config) gin.HandlerFunc {
	origin := config.Web.BubbleDomain
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "content-type, authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
