package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xiebiao/medsupply/pkg/metrics"
)

// RequestIDKey Context中请求ID的键
const RequestIDKey = "request_id"

// RequestIDHeader 响应头中的请求ID
const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求分配唯一ID
//
// 教学要点：
// 1. 请求方带了ID就沿用（跨服务链路对齐），没带才生成
// 2. ID同时写入Context和响应头，日志与排障都能关联
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID 从Context读取请求ID（没有时返回空串）
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(RequestIDKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// AccessLog 访问日志 + Prometheus请求指标
//
// 教学要点：
// 中间件执行顺序
//   r.Use(RequestID())  // 1. 先分配请求ID
//   r.Use(AccessLog())  // 2. 再记录日志（日志里才有ID）
//   r.GET("/api", ...)  // 3. 业务Handler
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path // 未注册路由(404)
		}

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()

		if metrics.HTTPRequestsTotal != nil {
			labels := map[string]string{
				"method": c.Request.Method,
				"path":   path,
				"status": strconv.Itoa(status),
			}
			metrics.IncCounterVec(metrics.HTTPRequestsTotal, labels)
			metrics.ObserveHistogramVec(metrics.HTTPRequestDuration,
				map[string]string{"method": c.Request.Method, "path": path},
				elapsed.Seconds())
		}

		log.Printf("📡 %s %s → %d (%v) request_id=%s",
			c.Request.Method, path, status, elapsed.Round(time.Millisecond), GetRequestID(c))
	}
}
