package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xhad/kbot/pkg/chatbot"
)

const requestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("request_id", rid)
		c.Header(requestIDHeader, rid)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[info] request_id=%s %s %s status=%d duration=%v",
			c.GetString("request_id"), c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("[error] request_id=%s operation=recover panic=%v", c.GetString("request_id"), recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, askResponse{Message: chatbot.MsgInternalError})
	})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowHeaders = append(config.AllowHeaders, requestIDHeader)
	config.ExposeHeaders = []string{requestIDHeader}
	return cors.New(config)
}

func logError(c *gin.Context, operation string, err error) {
	log.Printf("[error] request_id=%s operation=%s error=%v", c.GetString("request_id"), operation, err)
}
