package util

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const loggerKey = "logger"

func NewUuid() string {
	return uuid.New().String()
}

func SetLogToCtx(c *gin.Context, log *zap.Logger) {
	c.Set(loggerKey, log)
}

func GetLogFromCtx(c *gin.Context) *zap.Logger {
	raw, exists := c.Get(loggerKey)
	if exists {
		if log, ok := raw.(*zap.Logger); ok {
			return log
		}
	}

	return zap.NewNop()
}
