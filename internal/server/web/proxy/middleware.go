package proxy

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/DefangLabs/openai-access-gateway/internal/telemetry"
	"github.com/DefangLabs/openai-access-gateway/internal/util"
	"github.com/gin-gonic/gin"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func JSON(c *gin.Context, code int, message string) {
	c.JSON(code, &goopenai.ErrorResponse{
		Error: &goopenai.APIError{
			Message: message,
			Code:    strconv.Itoa(code),
		},
	})
}

func getMiddleware(log *zap.Logger, prod bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c == nil || c.Request == nil {
			JSON(c, http.StatusInternalServerError, "[access-gateway] request is empty")
			c.Abort()
			return
		}

		cid := util.NewUuid()
		c.Set(correlationId, cid)
		util.SetLogToCtx(c, log.With(zap.String(correlationId, cid)))

		if c.FullPath() == "/health" {
			c.Next()
			return
		}

		start := time.Now()

		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewReader(body))

				model := gjson.GetBytes(body, "model")
				if model.Exists() {
					c.Set("model", model.String())
				}

				stream := gjson.GetBytes(body, "stream")
				if stream.Exists() {
					c.Set("stream", stream.Bool())
				}
			}
		}

		defer func() {
			dur := time.Since(start)
			latency := int(dur.Milliseconds())

			if !prod {
				log.Sugar().Infof("proxy | %d | %s | %s | %dms", c.Writer.Status(), c.Request.Method, c.Request.URL.Path, latency)
			}

			if prod {
				log.Info("response to proxy",
					zap.String(correlationId, cid),
					zap.String("model", c.GetString("model")),
					zap.Int("code", c.Writer.Status()),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Int("latencyInMs", latency),
				)
			}

			telemetry.Timing("access_gateway.proxy.get_middleware.latency_in_ms", dur, nil, 1)
			telemetry.Incr("access_gateway.proxy.get_middleware.responses", []string{
				"status:" + strconv.Itoa(c.Writer.Status()),
			}, 1)
		}()

		c.Next()
	}
}
