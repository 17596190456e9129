package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DefangLabs/openai-access-gateway/internal/config"
	"github.com/DefangLabs/openai-access-gateway/internal/dialect"
	"github.com/DefangLabs/openai-access-gateway/internal/provider/anthropic"
	"github.com/DefangLabs/openai-access-gateway/internal/provider/vertex"
	"github.com/DefangLabs/openai-access-gateway/internal/telemetry"
	"github.com/DefangLabs/openai-access-gateway/internal/util"
	"github.com/gin-gonic/gin"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	chatCompletionsEndpointSuffix = "endpoints/openapi/chat/completions"

	defaultModelAlias = "default"
)

func getChatCompletionHandler(prod bool, cfg *config.Config, mapper modelMapper, selector *dialect.Selector, tp tokenProvider, client http.Client, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.requests", nil, 1)

		if c == nil || c.Request == nil {
			JSON(c, http.StatusInternalServerError, "[access-gateway] context is empty")
			return
		}

		cid := c.GetString(correlationId)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.read_all_error", nil, 1)
			logError(log, "error when reading chat completion request body", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to read chat completion request body")
			return
		}

		content := map[string]interface{}{}
		if err := json.Unmarshal(body, &content); err != nil {
			telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.unmarshal_error", nil, 1)
			logError(log, "error when unmarshalling chat completion request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[access-gateway] failed to parse chat completion request body")
			return
		}

		alias := defaultModelAlias
		if m, ok := content["model"].(string); ok && len(m) != 0 {
			alias = m
		}

		model := mapper.Lookup("gcp", alias)
		path := strings.TrimPrefix(c.Request.URL.Path, cfg.ApiRoutePrefix)

		selected := selector.Select(model, path)
		if selected == dialect.Passthrough {
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			passThrough(c, prod, cfg, mapper, tp, client, cfg.PassThroughTimeout)
			return
		}

		telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.dialects", []string{
			"dialect:" + selected.String(),
		}, 1)

		var outbound []byte
		suffix := ""

		switch selected {
		case dialect.NativeChat, dialect.RawPredict:
			if cfg.UseModelMapping {
				if _, ok := content["model"]; ok {
					content["model"] = vertex.ChatModelName(model)
				}
			}

			outbound, err = json.Marshal(content)
			if err != nil {
				telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.marshal_error", nil, 1)
				logError(log, "error when marshalling chat completion request body", prod, cid, err)
				JSON(c, http.StatusInternalServerError, "[access-gateway] failed to marshal chat completion request body")
				return
			}

			suffix = chatCompletionsEndpointSuffix
			if selected == dialect.RawPredict {
				suffix = model + ":rawPredict"
			}
		case dialect.Anthropic:
			chatReq := &goopenai.ChatCompletionRequest{}
			if err := json.Unmarshal(body, chatReq); err != nil {
				telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.unmarshal_error", nil, 1)
				logError(log, "error when unmarshalling chat completion request body", prod, cid, err)
				JSON(c, http.StatusBadRequest, "[access-gateway] failed to parse chat completion request body")
				return
			}

			outbound, err = json.Marshal(anthropic.ToMessagesRequest(chatReq, anthropic.VertexVersion, 0))
			if err != nil {
				telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.marshal_error", nil, 1)
				logError(log, "error when marshalling messages request body", prod, cid, err)
				JSON(c, http.StatusInternalServerError, "[access-gateway] failed to marshal messages request body")
				return
			}

			suffix = model + ":rawPredict"
		}

		targetUrl := buildVertexUrl(cfg.GcpEndpoint, cfg.GcpRegion, cfg.GcpProjectId, suffix)

		ctx, cancel := context.WithTimeout(context.Background(), timeOut)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, c.Request.Method, targetUrl, bytes.NewReader(outbound))
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.http_client_create_error", nil, 1)
			logError(log, "error when creating outbound chat completion request", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to create outbound chat completion request")
			return
		}

		req.URL.RawQuery = c.Request.URL.RawQuery
		req.Header = buildOutboundHeaders(c.Request.Header)
		req.Header.Set("Content-Type", "application/json")

		token, err := tp.Token(ctx)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.token_error", nil, 1)
			logError(log, "error when fetching access token", prod, cid, err)
			c.String(http.StatusBadGateway, "Upstream request failed: %v", err)
			return
		}

		req.Header.Set("Authorization", "Bearer "+token)

		start := time.Now()

		res, err := client.Do(req)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.http_client_error", nil, 1)
			logError(log, "error when sending chat completion request to upstream", prod, cid, err)
			c.String(http.StatusBadGateway, "Upstream request failed: %v", err)
			return
		}
		defer res.Body.Close()

		dur := time.Since(start)
		telemetry.Timing("access_gateway.proxy.get_chat_completion_handler.latency", dur, nil, 1)

		resBody, err := io.ReadAll(res.Body)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.read_response_body_error", nil, 1)
			logError(log, "error when reading chat completion response body", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to read chat completion response body")
			return
		}

		if res.StatusCode/100 != 2 {
			telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.error_response", []string{
				"status:" + res.Status,
			}, 1)

			copyResponseHeaders(c.Writer.Header(), res.Header)
			c.Data(res.StatusCode, responseContentType(res.Header), resBody)
			return
		}

		switch selected {
		case dialect.RawPredict:
			translated, err := vertex.ToChatCompletion(resBody)
			if err != nil {
				telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.translation_error", nil, 1)
				logError(log, "error when translating content parts response", prod, cid, err)
				JSON(c, http.StatusBadGateway, "[access-gateway] unexpected upstream chat completion response: "+err.Error())
				return
			}

			c.JSON(res.StatusCode, translated)
		case dialect.Anthropic:
			translated, err := anthropic.ToChatCompletion(resBody, alias)
			if err != nil {
				telemetry.Incr("access_gateway.proxy.get_chat_completion_handler.translation_error", nil, 1)
				logError(log, "error when translating messages response", prod, cid, err)
				JSON(c, http.StatusBadGateway, "[access-gateway] unexpected upstream chat completion response: "+err.Error())
				return
			}

			c.JSON(res.StatusCode, translated)
		default:
			copyResponseHeaders(c.Writer.Header(), res.Header)
			c.Data(res.StatusCode, responseContentType(res.Header), resBody)
		}

		if !prod {
			log.Debug("forwarded chat completion request",
				[]zapcore.Field{
					zap.String(correlationId, cid),
					zap.String("model", model),
					zap.String("dialect", selected.String()),
					zap.Int("code", res.StatusCode),
				}...,
			)
		}
	}
}
