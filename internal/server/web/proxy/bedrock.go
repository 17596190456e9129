package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/DefangLabs/openai-access-gateway/internal/config"
	"github.com/DefangLabs/openai-access-gateway/internal/provider/anthropic"
	"github.com/DefangLabs/openai-access-gateway/internal/telemetry"
	"github.com/DefangLabs/openai-access-gateway/internal/util"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/gin-gonic/gin"
	goopenai "github.com/sashabaranov/go-openai"
)

func getBedrockChatCompletionHandler(prod bool, cfg *config.Config, mapper modelMapper, invoker bedrockInvoker, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("access_gateway.proxy.get_bedrock_chat_completion_handler.requests", nil, 1)

		if c == nil || c.Request == nil {
			JSON(c, http.StatusInternalServerError, "[access-gateway] context is empty")
			return
		}

		cid := c.GetString(correlationId)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_bedrock_chat_completion_handler.read_all_error", nil, 1)
			logError(log, "error when reading chat completion request body", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to read chat completion request body")
			return
		}

		chatCompletionReq := &goopenai.ChatCompletionRequest{}
		if err := json.Unmarshal(body, chatCompletionReq); err != nil {
			telemetry.Incr("access_gateway.proxy.get_bedrock_chat_completion_handler.unmarshal_error", nil, 1)
			logError(log, "error when unmarshalling chat completion request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[access-gateway] failed to parse chat completion request body")
			return
		}

		alias := chatCompletionReq.Model
		if len(alias) == 0 {
			alias = defaultModelAlias
		}

		model := mapper.Lookup("aws", alias)
		if model == defaultModelAlias {
			model = cfg.DefaultModel
		}

		outbound, err := json.Marshal(anthropic.ToMessagesRequest(chatCompletionReq, anthropic.BedrockVersion, 0))
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_bedrock_chat_completion_handler.marshal_error", nil, 1)
			logError(log, "error when marshalling messages request body", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to marshal messages request body")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeOut)
		defer cancel()

		start := time.Now()

		output, err := invoker.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(model),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        outbound,
		})
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_bedrock_chat_completion_handler.invoke_model_error", nil, 1)
			logError(log, "error when invoking bedrock model", prod, cid, err)
			c.String(http.StatusBadGateway, "Upstream request failed: %v", err)
			return
		}

		telemetry.Timing("access_gateway.proxy.get_bedrock_chat_completion_handler.latency", time.Since(start), nil, 1)

		translated, err := anthropic.ToChatCompletion(output.Body, alias)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_bedrock_chat_completion_handler.translation_error", nil, 1)
			logError(log, "error when translating messages response", prod, cid, err)
			JSON(c, http.StatusBadGateway, "[access-gateway] unexpected upstream chat completion response: "+err.Error())
			return
		}

		c.JSON(http.StatusOK, translated)
	}
}
