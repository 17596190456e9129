package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/DefangLabs/openai-access-gateway/internal/config"
	"github.com/DefangLabs/openai-access-gateway/internal/provider/vertex"
	"github.com/DefangLabs/openai-access-gateway/internal/telemetry"
	"github.com/DefangLabs/openai-access-gateway/internal/util"
	"github.com/gin-gonic/gin"
)

func getEmbeddingHandler(prod bool, cfg *config.Config, mapper modelMapper, tp tokenProvider, client http.Client, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := util.GetLogFromCtx(c)
		telemetry.Incr("access_gateway.proxy.get_embedding_handler.requests", nil, 1)

		if c == nil || c.Request == nil {
			JSON(c, http.StatusInternalServerError, "[access-gateway] context is empty")
			return
		}

		cid := c.GetString(correlationId)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_embedding_handler.read_all_error", nil, 1)
			logError(log, "error when reading embedding request body", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to read embedding request body")
			return
		}

		content := map[string]interface{}{}
		if err := json.Unmarshal(body, &content); err != nil {
			telemetry.Incr("access_gateway.proxy.get_embedding_handler.unmarshal_error", nil, 1)
			logError(log, "error when unmarshalling embedding request body", prod, cid, err)
			JSON(c, http.StatusBadRequest, "[access-gateway] failed to parse embedding request body")
			return
		}

		alias := defaultModelAlias
		if m, ok := content["model"].(string); ok && len(m) != 0 {
			alias = m
		}

		model := mapper.Lookup("gcp", alias)

		if len(cfg.ProxyTarget) != 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			passThrough(c, prod, cfg, mapper, tp, client, cfg.PassThroughTimeout)
			return
		}

		outbound, err := json.Marshal(vertex.ToPredictRequest(content["input"]))
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_embedding_handler.marshal_error", nil, 1)
			logError(log, "error when marshalling predict request body", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to marshal predict request body")
			return
		}

		targetUrl := buildVertexUrl(cfg.GcpEndpoint, cfg.GcpRegion, cfg.GcpProjectId, model+":predict")

		ctx, cancel := context.WithTimeout(context.Background(), timeOut)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, c.Request.Method, targetUrl, bytes.NewReader(outbound))
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_embedding_handler.http_client_create_error", nil, 1)
			logError(log, "error when creating outbound embedding request", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to create outbound embedding request")
			return
		}

		req.URL.RawQuery = c.Request.URL.RawQuery
		req.Header = buildOutboundHeaders(c.Request.Header)
		req.Header.Set("Content-Type", "application/json")

		token, err := tp.Token(ctx)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_embedding_handler.token_error", nil, 1)
			logError(log, "error when fetching access token", prod, cid, err)
			c.String(http.StatusBadGateway, "Upstream request failed: %v", err)
			return
		}

		req.Header.Set("Authorization", "Bearer "+token)

		start := time.Now()

		res, err := client.Do(req)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_embedding_handler.http_client_error", nil, 1)
			logError(log, "error when sending embedding request to upstream", prod, cid, err)
			c.String(http.StatusBadGateway, "Upstream request failed: %v", err)
			return
		}
		defer res.Body.Close()

		telemetry.Timing("access_gateway.proxy.get_embedding_handler.latency", time.Since(start), nil, 1)

		resBody, err := io.ReadAll(res.Body)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_embedding_handler.read_response_body_error", nil, 1)
			logError(log, "error when reading embedding response body", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to read embedding response body")
			return
		}

		if res.StatusCode/100 != 2 {
			telemetry.Incr("access_gateway.proxy.get_embedding_handler.error_response", []string{
				"status:" + res.Status,
			}, 1)

			copyResponseHeaders(c.Writer.Header(), res.Header)
			c.Data(res.StatusCode, responseContentType(res.Header), resBody)
			return
		}

		translated, err := vertex.ToEmbeddingResponse(resBody, alias)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.get_embedding_handler.translation_error", nil, 1)
			logError(log, "error when translating predict response", prod, cid, err)
			JSON(c, http.StatusBadGateway, "[access-gateway] unexpected upstream embedding response: "+err.Error())
			return
		}

		c.JSON(res.StatusCode, translated)
	}
}
