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
	"github.com/DefangLabs/openai-access-gateway/internal/provider/vertex"
	"github.com/DefangLabs/openai-access-gateway/internal/telemetry"
	"github.com/DefangLabs/openai-access-gateway/internal/util"
	"github.com/gin-gonic/gin"
)

// getPassThroughHandler forwards any request that is not handled by a dialect
// aware route. The body travels verbatim apart from the optional model alias
// rewrite, and the URL keeps the inbound path with the route prefix removed.
func getPassThroughHandler(prod bool, cfg *config.Config, mapper modelMapper, tp tokenProvider, client http.Client, timeOut time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c == nil || c.Request == nil {
			JSON(c, http.StatusInternalServerError, "[access-gateway] context is empty")
			return
		}

		passThrough(c, prod, cfg, mapper, tp, client, timeOut)
	}
}

func passThrough(c *gin.Context, prod bool, cfg *config.Config, mapper modelMapper, tp tokenProvider, client http.Client, timeOut time.Duration) {
	log := util.GetLogFromCtx(c)
	telemetry.Incr("access_gateway.proxy.pass_through.requests", nil, 1)

	cid := c.GetString(correlationId)
	provider := cfg.ResolvedProvider()

	if len(cfg.ProxyTarget) == 0 && provider != "gcp" {
		telemetry.Incr("access_gateway.proxy.pass_through.route_not_supported", nil, 1)
		JSON(c, http.StatusNotFound, "[access-gateway] route not supported")
		return
	}

	var body []byte
	if c.Request.Body != nil {
		bs, err := io.ReadAll(c.Request.Body)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.pass_through.read_all_error", nil, 1)
			logError(log, "error when reading pass through request body", prod, cid, err)
			JSON(c, http.StatusInternalServerError, "[access-gateway] failed to read request body")
			return
		}

		body = bs
	}

	if cfg.UseModelMapping && len(body) != 0 {
		body = rewriteModelAlias(body, provider, mapper)
	}

	path := strings.TrimPrefix(c.Request.URL.Path, cfg.ApiRoutePrefix)
	if strings.Contains(path, "chat/completions") {
		path = strings.Replace(path, "chat/completions", "endpoints/openapi/chat/completions", 1)
	}

	targetUrl := cfg.ProxyTarget
	if len(targetUrl) == 0 {
		targetUrl = strings.TrimRight(buildVertexUrl(cfg.GcpEndpoint, cfg.GcpRegion, cfg.GcpProjectId, strings.TrimLeft(path, "/")), "/")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeOut)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, c.Request.Method, targetUrl, bytes.NewReader(body))
	if err != nil {
		telemetry.Incr("access_gateway.proxy.pass_through.http_client_create_error", nil, 1)
		logError(log, "error when creating pass through request", prod, cid, err)
		JSON(c, http.StatusInternalServerError, "[access-gateway] failed to create pass through request")
		return
	}

	req.URL.RawQuery = c.Request.URL.RawQuery
	req.Header = buildOutboundHeaders(c.Request.Header)

	if tp != nil {
		token, err := tp.Token(ctx)
		if err != nil {
			telemetry.Incr("access_gateway.proxy.pass_through.token_error", nil, 1)
			logError(log, "error when fetching access token", prod, cid, err)
			c.String(http.StatusBadGateway, "Upstream request failed: %v", err)
			return
		}

		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()

	res, err := client.Do(req)
	if err != nil {
		telemetry.Incr("access_gateway.proxy.pass_through.http_client_error", nil, 1)
		logError(log, "error when sending pass through request to upstream", prod, cid, err)
		c.String(http.StatusBadGateway, "Upstream request failed: %v", err)
		return
	}
	defer res.Body.Close()

	telemetry.Timing("access_gateway.proxy.pass_through.latency", time.Since(start), nil, 1)

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		telemetry.Incr("access_gateway.proxy.pass_through.read_response_body_error", nil, 1)
		logError(log, "error when reading pass through response body", prod, cid, err)
		JSON(c, http.StatusInternalServerError, "[access-gateway] failed to read upstream response body")
		return
	}

	copyResponseHeaders(c.Writer.Header(), res.Header)
	c.Data(res.StatusCode, responseContentType(res.Header), resBody)
}

// rewriteModelAlias resolves the model alias inside an arbitrary JSON body.
// Bodies without a model field, or that are not JSON objects at all, pass
// through untouched.
func rewriteModelAlias(body []byte, provider string, mapper modelMapper) []byte {
	content := map[string]interface{}{}
	if err := json.Unmarshal(body, &content); err != nil {
		return body
	}

	alias, ok := content["model"].(string)
	if !ok || len(alias) == 0 {
		return body
	}

	model := mapper.Lookup(provider, alias)
	if model != alias && strings.Contains(model, "publishers/google/") {
		model = vertex.ChatModelName(model)
	}

	content["model"] = model

	rewritten, err := json.Marshal(content)
	if err != nil {
		return body
	}

	return rewritten
}
