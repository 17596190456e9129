package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOutboundHeaders(t *testing.T) {
	src := http.Header{}
	src.Set("Host", "client.example.com")
	src.Set("Content-Length", "42")
	src.Set("Accept-Encoding", "gzip")
	src.Set("Connection", "keep-alive")
	src.Set("Authorization", "Bearer client-secret")
	src.Set("Content-Type", "application/json")
	src.Set("X-Request-Id", "abc123")

	dst := buildOutboundHeaders(src)

	assert.Empty(t, dst.Get("Host"))
	assert.Empty(t, dst.Get("Content-Length"))
	assert.Empty(t, dst.Get("Accept-Encoding"))
	assert.Empty(t, dst.Get("Connection"))
	assert.Empty(t, dst.Get("Authorization"))

	assert.Equal(t, "application/json", dst.Get("Content-Type"))
	assert.Equal(t, "abc123", dst.Get("X-Request-Id"))
}

func TestCopyResponseHeaders(t *testing.T) {
	src := http.Header{}
	src.Set("Content-Encoding", "gzip")
	src.Set("Transfer-Encoding", "chunked")
	src.Set("Connection", "close")
	src.Set("Content-Type", "application/json")
	src.Set("X-Upstream-Id", "u-1")

	dst := http.Header{}
	copyResponseHeaders(dst, src)

	assert.Empty(t, dst.Get("Content-Encoding"))
	assert.Empty(t, dst.Get("Transfer-Encoding"))
	assert.Empty(t, dst.Get("Connection"))

	assert.Equal(t, "application/json", dst.Get("Content-Type"))
	assert.Equal(t, "u-1", dst.Get("X-Upstream-Id"))
}

func TestResponseContentType(t *testing.T) {
	src := http.Header{}
	assert.Equal(t, "application/octet-stream", responseContentType(src))

	src.Set("Content-Type", "application/json; charset=utf-8")
	assert.Equal(t, "application/json; charset=utf-8", responseContentType(src))
}

func TestBuildVertexUrl(t *testing.T) {
	url := buildVertexUrl("", "us-central1", "my-project", "endpoints/openapi/chat/completions")
	assert.Equal(t, "https://us-central1-aiplatform.googleapis.com/v1/projects/my-project/locations/us-central1/endpoints/openapi/chat/completions", url)

	url = buildVertexUrl("", "europe-west4", "my-project", "publishers/anthropic/models/claude-3-haiku@20240307:rawPredict")
	assert.Equal(t, "https://europe-west4-aiplatform.googleapis.com/v1/projects/my-project/locations/europe-west4/publishers/anthropic/models/claude-3-haiku@20240307:rawPredict", url)
}

func TestBuildVertexUrl_EndpointOverride(t *testing.T) {
	url := buildVertexUrl("http://127.0.0.1:9999", "us-central1", "my-project", "my-model:predict")
	assert.Equal(t, "http://127.0.0.1:9999/v1/projects/my-project/locations/us-central1/my-model:predict", url)
}
