package proxy

import (
	"fmt"
	"net/http"
	"strings"
)

// Headers that must not travel upstream. The body is re-encoded so the
// inbound length is wrong, compressed upstream bodies would be double
// decoded, and the inbound authorization is replaced with the provider
// credential.
var strippedRequestHeaders = map[string]struct{}{
	"host":            {},
	"content-length":  {},
	"accept-encoding": {},
	"connection":      {},
	"authorization":   {},
}

// Headers that must not travel back to the client. The upstream body is
// decoded and possibly rewritten before it is re-sent.
var strippedResponseHeaders = map[string]struct{}{
	"content-encoding":  {},
	"transfer-encoding": {},
	"connection":        {},
}

func buildOutboundHeaders(src http.Header) http.Header {
	dst := http.Header{}
	for name, values := range src {
		if _, ok := strippedRequestHeaders[strings.ToLower(name)]; ok {
			continue
		}

		for _, value := range values {
			dst.Add(name, value)
		}
	}

	return dst
}

func copyResponseHeaders(dst http.Header, src http.Header) {
	for name, values := range src {
		if _, ok := strippedResponseHeaders[strings.ToLower(name)]; ok {
			continue
		}

		for _, value := range values {
			dst.Add(name, value)
		}
	}
}

func responseContentType(src http.Header) string {
	contentType := src.Get("Content-Type")
	if len(contentType) == 0 {
		return "application/octet-stream"
	}

	return contentType
}

// buildVertexUrl assembles the prediction endpoint url for a project scoped
// suffix such as "endpoints/openapi/chat/completions" or "<model>:rawPredict".
// An empty baseUrl selects the provider's regional host.
func buildVertexUrl(baseUrl, region, projectId, suffix string) string {
	if len(baseUrl) == 0 {
		baseUrl = fmt.Sprintf("https://%s-aiplatform.googleapis.com", region)
	}

	return fmt.Sprintf(
		"%s/v1/projects/%s/locations/%s/%s",
		baseUrl,
		projectId,
		region,
		suffix,
	)
}
