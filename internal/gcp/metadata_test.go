package gcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeMetadataServer(t *testing.T, zone string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Metadata-Flavor") != "Google" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		switch r.URL.Path {
		case projectIdPath:
			w.Write([]byte("test-project"))
		case zonePath:
			w.Write([]byte(zone))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestMetadataResolver(t *testing.T) {
	server := newFakeMetadataServer(t, "projects/12345/zones/us-central1-a")
	defer server.Close()

	resolver := NewMetadataResolver()
	resolver.baseUrl = server.URL

	projectId, err := resolver.ProjectId(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-project", projectId)

	region, err := resolver.Region(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "us-central1", region)
}

func TestMetadataResolver_BadZone(t *testing.T) {
	server := newFakeMetadataServer(t, "weird")
	defer server.Close()

	resolver := NewMetadataResolver()
	resolver.baseUrl = server.URL

	_, err := resolver.Region(context.Background())
	assert.Error(t, err)
}

func TestMetadataResolver_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	resolver := NewMetadataResolver()
	resolver.baseUrl = server.URL

	_, err := resolver.ProjectId(context.Background())
	assert.Error(t, err)
}
