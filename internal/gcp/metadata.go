package gcp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	metadataHost = "http://metadata.google.internal"

	projectIdPath = "/computeMetadata/v1/project/project-id"
	zonePath      = "/computeMetadata/v1/instance/zone"
)

// MetadataResolver reads the project id and region from the instance metadata
// server. It only works on GCP compute; elsewhere the short timeout makes the
// failure cheap and callers fall back to configuration.
type MetadataResolver struct {
	httpClient http.Client
	baseUrl    string
}

func NewMetadataResolver() *MetadataResolver {
	return &MetadataResolver{
		httpClient: http.Client{Timeout: time.Second},
		baseUrl:    metadataHost,
	}
}

func (r *MetadataResolver) fetch(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseUrl+path, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("Metadata-Flavor", "Google")

	res, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata server responded with %d", res.StatusCode)
	}

	bs, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	return string(bs), nil
}

func (r *MetadataResolver) ProjectId(ctx context.Context) (string, error) {
	return r.fetch(ctx, projectIdPath)
}

// Region derives the region from the instance zone. The metadata server
// reports the zone as "projects/<num>/zones/<region>-<letter>".
func (r *MetadataResolver) Region(ctx context.Context) (string, error) {
	zone, err := r.fetch(ctx, zonePath)
	if err != nil {
		return "", err
	}

	parts := strings.Split(zone, "/")
	zone = parts[len(parts)-1]

	idx := strings.LastIndex(zone, "-")
	if idx <= 0 {
		return "", fmt.Errorf("unexpected zone format: %s", zone)
	}

	return zone[:idx], nil
}
