package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	Port               string        `env:"PORT" envDefault:"8000"`
	Provider           string        `env:"PROVIDER"`
	ApiRoutePrefix     string        `env:"API_ROUTE_PREFIX" envDefault:"/api/v1"`
	ProxyTarget        string        `env:"PROXY_TARGET"`
	UseModelMapping    bool          `env:"USE_MODEL_MAPPING" envDefault:"true"`
	ModelMapPath       string        `env:"MODEL_MAP_PATH" envDefault:"data/modelmap.json"`
	KnownChatModels    []string      `env:"KNOWN_CHAT_MODELS" envSeparator:","`
	GcpProjectId       string        `env:"GCP_PROJECT_ID"`
	GcpRegion          string        `env:"GCP_REGION"`
	GcpEndpoint        string        `env:"GCP_ENDPOINT"`
	AwsRegion          string        `env:"AWS_REGION" envDefault:"us-west-2"`
	DefaultModel       string        `env:"DEFAULT_MODEL" envDefault:"anthropic.claude-3-sonnet-20240229-v1:0"`
	ProxyTimeout       time.Duration `env:"PROXY_TIME_OUT" envDefault:"5s"`
	PassThroughTimeout time.Duration `env:"PASS_THROUGH_TIME_OUT" envDefault:"30s"`
	TelemetryProvider  string        `env:"TELEMETRY_PROVIDER"`
	StatsEnabled       bool          `env:"STATS_ENABLED"`
	StatsAddress       string        `env:"STATS_ADDRESS" envDefault:"127.0.0.1:8125"`
	PrometheusEnabled  bool          `env:"PROMETHEUS_ENABLED"`
	PrometheusPort     string        `env:"PROMETHEUS_PORT" envDefault:"2112"`
}

func ParseEnvVariables() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ResolvedProvider picks the upstream family for this deployment. An explicit
// PROVIDER wins; otherwise an AWS execution environment selects aws and
// everything else defaults to gcp.
func (c *Config) ResolvedProvider() string {
	if len(c.Provider) != 0 {
		return strings.ToLower(c.Provider)
	}

	if isAws() {
		return "aws"
	}

	return "gcp"
}

func isAws() bool {
	execEnv := os.Getenv("AWS_EXECUTION_ENV")
	if execEnv == "AWS_ECS_FARGATE" || execEnv == "AWS_ECS_EC2" {
		return true
	}

	return len(os.Getenv("ECS_CONTAINER_METADATA_URI_V4")) != 0
}
