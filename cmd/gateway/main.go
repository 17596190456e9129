package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DefangLabs/openai-access-gateway/internal/config"
	"github.com/DefangLabs/openai-access-gateway/internal/dialect"
	"github.com/DefangLabs/openai-access-gateway/internal/gcp"
	"github.com/DefangLabs/openai-access-gateway/internal/logger"
	"github.com/DefangLabs/openai-access-gateway/internal/logger/zap"
	"github.com/DefangLabs/openai-access-gateway/internal/modelmap"
	"github.com/DefangLabs/openai-access-gateway/internal/server/web/proxy"
	"github.com/DefangLabs/openai-access-gateway/internal/telemetry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	modePtr := flag.String("m", "dev", "select the mode that the gateway runs in")
	flag.Parse()

	// missing .env is fine, environment variables still apply
	_ = godotenv.Load()

	lg := zap.NewLogger(*modePtr)
	log := zap.NewZapLogger(*modePtr)

	gin.SetMode(gin.ReleaseMode)

	cfg, err := config.ParseEnvVariables()
	if err != nil {
		lg.Fatalf("cannot parse environment variables: %v", err)
	}

	if len(cfg.TelemetryProvider) != 0 {
		if err := telemetry.Init(cfg); err != nil {
			lg.Fatalf("cannot initialize telemetry: %v", err)
		}
	}

	mapper := modelmap.Identity()
	if cfg.UseModelMapping {
		mapper, err = modelmap.NewMapper(cfg.ModelMapPath)
		if err != nil {
			lg.Fatalf("cannot load model map from %s: %v", cfg.ModelMapPath, err)
		}
	}

	selector := dialect.NewSelector(cfg.ProxyTarget, cfg.KnownChatModels)
	provider := cfg.ResolvedProvider()

	lg.Infof("starting gateway for provider %s", provider)

	var ps *proxy.ProxyServer

	switch provider {
	case "aws":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AwsRegion))
		cancel()
		if err != nil {
			lg.Fatalf("cannot load aws configuration: %v", err)
		}

		ps, err = proxy.NewProxyServer(log, *modePtr, cfg, mapper, selector, nil, bedrockruntime.NewFromConfig(awsCfg))
		if err != nil {
			lg.Fatalf("error creating proxy http server: %v", err)
		}
	default:
		resolveGcpLocation(cfg, lg)

		tp, err := gcp.NewTokenProvider(context.Background())
		if err != nil {
			if len(cfg.ProxyTarget) == 0 {
				lg.Fatalf("cannot discover gcp credentials: %v", err)
			}

			lg.Infof("gcp credentials unavailable, forwarding to %s without token injection: %v", cfg.ProxyTarget, err)
			ps, err = proxy.NewProxyServer(log, *modePtr, cfg, mapper, selector, nil, nil)
			if err != nil {
				lg.Fatalf("error creating proxy http server: %v", err)
			}

			break
		}

		ps, err = proxy.NewProxyServer(log, *modePtr, cfg, mapper, selector, tp, nil)
		if err != nil {
			lg.Fatalf("error creating proxy http server: %v", err)
		}
	}

	ps.Run()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Infof("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ps.Shutdown(ctx); err != nil {
		lg.Debugf("proxy server shutdown: %v", err)
	}

	lg.Infof("server exited")
}

// resolveGcpLocation fills in the project id and region from the metadata
// server when configuration leaves them empty. Off GCP the lookups fail fast
// and the configured values, possibly empty, stay in place.
func resolveGcpLocation(cfg *config.Config, lg logger.Logger) {
	if len(cfg.GcpProjectId) != 0 && len(cfg.GcpRegion) != 0 {
		return
	}

	resolver := gcp.NewMetadataResolver()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if len(cfg.GcpProjectId) == 0 {
		projectId, err := resolver.ProjectId(ctx)
		if err != nil {
			lg.Infof("failed to get project id from metadata server, using local settings: %v", err)
		} else {
			cfg.GcpProjectId = projectId
		}
	}

	if len(cfg.GcpRegion) == 0 {
		region, err := resolver.Region(ctx)
		if err != nil {
			lg.Infof("failed to get region from metadata server, using local settings: %v", err)
		} else {
			cfg.GcpRegion = region
		}
	}
}
