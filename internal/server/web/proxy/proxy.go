package proxy

import (
	"context"
	"net/http"

	"github.com/DefangLabs/openai-access-gateway/internal/config"
	"github.com/DefangLabs/openai-access-gateway/internal/dialect"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	correlationId string = "correlationId"
)

// tokenProvider hands out an access token valid at call time.
type tokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// modelMapper resolves a client model alias to the provider's identifier.
type modelMapper interface {
	Lookup(provider, model string) string
}

// bedrockInvoker is the subset of the bedrock runtime client the chat
// handler needs.
type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type ProxyServer struct {
	server *http.Server
	log    *zap.Logger
}

func NewProxyServer(log *zap.Logger, mode string, cfg *config.Config, mapper modelMapper, selector *dialect.Selector, tp tokenProvider, invoker bedrockInvoker) (*ProxyServer, error) {
	router := gin.New()
	prod := mode == "production"
	provider := cfg.ResolvedProvider()

	router.Use(getMiddleware(log, prod))

	client := http.Client{}

	router.GET("/health", getGetHealthCheckHandler())

	prefix := cfg.ApiRoutePrefix

	if provider == "aws" {
		router.POST(prefix+"/chat/completions", getBedrockChatCompletionHandler(prod, cfg, mapper, invoker, cfg.ProxyTimeout))
	}

	if provider == "gcp" {
		router.POST(prefix+"/chat/completions", getChatCompletionHandler(prod, cfg, mapper, selector, tp, client, cfg.ProxyTimeout))
		router.POST(prefix+"/embeddings", getEmbeddingHandler(prod, cfg, mapper, tp, client, cfg.ProxyTimeout))
	}

	router.NoRoute(getPassThroughHandler(prod, cfg, mapper, tp, client, cfg.PassThroughTimeout))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	return &ProxyServer{
		log:    log,
		server: srv,
	}, nil
}

func getGetHealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusOK)
	}
}

func (ps *ProxyServer) Run() {
	go func() {
		ps.log.Sugar().Infof("proxy server listening at %s", ps.server.Addr)

		if err := ps.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ps.log.Sugar().Fatalf("error proxy server listening: %v", err)
			return
		}
	}()
}

func (ps *ProxyServer) Shutdown(ctx context.Context) error {
	if err := ps.server.Shutdown(ctx); err != nil {
		ps.log.Sugar().Infof("error shutting down proxy server: %v", err)

		return err
	}

	return nil
}

func logError(log *zap.Logger, msg string, prod bool, id string, err error) {
	if prod {
		log.Debug(msg, zap.String(correlationId, id), zap.Error(err))
		return
	}

	log.Sugar().Debugf("correlationId:%s | %s | %v", id, msg, err)
}
