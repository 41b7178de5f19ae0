package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/birmacher/dealing-with-ai/common"
	"github.com/birmacher/dealing-with-ai/gateway"
	"github.com/birmacher/dealing-with-ai/input"
	"github.com/birmacher/dealing-with-ai/limiter"
	"github.com/birmacher/dealing-with-ai/llm"
	"github.com/birmacher/dealing-with-ai/logger"
	"github.com/birmacher/dealing-with-ai/prompt"
	"github.com/birmacher/dealing-with-ai/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Long: `Start the HTTP gateway. Settings are read from the defaults, an optional
gateway.yml, an optional .env file and the process environment, in that order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		envFile, _ := cmd.Flags().GetString("env-file")

		settings, err := common.Load(configPath, envFile)
		if err != nil {
			logger.Errorf("Invalid configuration: %v", err)
			return err
		}
		if cmd.Flags().Changed("port") {
			settings.Port, _ = cmd.Flags().GetString("port")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return serve(ctx, settings)
	},
}

// components is everything a running gateway needs
type components struct {
	limiter *limiter.Limiter
	service *gateway.Service
	client  llm.LLM
}

func (c components) Close() {
	if closer, ok := c.client.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warnf("Failed to close LLM client: %v", err)
		}
	}
}

func buildComponents(settings common.Settings) (components, error) {
	rateLimiter, err := limiter.New(limiter.Config{
		Window:      settings.Window(),
		MaxRequests: settings.RateLimit.MaxRequests,
		MaxKeys:     settings.RateLimit.MaxKeys,
	})
	if err != nil {
		return components{}, fmt.Errorf("rate limiter: %w", err)
	}

	validator, err := input.NewValidator(settings.InputLimits())
	if err != nil {
		return components{}, fmt.Errorf("input validator: %w", err)
	}

	transformer, err := prompt.NewTransformer(settings.PromptCharacters())
	if err != nil {
		return components{}, fmt.Errorf("prompt transformer: %w", err)
	}

	httpClient := common.NewBackendClient(common.BackendClientConfig{Timeout: settings.Timeout()})
	opts := []llm.Option{
		llm.WithModel(settings.ModelName()),
		llm.WithMaxTokens(settings.LLM.MaxTokens),
		llm.WithAPITimeout(settings.LLM.TimeoutSeconds),
		llm.WithMode(llm.Mode(settings.LLM.Mode)),
		llm.WithHTTPClient(httpClient),
	}
	if settings.LLM.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(settings.LLM.BaseURL))
	}

	client, err := llm.NewLLM(settings.LLM.Provider, settings.LLM.APIKey, opts...)
	if err != nil {
		return components{}, fmt.Errorf("failed to create client for LLM provider %s: %w", settings.LLM.Provider, err)
	}

	return components{
		limiter: rateLimiter,
		service: gateway.New(rateLimiter, validator, transformer, client),
		client:  client,
	}, nil
}

func serve(ctx context.Context, settings common.Settings) error {
	c, err := buildComponents(settings)
	if err != nil {
		logger.Error(err)
		return err
	}
	defer c.Close()

	limits := settings.InputLimits()
	logger.Infof("Using LLM provider %s, model %s, mode %s", settings.LLM.Provider, settings.ModelName(), settings.LLM.Mode)
	logger.Infof("Allowing %d requests per %s per client, max %d %s per request",
		settings.RateLimit.MaxRequests, settings.Window(), limits.Max, limits.Unit)

	handler := server.NewHandler(c.service, server.Options{TrustProxy: settings.RateLimit.TrustProxy})
	srv := server.New(net.JoinHostPort("", settings.Port), handler)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Server is running on port %s", settings.Port)
		return srv.Run(ctx)
	})
	g.Go(func() error {
		return c.limiter.Run(ctx, settings.Window())
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped: %v", err)
		return err
	}

	logger.Info("Server gracefully stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "Path to a YAML settings file (default gateway.yml when present)")
	serveCmd.Flags().String("env-file", "", "Path to a dotenv file (default .env when present)")
	serveCmd.Flags().StringP("port", "p", "", "Listen port, overrides PORT")
}
