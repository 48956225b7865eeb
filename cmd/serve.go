package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/agent"
	"github.com/anirbandas/job-apply-agent/internal/ai/gemini"
	"github.com/anirbandas/job-apply-agent/internal/auth"
	"github.com/anirbandas/job-apply-agent/internal/logger"
	"github.com/anirbandas/job-apply-agent/internal/notify"
	"github.com/anirbandas/job-apply-agent/internal/portal"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/queue"
	"github.com/anirbandas/job-apply-agent/internal/secrets"
	"github.com/anirbandas/job-apply-agent/internal/server"
)

const (
	defaultListenAddr = ":8000"
	defaultDataDir    = "./job_logs"
	defaultDatabase   = "job_apply_agent"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the job-apply-agent API server and agent fleet",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen-addr", "l", "", "address for the http server to listen on")

	viper.BindPFlag("listen-addr", serveCmd.Flags().Lookup("listen-addr"))
}

func serve(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the job-apply-agent", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config.ListenAddr == "" {
		config.ListenAddr = defaultListenAddr
	}
	if config.DataDir == "" {
		config.DataDir = defaultDataDir
	}
	if config.Portal == nil || config.Portal.BaseURL == "" {
		logger.Fatal("portal base url is required under portal.base-url")
	}
	if config.Mongo == nil || config.Mongo.URI == "" {
		logger.Fatal("mongo connection string is required under mongo.uri")
	}
	if config.Mongo.Database == "" {
		config.Mongo.Database = defaultDatabase
	}

	jwtSecret, err := loadJWTSecret(config)
	if err != nil {
		logger.Fatal("loading jwt secret",
			zap.Error(err),
			zap.String("hint", "set JAA_JWT_SECRET_FILE environment variable or the 'auth.jwt-secret-file' key in the configuration file"),
		)
	}

	var tokenTTL time.Duration
	if config.Auth != nil {
		tokenTTL = config.Auth.TokenTTL
	}

	tokens, err := auth.NewTokenService([]byte(jwtSecret), tokenTTL)
	if err != nil {
		logger.Fatal("creating token service", zap.Error(err))
	}

	geminiCfg := geminiConfig(config)
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: geminiCfg.APIKey,
		File:  geminiCfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		logger.Fatal("loading gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, geminiCfg.Model, geminiCfg.MaxRetries, logger)
	if err != nil {
		logger.Fatal("creating gemini generator", zap.Error(err))
	}

	logger.Info("gemini generator ready", zap.String("model", generator.Model()))

	profiles, err := profile.NewMongoStore(ctx, config.Mongo.URI, config.Mongo.Database)
	if err != nil {
		logger.Fatal("connecting to profile store", zap.Error(err))
	}
	defer profiles.Close(context.Background())

	portalClient := portal.New(logger, config.Portal.BaseURL)

	var lockTimeout time.Duration
	if config.Queue != nil {
		lockTimeout = config.Queue.LockTimeout
	}
	queues := queue.NewStore(config.DataDir, lockTimeout, logger)

	hub := notify.NewHub(logger)

	agentCfg := agentConfig(config)
	scorer := gemini.NewScorer(generator, logger, geminiCfg.MaxLogLength)
	writer := gemini.NewWriter(generator, logger, geminiCfg.MaxLogLength)
	queries := gemini.NewQueryBuilder(generator, logger, geminiCfg.MaxLogLength)
	extractor := gemini.NewExtractor(generator, logger, geminiCfg.MaxLogLength)

	router := agent.NewRouter(scorer, queues, hub, agentCfg, logger)
	submitter := agent.NewSubmitter(writer, portalClient, queues, hub, agentCfg, logger)
	worker := agent.NewWorker(profiles, queries, portalClient, router, writer, submitter, queues, hub, agentCfg, logger)
	manager := agent.NewManager(worker, logger)

	srv := server.New(logger, profiles, tokens, manager, queues, hub, extractor)
	srv.SetBaseContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(config.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}

	manager.Shutdown()

	logger.Info("bye")
}

func loadJWTSecret(config *Config) (string, error) {
	src := secrets.Source{Name: "jwt secret", Env: "JAA_JWT_SECRET"}
	if config.Auth != nil {
		src.Value = config.Auth.JWTSecret
		src.File = config.Auth.JWTSecretFile
	}
	return secrets.Load(src)
}

func geminiConfig(config *Config) *GeminiConfig {
	if config.AI != nil && config.AI.Gemini != nil {
		return config.AI.Gemini
	}
	return &GeminiConfig{}
}

func agentConfig(config *Config) agent.Config {
	if config.Agent == nil {
		return agent.Config{}
	}
	return agent.Config{
		RejectBelow:      config.Agent.RejectBelow,
		ClarifyBelow:     config.Agent.ClarifyBelow,
		MaxSubmitRetries: config.Agent.MaxSubmitRetries,
		RetryDelay:       config.Agent.RetryDelay,
		PassInterval:     config.Agent.PassInterval,
		BatchLimit:       config.Agent.BatchLimit,
	}
}
