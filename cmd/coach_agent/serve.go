package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/fitness-coach/internal/config"
	"github.com/jonathan/fitness-coach/internal/db"
	"github.com/jonathan/fitness-coach/internal/llm"
	"github.com/jonathan/fitness-coach/internal/persistence"
	"github.com/jonathan/fitness-coach/internal/pipeline"
	"github.com/jonathan/fitness-coach/internal/server"
	"github.com/jonathan/fitness-coach/internal/server/ratelimit"
)

var (
	serveConfigPath string
	servePort       int
	serveMemory     bool
	serveDBURL      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the program generation API server",
	Long: `Start an HTTP server that streams program generation runs over SSE and WebSocket.

Configuration is read from config.yaml/config.json and the environment. Flags override
config values only when set explicitly.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a config file or directory (defaults to the working directory)")
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Use the in-memory store instead of PostgreSQL")
	serveCmd.Flags().StringVar(&serveDBURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := llm.NewClient(ctx, llmConfig(cfg), cfg.LLM.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	jwtCfg, err := cfg.JWT()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	var jwtService *server.JWTService
	if jwtCfg != nil {
		jwtService = server.NewJWTService(jwtCfg)
	}

	pipe := pipeline.New(client, persistence.NewCommitter(store), pipelineConfig(cfg))
	srv, err := server.New(serverConfig(cfg), server.Deps{
		Pipeline: pipe,
		Store:    store,
		JWT:      jwtService,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}

// applyServeFlags copies explicitly set flags over the loaded config
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("memory") {
		cfg.Database.Memory = serveMemory
	}
	if cmd.Flags().Changed("db-url") {
		cfg.Database.URL = serveDBURL
	}
}

// openStore connects to PostgreSQL, or returns a fresh in-memory store in memory mode
func openStore(ctx context.Context, cfg *config.Config) (db.ProgramStore, func(), error) {
	if cfg.Database.Memory {
		log.Printf("[server] using in-memory store; programs are lost on restart")
		return db.NewMemoryStore(), func() {}, nil
	}

	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return database, database.Close, nil
}

func llmConfig(cfg *config.Config) *llm.Config {
	c := llm.DefaultConfig()
	c.Provider = llm.Provider(cfg.LLM.Provider)
	for tier, model := range map[llm.ModelTier]string{
		llm.TierLite:     cfg.LLM.Models.Lite,
		llm.TierStandard: cfg.LLM.Models.Standard,
		llm.TierAdvanced: cfg.LLM.Models.Advanced,
	} {
		if model != "" {
			c = c.WithModel(tier, model)
		}
	}
	return c
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		StructureTier: llm.ParseTier(cfg.Generation.StructureTier, llm.TierStandard),
		PhaseTier:     llm.ParseTier(cfg.Generation.PhaseTier, llm.TierAdvanced),
		MaxPhases:     cfg.Generation.MaxPhases,
	}
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Port:           cfg.Server.Port,
		WriteTimeout:   cfg.Server.WriteTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimit:      ratelimit.NewConfig(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst),
	}
}
