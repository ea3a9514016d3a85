package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/xhad/kbot/pkg/chatbot"
	cfgPkg "github.com/xhad/kbot/pkg/config"
	"github.com/xhad/kbot/pkg/knowledge"
	"github.com/xhad/kbot/pkg/llm"
	"github.com/xhad/kbot/pkg/prompt"
	"github.com/xhad/kbot/pkg/retriever"
	"github.com/xhad/kbot/server"
)

var version = "dev"

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (*cfgPkg.Config, error) {
	var (
		configPath   string
		knowledgeDir string
		port         string
		provider     string
		model        string
	)

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&knowledgeDir, "knowledge", "", "Knowledge directory (default ./Knowledge)")
	flag.StringVar(&port, "port", "", "HTTP port")
	flag.StringVar(&provider, "provider", "", "LLM provider: openai or ollama")
	flag.StringVar(&model, "model", "", "LLM model to use")
	flag.Parse()

	cfg, err := cfgPkg.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Command line flags override the config file
	if knowledgeDir != "" {
		cfg.Knowledge.Dir = knowledgeDir
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if provider != "" {
		cfg.LLM.Provider = provider
		if provider == cfgPkg.ProviderOllama && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
			if cfg.LLM.BaseURL == "" {
				cfg.LLM.BaseURL = "http://localhost:11434"
			}
		}
	}
	if model != "" {
		cfg.LLM.Model = model
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config: %v", e)
		}
		return nil, fmt.Errorf("invalid configuration (%d errors)", len(errs))
	}

	return cfg, nil
}

func run(ctx context.Context, cfg *cfgPkg.Config) error {
	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	loader := knowledge.NewWithConfig(knowledge.LoaderConfig{
		Dir:        cfg.Knowledge.Dir,
		Extensions: cfg.Knowledge.Extensions,
	})

	svc := chatbot.NewService(
		retriever.New(loader),
		prompt.NewBuilder(cfg.Prompt.Institution),
		chatEngine,
	)

	log.Printf("Knowledge directory: %s (%s)", cfg.Knowledge.Dir, strings.Join(loader.SupportedExtensions(), ", "))
	log.Printf("Using %s model %s", cfg.LLM.Provider, cfg.LLM.Model)

	srv := server.New(server.Config{
		Addr:           ":" + cfg.Server.Port,
		Mode:           cfg.Server.Mode,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ServiceName:    "kbot",
		Version:        version,
	}, svc, loader)

	return srv.Run(ctx)
}
