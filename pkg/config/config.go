package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	LLM struct {
		Provider    string        `yaml:"provider"`
		BaseURL     string        `yaml:"base_url"`
		APIKey      string        `yaml:"api_key"`
		Model       string        `yaml:"model"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature *float64      `yaml:"temperature"` // nil uses the default, 0 is kept
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Knowledge struct {
		Dir        string   `yaml:"dir"`
		Extensions []string `yaml:"extensions"`
	} `yaml:"knowledge"`

	Server struct {
		Port           string   `yaml:"port"`
		Mode           string   `yaml:"mode"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`

	Prompt struct {
		Institution string `yaml:"institution"`
	} `yaml:"prompt"`

	Scraper struct {
		MaxDepth       int      `yaml:"max_depth"`
		RateLimit      float64  `yaml:"rate_limit"`
		IgnorePatterns []string `yaml:"ignore_patterns"`
	} `yaml:"scraper"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional, real environment variables still win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/kbot/config.yaml"),
			"/etc/kbot/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = ProviderOpenAI
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-3.5-turbo"
	}
	if config.LLM.Temperature == nil {
		temperature := 0.7
		config.LLM.Temperature = &temperature
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 60 * time.Second
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == ProviderOllama {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Knowledge.Dir == "" {
		config.Knowledge.Dir = "Knowledge"
	}
	if !filepath.IsAbs(config.Knowledge.Dir) {
		if wd, err := os.Getwd(); err == nil {
			config.Knowledge.Dir = filepath.Join(wd, config.Knowledge.Dir)
		}
	}
	if len(config.Knowledge.Extensions) == 0 {
		config.Knowledge.Extensions = []string{".txt", ".csv", ".pdf"}
	}

	if config.Server.Port == "" {
		config.Server.Port = "5001"
	}
	if config.Server.Mode == "" {
		config.Server.Mode = "release"
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}

	if config.Prompt.Institution == "" {
		config.Prompt.Institution = "Prince Zaid Bin Al-Hussein Vocational School"
	}

	if config.Scraper.MaxDepth == 0 {
		config.Scraper.MaxDepth = 2
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && config.LLM.Provider == ProviderOllama {
		config.LLM.BaseURL = baseURL
	}
	if dir := os.Getenv("KNOWLEDGE_PATH"); dir != "" {
		config.Knowledge.Dir = dir
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		config.Server.Mode = mode
	}
}
