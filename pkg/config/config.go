package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		Model string `yaml:"model"`
	} `yaml:"embedding"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Feed struct {
		URL       string  `yaml:"url"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"feed"`

	Query struct {
		TopK                 int     `yaml:"top_k"`
		SimilarityCutoff     float64 `yaml:"similarity_cutoff"`
		AnswerWithoutContext bool    `yaml:"answer_without_context"`
	} `yaml:"query"`

	Auth struct {
		Password string `yaml:"password"`
	} `yaml:"auth"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/feedchat/config.yaml"),
			"/etc/feedchat/config.yaml",
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
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.5
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "articles"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}

	if config.Feed.RateLimit == 0 {
		config.Feed.RateLimit = 2.0
	}

	if config.Query.TopK == 0 {
		config.Query.TopK = 5
	}
	if config.Query.SimilarityCutoff == 0 {
		config.Query.SimilarityCutoff = 0.80
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if feedURL := os.Getenv("FEED_URL"); feedURL != "" {
		config.Feed.URL = feedURL
	}
	if password := os.Getenv("FEEDCHAT_PASSWORD"); password != "" {
		config.Auth.Password = password
	}
}
