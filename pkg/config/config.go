package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		Token       string  `yaml:"token"`
		BaseURL     string  `yaml:"base_url"`
	} `yaml:"llm"`

	Embedding struct {
		Model            string `yaml:"model"`
		Token            string `yaml:"token"`
		BaseURL          string `yaml:"base_url"`
		BatchSize        int    `yaml:"batch_size"`
		MinDelayMS       int    `yaml:"min_delay_ms"`
		MaxChunksPerCall int    `yaml:"max_chunks_per_call"`
	} `yaml:"embedding"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Chunker struct {
		MaxChunkSize int      `yaml:"max_chunk_size"`
		OverlapSize  int      `yaml:"overlap_size"`
		Separators   []string `yaml:"separators"`
	} `yaml:"chunker"`

	Search struct {
		Threshold float64 `yaml:"threshold"`
		TopK      int     `yaml:"top_k"`
	} `yaml:"search"`

	Session struct {
		RetentionHours       int `yaml:"retention_hours"`
		SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	} `yaml:"session"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/pdfchat/config.yaml"),
			"/etc/pdfchat/config.yaml",
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
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-3.5-turbo"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 500
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "text-embedding-3-small"
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 20
	}
	if config.Embedding.MinDelayMS == 0 {
		config.Embedding.MinDelayMS = 1000
	}
	if config.Embedding.MaxChunksPerCall == 0 {
		config.Embedding.MaxChunksPerCall = 100
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "documents"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}

	if config.Chunker.MaxChunkSize == 0 {
		config.Chunker.MaxChunkSize = 1000
	}
	if config.Chunker.OverlapSize == 0 {
		config.Chunker.OverlapSize = 200
	}
	if len(config.Chunker.Separators) == 0 {
		config.Chunker.Separators = []string{"\n\n", "\n", ". ", " ", ""}
	}

	if config.Search.Threshold == 0 {
		config.Search.Threshold = 0.5
	}
	if config.Search.TopK == 0 {
		config.Search.TopK = 5
	}

	if config.Session.RetentionHours == 0 {
		config.Session.RetentionHours = 48
	}
	if config.Session.SweepIntervalMinutes == 0 {
		config.Session.SweepIntervalMinutes = 60
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if config.LLM.Token == "" {
			config.LLM.Token = key
		}
		if config.Embedding.Token == "" {
			config.Embedding.Token = key
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
