// Package config loads the retrieval server configuration from a YAML file,
// merges environment overrides and fills in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Index struct {
		LocalPath           string  `yaml:"local_path"`
		RemoteURL           string  `yaml:"remote_url"`
		RemoteTable         string  `yaml:"remote_table"`
		VectorDim           int     `yaml:"vector_dim"`
		Boost               float64 `yaml:"boost"`
		QueryTimeoutSeconds int     `yaml:"query_timeout_seconds"`
	} `yaml:"index"`

	Embedding struct {
		Provider       string  `yaml:"provider"`
		Model          string  `yaml:"model"`
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		CacheSize      int     `yaml:"cache_size"`
		RateLimit      float64 `yaml:"rate_limit"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"embedding"`

	Expansion struct {
		Enabled        bool   `yaml:"enabled"`
		Model          string `yaml:"model"`
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"expansion"`

	Cache struct {
		Capacity int `yaml:"capacity"`
		TTLHours int `yaml:"ttl_hours"`
	} `yaml:"cache"`

	Retrieval struct {
		DefaultK       int     `yaml:"default_k"`
		MinScore       float64 `yaml:"min_score"`
		ConsensusBoost float64 `yaml:"consensus_boost"`
		SingleLambda   float64 `yaml:"mmr_lambda_single"`
		MultiLambda    float64 `yaml:"mmr_lambda_multi"`
	} `yaml:"retrieval"`
}

// Load reads the configuration. An empty path probes the default locations
// before falling back to defaults plus environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		locations := []string{
			"passagerag.yaml",
			"passagerag.yml",
			filepath.Join(os.Getenv("HOME"), ".config/passagerag/config.yaml"),
			"/etc/passagerag/config.yaml",
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %v", err)
		}
	}

	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Index.RemoteTable == "" {
		config.Index.RemoteTable = "passages"
	}
	if config.Index.VectorDim == 0 {
		config.Index.VectorDim = 1536
	}
	if config.Index.Boost == 0 {
		config.Index.Boost = 1.05
	}
	if config.Index.QueryTimeoutSeconds == 0 {
		config.Index.QueryTimeoutSeconds = 5
	}

	// Provider intentionally has no default: an empty value means
	// resolve it from the environment at startup.
	if config.Embedding.CacheSize == 0 {
		config.Embedding.CacheSize = 10000
	}
	if config.Embedding.TimeoutSeconds == 0 {
		config.Embedding.TimeoutSeconds = 10
	}

	if config.Expansion.Model == "" {
		config.Expansion.Model = "gpt-4o-mini"
	}
	if config.Expansion.TimeoutSeconds == 0 {
		config.Expansion.TimeoutSeconds = 10
	}

	if config.Cache.Capacity == 0 {
		config.Cache.Capacity = 1000
	}
	if config.Cache.TTLHours == 0 {
		config.Cache.TTLHours = 24
	}

	if config.Retrieval.DefaultK == 0 {
		config.Retrieval.DefaultK = 5
	}
	if config.Retrieval.MinScore == 0 {
		config.Retrieval.MinScore = 0.3
	}
	if config.Retrieval.ConsensusBoost == 0 {
		config.Retrieval.ConsensusBoost = 1.1
	}
	if config.Retrieval.SingleLambda == 0 {
		config.Retrieval.SingleLambda = 0.7
	}
	if config.Retrieval.MultiLambda == 0 {
		config.Retrieval.MultiLambda = 0.5
	}
}

func mergeWithEnv(config *Config) {
	if path := os.Getenv("PASSAGE_INDEX_PATH"); path != "" {
		config.Index.LocalPath = path
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Index.RemoteURL = dbURL
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = key
		}
		if config.Expansion.APIKey == "" {
			config.Expansion.APIKey = key
		}
	}
	if key := os.Getenv("JINA_API_KEY"); key != "" && config.Embedding.APIKey == "" {
		config.Embedding.Provider = "jina"
		config.Embedding.APIKey = key
	}
	if v := os.Getenv("ADVANCED_SEARCH"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			config.Expansion.Enabled = enabled
		}
	}
}

// ValidationError names one rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Index.LocalPath == "" && c.Index.RemoteURL == "" {
		errs = append(errs, ValidationError{"index", "either local_path or remote_url is required"})
	}
	if c.Index.VectorDim < 1 {
		errs = append(errs, ValidationError{"index.vector_dim", "must be positive"})
	}
	if c.Index.Boost < 1 {
		errs = append(errs, ValidationError{"index.boost", "must be >= 1"})
	}

	switch c.Embedding.Provider {
	case "openai", "jina":
		if c.Embedding.APIKey == "" {
			errs = append(errs, ValidationError{"embedding.api_key", fmt.Sprintf("required for provider %q", c.Embedding.Provider)})
		}
	case "local", "":
	default:
		errs = append(errs, ValidationError{"embedding.provider", fmt.Sprintf("unknown provider %q", c.Embedding.Provider)})
	}

	if c.Expansion.Enabled && c.Expansion.APIKey == "" {
		errs = append(errs, ValidationError{"expansion.api_key", "required when expansion is enabled"})
	}

	if c.Cache.Capacity < 1 {
		errs = append(errs, ValidationError{"cache.capacity", "must be positive"})
	}
	if c.Retrieval.DefaultK < 1 || c.Retrieval.DefaultK > 20 {
		errs = append(errs, ValidationError{"retrieval.default_k", "must be in [1,20]"})
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		errs = append(errs, ValidationError{"retrieval.min_score", "must be in [0,1]"})
	}
	if c.Retrieval.ConsensusBoost < 1 {
		errs = append(errs, ValidationError{"retrieval.consensus_boost", "must be >= 1"})
	}
	if c.Retrieval.SingleLambda < 0 || c.Retrieval.SingleLambda > 1 {
		errs = append(errs, ValidationError{"retrieval.mmr_lambda_single", "must be in [0,1]"})
	}
	if c.Retrieval.MultiLambda < 0 || c.Retrieval.MultiLambda > 1 {
		errs = append(errs, ValidationError{"retrieval.mmr_lambda_multi", "must be in [0,1]"})
	}

	return errs
}
