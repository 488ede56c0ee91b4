package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the draftdex service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	WebSearch WebSearchConfig `yaml:"websearch"`
	Matching  MatchingConfig  `yaml:"matching"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
// WriteTimeoutSec must outlast one full match: query embedding, re-ranking and fallback.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// Database drivers.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig selects and configures the template index backend.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, postgres, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DSN              string   `yaml:"dsn"`
	MaxOpenConns     int      `yaml:"max_open_conns"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// IndexConfig holds vector index and pagination settings.
type IndexConfig struct {
	Dimensions      int `yaml:"dimensions"`
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Vectorizer VectorizerConfig          `yaml:"vectorizer"`
	Cache      CacheConfig               `yaml:"cache"`
	TimeoutSec int                       `yaml:"timeout_sec"`
}

// ProviderConfig holds OpenAI-compatible provider credentials.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig selects the embedding model.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// CacheConfig sizes the two embedding cache tiers.
type CacheConfig struct {
	MemoryEntries int `yaml:"memory_entries"`
	TTLHours      int `yaml:"ttl_hours"` // Redis tier; 0 keeps entries forever
}

// LLMConfig selects the chat model used for re-ranking, synthesis and prefill.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// WebSearchConfig configures the Exa search client used by the fallback tier.
type WebSearchConfig struct {
	APIKey         string   `yaml:"api_key"`
	BaseURL        string   `yaml:"base_url"`
	MaxResults     int      `yaml:"max_results"`
	TimeoutSec     int      `yaml:"timeout_sec"`
	ExcludeDomains []string `yaml:"exclude_domains"`
}

// MatchingConfig holds matching thresholds and per-collaborator timeouts.
type MatchingConfig struct {
	TopK               int     `yaml:"top_k"`
	Threshold          float64 `yaml:"threshold"`
	FallbackConfidence float64 `yaml:"fallback_confidence"`
	DuplicateThreshold float64 `yaml:"duplicate_threshold"`
	RerankTimeoutSec   int     `yaml:"rerank_timeout_sec"`
	FallbackTimeoutSec int     `yaml:"fallback_timeout_sec"`
}

// IngestConfig holds document ingestion limits.
type IngestConfig struct {
	MaxDocumentBytes int `yaml:"max_document_bytes"`
	EmbedChars       int `yaml:"embed_chars"`
	MaxBatchSize     int `yaml:"max_batch_size"`
	Workers          int `yaml:"workers"`
}

// Load reads config/{env}.yaml (local, dev, docker, prod), expands env variables, applies defaults and validates.
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	c.applyHTTPDefaults()
	c.applyStorageDefaults()
	c.applyProviderDefaults()
	c.applyMatchingDefaults()
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = c.matchBudgetSec() + writeHeadroomSec
	}
}

// writeHeadroomSec covers response encoding after the slowest match completes.
const writeHeadroomSec = 10

// matchBudgetSec is the longest a single match may run before its final response.
func (c *Config) matchBudgetSec() int {
	return c.Embedding.TimeoutSec + c.Matching.RerankTimeoutSec + c.Matching.FallbackTimeoutSec
}

func (c *Config) applyHTTPDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 12 << 20
	}
}

func (c *Config) applyStorageDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "draftdex:"
	}
	if c.Index.Dimensions <= 0 {
		c.Index.Dimensions = 384
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.DefaultPageSize <= 0 {
		c.Index.DefaultPageSize = 100
	}
	if c.Index.MaxPageSize <= 0 {
		c.Index.MaxPageSize = 1000
	}
}

func (c *Config) applyProviderDefaults() {
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.Cache.MemoryEntries <= 0 {
		c.Embedding.Cache.MemoryEntries = 4096
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = c.Embedding.Vectorizer.Provider
	}
	if c.WebSearch.BaseURL == "" {
		c.WebSearch.BaseURL = "https://api.exa.ai"
	}
	if c.WebSearch.MaxResults <= 0 {
		c.WebSearch.MaxResults = 3
	}
	if c.WebSearch.TimeoutSec <= 0 {
		c.WebSearch.TimeoutSec = 30
	}
}

func (c *Config) applyMatchingDefaults() {
	if c.Matching.TopK <= 0 {
		c.Matching.TopK = 5
	}
	if c.Matching.Threshold <= 0 {
		c.Matching.Threshold = 0.75
	}
	if c.Matching.FallbackConfidence <= 0 {
		c.Matching.FallbackConfidence = 0.85
	}
	if c.Matching.DuplicateThreshold <= 0 {
		c.Matching.DuplicateThreshold = 0.90
	}
	if c.Matching.RerankTimeoutSec <= 0 {
		c.Matching.RerankTimeoutSec = 30
	}
	if c.Matching.FallbackTimeoutSec <= 0 {
		c.Matching.FallbackTimeoutSec = 120
	}
	if c.Ingest.MaxDocumentBytes <= 0 {
		c.Ingest.MaxDocumentBytes = 1 << 20
	}
	if c.Ingest.EmbedChars <= 0 {
		c.Ingest.EmbedChars = 1000
	}
	if c.Ingest.MaxBatchSize <= 0 {
		c.Ingest.MaxBatchSize = 20
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be redis, postgres or memory, got %q", c.Database.Driver)
	}

	if p := c.Embedding.Vectorizer.Provider; p != "" {
		if _, ok := c.Embedding.Providers[p]; !ok {
			return fmt.Errorf("embedding.vectorizer.provider %q is not defined in embedding.providers", p)
		}
	}
	if p := c.LLM.Provider; p != "" {
		if _, ok := c.Embedding.Providers[p]; !ok {
			return fmt.Errorf("llm.provider %q is not defined in embedding.providers", p)
		}
	}

	for name, v := range map[string]float64{
		"matching.threshold":           c.Matching.Threshold,
		"matching.fallback_confidence": c.Matching.FallbackConfidence,
		"matching.duplicate_threshold": c.Matching.DuplicateThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %g", name, v)
		}
	}
	if budget := c.matchBudgetSec(); c.HTTP.WriteTimeoutSec <= budget {
		return fmt.Errorf("http.write_timeout_sec (%d) must exceed embedding, rerank and fallback timeouts combined (%d)",
			c.HTTP.WriteTimeoutSec, budget)
	}
	if c.Index.DefaultPageSize > c.Index.MaxPageSize {
		return fmt.Errorf("index.default_page_size (%d) exceeds index.max_page_size (%d)",
			c.Index.DefaultPageSize, c.Index.MaxPageSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
