package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			Providers: map[string]ProviderConfig{
				"openai": {APIKey: "test-key"},
			},
			Vectorizer: VectorizerConfig{Provider: "openai", Model: "text-embedding-3-small"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Drivers(t *testing.T) {
	tests := []struct {
		name    string
		db      DatabaseConfig
		wantErr string
	}{
		{"redis without addrs", DatabaseConfig{Driver: DriverRedis}, "database.addrs is required"},
		{"postgres without dsn", DatabaseConfig{Driver: DriverPostgres}, "database.dsn is required"},
		{"postgres with dsn", DatabaseConfig{Driver: DriverPostgres, DSN: "postgres://localhost/draftdex"}, ""},
		{"memory", DatabaseConfig{Driver: DriverMemory}, ""},
		{"unknown", DatabaseConfig{Driver: "mongo"}, `database.driver must be redis, postgres or memory, got "mongo"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Database = tt.db

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Provider = "nebius"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for undefined llm provider")
	}
	expected := `llm.provider "nebius" is not defined in embedding.providers`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ThresholdRange(t *testing.T) {
	cfg := validConfig()
	cfg.Matching.DuplicateThreshold = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for threshold above 1")
	}
	if !strings.Contains(err.Error(), "matching.duplicate_threshold") {
		t.Errorf("error should name the field, got %q", err.Error())
	}
}

func TestValidate_PageSizes(t *testing.T) {
	cfg := validConfig()
	cfg.Index.DefaultPageSize = 500
	cfg.Index.MaxPageSize = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when default page size exceeds max")
	}
}

func TestValidate_WriteTimeoutCoversMatch(t *testing.T) {
	tests := []struct {
		name    string
		write   int
		wantErr bool
	}{
		{"shorter than budget", 150, true},
		{"equal to budget", 180, true},
		{"longer than budget", 181, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.TimeoutSec = 30
			cfg.Matching.RerankTimeoutSec = 30
			cfg.Matching.FallbackTimeoutSec = 120
			cfg.HTTP.WriteTimeoutSec = tt.write
			err := cfg.Validate()
			if tt.wantErr && (err == nil || !strings.Contains(err.Error(), "write_timeout_sec")) {
				t.Fatalf("expected write_timeout_sec error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestApplyDefaults_WriteTimeoutFollowsMatchTimeouts(t *testing.T) {
	cfg := Config{Matching: MatchingConfig{RerankTimeoutSec: 60, FallbackTimeoutSec: 300}}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 30+60+300+writeHeadroomSec {
		t.Errorf("expected derived WriteTimeoutSec, got %d", cfg.HTTP.WriteTimeoutSec)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 190 {
		t.Errorf("expected WriteTimeoutSec=190, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Embedding.TimeoutSec != 30 {
		t.Errorf("expected Embedding.TimeoutSec=30, got %d", cfg.Embedding.TimeoutSec)
	}
	if cfg.Database.Driver != DriverRedis {
		t.Errorf("expected Driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Storage.KeyPrefix != "draftdex:" {
		t.Errorf("expected KeyPrefix='draftdex:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Index.Dimensions != 384 {
		t.Errorf("expected Dimensions=384, got %d", cfg.Index.Dimensions)
	}
	if cfg.Matching.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Matching.TopK)
	}
	if cfg.Matching.Threshold != 0.75 {
		t.Errorf("expected Threshold=0.75, got %g", cfg.Matching.Threshold)
	}
	if cfg.Matching.FallbackConfidence != 0.85 {
		t.Errorf("expected FallbackConfidence=0.85, got %g", cfg.Matching.FallbackConfidence)
	}
	if cfg.Matching.DuplicateThreshold != 0.90 {
		t.Errorf("expected DuplicateThreshold=0.90, got %g", cfg.Matching.DuplicateThreshold)
	}
	if cfg.Ingest.Workers != 4 {
		t.Errorf("expected Workers=4, got %d", cfg.Ingest.Workers)
	}
	if cfg.Ingest.MaxBatchSize != 20 {
		t.Errorf("expected MaxBatchSize=20, got %d", cfg.Ingest.MaxBatchSize)
	}
	if cfg.WebSearch.MaxResults != 3 {
		t.Errorf("expected MaxResults=3, got %d", cfg.WebSearch.MaxResults)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: DriverMemory},
		Index:    IndexConfig{Dimensions: 1536, HNSWM: 32},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
		Matching: MatchingConfig{TopK: 10, Threshold: 0.6},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("expected Driver=memory, got %q", cfg.Database.Driver)
	}
	if cfg.Index.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.Index.Dimensions)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Matching.TopK != 10 || cfg.Matching.Threshold != 0.6 {
		t.Errorf("matching overridden: %+v", cfg.Matching)
	}
}

func TestApplyDefaults_LLMProviderFollowsVectorizer(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{Vectorizer: VectorizerConfig{Provider: "openai"}}}
	cfg.ApplyDefaults()

	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected LLM provider 'openai', got %q", cfg.LLM.Provider)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("DRAFTDEX_TEST_KEY", "secret")

	got := string(expandEnvVars([]byte("a: ${DRAFTDEX_TEST_KEY}\nb: ${DRAFTDEX_TEST_MISSING:-fallback}\nc: ${DRAFTDEX_TEST_MISSING}")))
	want := "a: secret\nb: fallback\nc: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o750); err != nil {
		t.Fatal(err)
	}
	yml := `
http:
  port: 9090
database:
  driver: memory
matching:
  threshold: 0.8
`
	if err := os.WriteFile(filepath.Join(dir, "config", "unittest.yaml"), []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := Load("unittest")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Matching.Threshold != 0.8 {
		t.Errorf("expected threshold 0.8, got %g", cfg.Matching.Threshold)
	}
	if cfg.Matching.TopK != 5 {
		t.Errorf("expected default TopK 5, got %d", cfg.Matching.TopK)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected 'local', got %q", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected 'prod', got %q", got)
	}
}
