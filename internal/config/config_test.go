package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{DSN: "postgres://localhost:5432/paperdex"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
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

func TestValidate_MissingDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database.DSN = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database dsn")
	}
}

func TestValidate_DefaultLimitAboveMax(t *testing.T) {
	cfg := validConfig()
	cfg.Search.DefaultLimit = 500
	cfg.Search.MaxLimit = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default_limit above max_limit")
	}
}

func TestValidate_CandidateCapBelowMaxLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Search.CandidateCap = 50
	cfg.Search.MaxLimit = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for candidate_cap below max_limit")
	}
}

func TestValidate_VectorizerUnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Vectorizers = map[string]VectorizerConfig{
		"default": {Provider: "missing", Model: "text-embedding-3-small"},
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for vectorizer referencing unknown provider")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Search.DefaultLimit != 20 {
		t.Errorf("default limit = %d, want 20", cfg.Search.DefaultLimit)
	}
	if cfg.Search.MaxLimit != 200 {
		t.Errorf("max limit = %d, want 200", cfg.Search.MaxLimit)
	}
	if cfg.Search.CandidateCap != 10000 {
		t.Errorf("candidate cap = %d, want 10000", cfg.Search.CandidateCap)
	}
	if cfg.Catalog.EnrichmentPrefix != "enrichment_" {
		t.Errorf("enrichment prefix = %q, want enrichment_", cfg.Catalog.EnrichmentPrefix)
	}
	if cfg.Database.StatementTimeoutMS != 15000 {
		t.Errorf("statement timeout = %d, want 15000", cfg.Database.StatementTimeoutMS)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("PAPERDEX_TEST_DSN", "postgres://db:5432/x")
	defer os.Unsetenv("PAPERDEX_TEST_DSN")

	in := []byte("dsn: ${PAPERDEX_TEST_DSN}\nport: ${PAPERDEX_TEST_MISSING:-8080}")
	out := string(expandEnvVars(in))

	want := "dsn: postgres://db:5432/x\nport: 8080"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}
