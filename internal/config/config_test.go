package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("s2sql-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Auth.Required {
		t.Fatal("Auth.Required should default to false in dev")
	}
	if cfg.Semantic.Source != SemanticSourceFile {
		t.Fatalf("Semantic.Source = %q", cfg.Semantic.Source)
	}
	if !cfg.Parser.LinkingValueEnabled {
		t.Fatal("Parser.LinkingValueEnabled should default to true")
	}
	if cfg.Parser.StrategyType != "ONE_PASS_SELF_CONSISTENCY" {
		t.Fatalf("Parser.StrategyType = %q", cfg.Parser.StrategyType)
	}
	if cfg.Parser.SelfConsistencySamples != 5 {
		t.Fatalf("Parser.SelfConsistencySamples = %d", cfg.Parser.SelfConsistencySamples)
	}
	if cfg.Parser.TextLengthThreshold != 10 || cfg.Parser.ShortTextThreshold != 0.5 || cfg.Parser.LongTextThreshold != 0.8 {
		t.Fatalf("Parser thresholds = %+v", cfg.Parser)
	}
	if cfg.AI.Provider != "OPEN_AI" {
		t.Fatalf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.Exemplar.RecordEnabled {
		t.Fatal("Exemplar.RecordEnabled should default to false")
	}
	if cfg.Exemplar.FlushSize != 50 {
		t.Fatalf("Exemplar.FlushSize = %d", cfg.Exemplar.FlushSize)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"S2SQL_PROFILE": "prod"})
	cfg, err := Load("s2sql-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if !cfg.Auth.Required {
		t.Fatal("Auth.Required should default to true in prod")
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Semantic.Source != SemanticSourcePostgres {
		t.Fatalf("Semantic.Source = %q", cfg.Semantic.Source)
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
	if cfg.ObjectStore.AutoCreateBucket {
		t.Fatal("ObjectStore.AutoCreateBucket should default to false in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"S2SQL_PROFILE":                            "test",
		"S2SQL_SERVICE_NAME":                       "s2sql-custom",
		"S2SQL_HTTP_ADDR":                          ":9999",
		"S2SQL_HTTP_READ_TIMEOUT":                  "2s",
		"S2SQL_HTTP_WRITE_TIMEOUT":                 "3s",
		"S2SQL_LOG_LEVEL":                          "error",
		"S2SQL_AUTH_REQUIRED":                      "true",
		"S2SQL_AUTH_STATIC_KEYS":                   "k1:alice:parser",
		"S2SQL_SEMANTIC_SOURCE":                    "POSTGRES",
		"S2SQL_SEMANTIC_DSN":                       "postgres://example",
		"S2SQL_SEMANTIC_MAX_OPEN_CONNS":            "42",
		"S2SQL_SEMANTIC_REFRESH_INTERVAL":          "30s",
		"S2SQL_PARSER_LINKING_VALUE_ENABLE":        "false",
		"S2SQL_PARSER_STRATEGY_TYPE":               "one_pass",
		"S2SQL_PARSER_SELF_CONSISTENCY_SAMPLES":    "3",
		"S2SQL_PARSER_TEXT_LENGTH_THRESHOLD":       "12",
		"S2SQL_PARSER_TEXT_LENGTH_THRESHOLD_SHORT": "0.4",
		"S2SQL_PARSER_TEXT_LENGTH_THRESHOLD_LONG":  "0.9",
		"S2SQL_AI_PROVIDER":                        "ANTHROPIC",
		"S2SQL_AI_BASE_URL":                        "https://api.example.com",
		"S2SQL_AI_API_KEY":                         "secret-key",
		"S2SQL_AI_MODEL":                           "claude-sonnet",
		"S2SQL_AI_TEMPERATURE":                     "0.3",
		"S2SQL_AI_MAX_TOKENS":                      "2048",
		"S2SQL_AI_TIMEOUT":                         "21s",
		"S2SQL_OBJECTSTORE_ENDPOINT":               "s3.example.com",
		"S2SQL_OBJECTSTORE_BUCKET":                 "s2sql-prod",
		"S2SQL_OBJECTSTORE_USE_SSL":                "true",
		"S2SQL_OBJECTSTORE_AUTO_CREATE_BUCKET":     "false",
		"S2SQL_EXEMPLAR_RECORD_ENABLED":            "true",
		"S2SQL_EXEMPLAR_LOOKUP_ENABLED":            "true",
		"S2SQL_EXEMPLAR_FLUSH_SIZE":                "10",
		"S2SQL_EXEMPLAR_LOOKUP_LIMIT":              "3",
	})
	cfg, err := Load("s2sql-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "s2sql-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second || cfg.HTTP.WriteTimeout != 3*time.Second {
		t.Fatalf("HTTP timeouts = %s/%s", cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if !cfg.Auth.Required || cfg.Auth.StaticKeys != "k1:alice:parser" {
		t.Fatalf("Auth = %+v", cfg.Auth)
	}
	if cfg.Semantic.Source != SemanticSourcePostgres {
		t.Fatalf("Semantic.Source = %q", cfg.Semantic.Source)
	}
	if cfg.Semantic.DSN != "postgres://example" || cfg.Semantic.MaxOpenConns != 42 {
		t.Fatalf("Semantic = %+v", cfg.Semantic)
	}
	if cfg.Semantic.RefreshInterval != 30*time.Second {
		t.Fatalf("Semantic.RefreshInterval = %s", cfg.Semantic.RefreshInterval)
	}
	if cfg.Parser.LinkingValueEnabled {
		t.Fatal("Parser.LinkingValueEnabled = true, want false")
	}
	if cfg.Parser.StrategyType != "one_pass" {
		t.Fatalf("Parser.StrategyType = %q", cfg.Parser.StrategyType)
	}
	if cfg.Parser.SelfConsistencySamples != 3 || cfg.Parser.TextLengthThreshold != 12 {
		t.Fatalf("Parser = %+v", cfg.Parser)
	}
	if cfg.Parser.ShortTextThreshold != 0.4 || cfg.Parser.LongTextThreshold != 0.9 {
		t.Fatalf("Parser thresholds = %+v", cfg.Parser)
	}
	if cfg.AI.Provider != "ANTHROPIC" || cfg.AI.Model != "claude-sonnet" {
		t.Fatalf("AI = %+v", cfg.AI)
	}
	if cfg.AI.Temperature != 0.3 || cfg.AI.MaxTokens != 2048 || cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI = %+v", cfg.AI)
	}
	if cfg.ObjectStore.Endpoint != "s3.example.com" || cfg.ObjectStore.Bucket != "s2sql-prod" {
		t.Fatalf("ObjectStore = %+v", cfg.ObjectStore)
	}
	if !cfg.ObjectStore.UseSSL || cfg.ObjectStore.AutoCreateBucket {
		t.Fatalf("ObjectStore flags = %+v", cfg.ObjectStore)
	}
	if !cfg.Exemplar.RecordEnabled || !cfg.Exemplar.LookupEnabled {
		t.Fatalf("Exemplar = %+v", cfg.Exemplar)
	}
	if cfg.Exemplar.FlushSize != 10 || cfg.Exemplar.LookupLimit != 3 {
		t.Fatalf("Exemplar = %+v", cfg.Exemplar)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"S2SQL_PROFILE": "oops"},
		{"S2SQL_HTTP_READ_TIMEOUT": "NaN"},
		{"S2SQL_SEMANTIC_MAX_OPEN_CONNS": "oops"},
		{"S2SQL_SEMANTIC_SOURCE": "mysql"},
		{"S2SQL_PARSER_STRATEGY_TYPE": "  "},
		{"S2SQL_PARSER_SELF_CONSISTENCY_SAMPLES": "0"},
		{"S2SQL_PARSER_TEXT_LENGTH_THRESHOLD_SHORT": "half"},
		{"S2SQL_PARSER_LINKING_VALUE_ENABLE": "maybe"},
		{"S2SQL_EXEMPLAR_FLUSH_SIZE": "0"},
		{"S2SQL_AI_TEMPERATURE": "bad"},
		{"S2SQL_AUTH_REQUIRED": "not-bool"},
		{"S2SQL_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("s2sql-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
