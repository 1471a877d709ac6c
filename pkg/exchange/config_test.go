package exchange_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	exchange "folio-api/pkg/exchange"
	_ "folio-api/pkg/exchange/coinbasepro"
	_ "folio-api/pkg/exchange/sim"
)

func TestLoadConfigAndBuildProviders(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("EXCHANGE_API_SECRET", "c2VjcmV0LWtleS1tYXRlcmlhbA==")
	t.Cleanup(func() {
		os.Unsetenv("EXCHANGE_API_SECRET")
	})

	configYAML := `
default: coinbasepro_main
providers:
  coinbasepro_main:
    type: coinbasepro
    api_key: test-key
    api_secret: ${EXCHANGE_API_SECRET}
    passphrase: test-passphrase
    timeout: 45s
    sandbox: true
    query_retry_limit: 3
  paper:
    type: sim
`
	path := filepath.Join(dir, "exchange.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := exchange.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Default != "coinbasepro_main" {
		t.Fatalf("unexpected default: %s", cfg.Default)
	}
	providerCfg := cfg.Providers["coinbasepro_main"]
	if providerCfg.APISecret != "c2VjcmV0LWtleS1tYXRlcmlhbA==" {
		t.Fatalf("env expansion failed, got %q", providerCfg.APISecret)
	}
	if providerCfg.QueryRetryLimit != 3 {
		t.Fatalf("unexpected retry limit: %d", providerCfg.QueryRetryLimit)
	}

	providers, err := cfg.BuildProviders(testDeps())
	if err != nil {
		t.Fatalf("BuildProviders error: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(providers))
	}
	if _, ok := providers["coinbasepro_main"]; !ok {
		t.Fatalf("provider map missing coinbasepro_main")
	}
}

func TestLoadConfigRequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	configYAML := `
providers:
  coinbasepro_main:
    type: coinbasepro
    api_key: test-key
`
	path := filepath.Join(dir, "exchange.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := exchange.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "api_secret") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestLoadConfigRejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	configYAML := `
providers:
  bogus:
    type: not-an-exchange
`
	path := filepath.Join(dir, "exchange.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := exchange.LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "unsupported type") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}
