package config

import (
	"fmt"
	"path/filepath"

	"folio-api/pkg/confkit"
	"folio-api/pkg/exchange"
	"folio-api/pkg/pricing"
)

// MustLoadExchange loads etc/exchange.yaml from the project root and panics on
// error. It isolates exchange config so tests and tools that only need the
// providers do not have to load the full application config.
func MustLoadExchange() *exchange.Config {
	root := confkit.MustProjectRoot()
	path := filepath.Join(root, "etc", "exchange.yaml")
	cfg, err := exchange.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load exchange config %s: %w", path, err))
	}
	return cfg
}

// MustLoadPricing loads etc/pricing.yaml from the project root and panics on error.
func MustLoadPricing() *pricing.Config {
	root := confkit.MustProjectRoot()
	path := filepath.Join(root, "etc", "pricing.yaml")
	cfg, err := pricing.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load pricing config %s: %w", path, err))
	}
	return cfg
}
