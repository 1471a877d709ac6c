package pricing

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"folio-api/pkg/confkit"
)

// Config describes the set of price sources available to the application.
type Config struct {
	Default string                   `yaml:"default"`
	Sources map[string]*SourceConfig `yaml:"sources"`
}

// SourceConfig represents configuration for a single price source.
type SourceConfig struct {
	Type string `yaml:"type"`

	// Prices holds identifier to USD quote pairs for static sources.
	Prices map[string]string `yaml:"prices"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// DecimalPrices parses the configured static quotes.
func (s *SourceConfig) DecimalPrices() (map[string]decimal.Decimal, error) {
	parsed := make(map[string]decimal.Decimal, len(s.Prices))
	for id, raw := range s.Prices {
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("pricing config: invalid price for %s: %w", id, err)
		}
		parsed[id] = price
	}
	return parsed, nil
}

// SourceBuilder constructs an Oracle from configuration.
type SourceBuilder func(name string, cfg *SourceConfig) (Oracle, error)

var (
	sourceRegistry   = make(map[string]SourceBuilder)
	sourceRegistryMu sync.RWMutex
)

// RegisterSource registers a price source constructor.
func RegisterSource(typeName string, builder SourceBuilder) {
	sourceRegistryMu.Lock()
	defer sourceRegistryMu.Unlock()
	sourceRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupSourceBuilder(typeName string) (SourceBuilder, bool) {
	sourceRegistryMu.RLock()
	defer sourceRegistryMu.RUnlock()
	builder, ok := sourceRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

func init() {
	RegisterSource("static", func(name string, cfg *SourceConfig) (Oracle, error) {
		prices, err := cfg.DecimalPrices()
		if err != nil {
			return nil, err
		}
		return NewStatic(prices), nil
	})
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pricing config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// MustLoad reads pricing configuration from the default project location and
// panics on error.
func MustLoad() *Config {
	path := confkit.MustProjectPath("etc/pricing.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pricing config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal pricing config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Sources == nil {
		c.Sources = make(map[string]*SourceConfig)
	}
	for name, source := range c.Sources {
		if source == nil {
			source = &SourceConfig{}
			c.Sources[name] = source
		}
		source.expandEnv()
		if err := source.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *SourceConfig) expandEnv() {
	s.Type = strings.TrimSpace(os.ExpandEnv(s.Type))
	s.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(s.TimeoutRaw))
	for id, raw := range s.Prices {
		s.Prices[id] = strings.TrimSpace(os.ExpandEnv(raw))
	}
}

func (s *SourceConfig) parseDurations(name string) error {
	if s.TimeoutRaw == "" {
		s.Timeout = 0
		return nil
	}
	d, err := time.ParseDuration(s.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("pricing source %s: invalid timeout %q: %w", name, s.TimeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("pricing source %s: timeout must be positive, got %s", name, d)
	}
	s.Timeout = d
	return nil
}

// Validate ensures all sources have sane configuration.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("pricing config: sources cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Sources[c.Default]; !ok {
			return fmt.Errorf("pricing config: default source %q not defined", c.Default)
		}
	}

	for name, source := range c.Sources {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("pricing config: source name cannot be empty")
		}
		if source == nil {
			return fmt.Errorf("pricing config: source %s is nil", name)
		}
		if strings.TrimSpace(source.Type) == "" {
			return fmt.Errorf("pricing config: source %s must specify type", name)
		}
		if _, ok := lookupSourceBuilder(source.Type); !ok {
			return fmt.Errorf("pricing config: source %s has unsupported type %q", name, source.Type)
		}
		if _, err := source.DecimalPrices(); err != nil {
			return err
		}
	}
	return nil
}

// BuildSources instantiates price oracles according to the configuration.
func (c *Config) BuildSources() (map[string]Oracle, error) {
	result := make(map[string]Oracle, len(c.Sources))
	for name, sourceCfg := range c.Sources {
		builder, ok := lookupSourceBuilder(sourceCfg.Type)
		if !ok {
			return nil, fmt.Errorf("pricing source %s: unsupported type %q", name, sourceCfg.Type)
		}
		oracle, err := builder(name, sourceCfg)
		if err != nil {
			return nil, fmt.Errorf("pricing source %s: %w", name, err)
		}
		result[name] = oracle
	}
	return result, nil
}
