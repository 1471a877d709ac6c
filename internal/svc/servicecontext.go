package svc

import (
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "folio-api/internal/cache"
	"folio-api/internal/config"
	assetpersist "folio-api/internal/persistence/assets"
	evmpersist "folio-api/internal/persistence/evm"
	ledgerpersist "folio-api/internal/persistence/ledger"
	pricepersist "folio-api/internal/persistence/prices"
	exchangepkg "folio-api/pkg/exchange"
	_ "folio-api/pkg/exchange/coinbasepro"
	_ "folio-api/pkg/exchange/sim"
	"folio-api/pkg/messages"
	"folio-api/pkg/pricing"
)

type ServiceContext struct {
	Config config.Config

	// Messages collects per-record warnings/errors surfaced to the user.
	Messages *messages.Aggregator

	DBConn sqlx.SqlConn
	Redis  *redis.Redis
	Cache  gocache.Cache
	TTL    cachekeys.TTLSet

	EvmStore *evmpersist.Store
	Assets   *assetpersist.Service
	Prices   pricing.Oracle
	Ledger   *ledgerpersist.Service

	ExchangeConfig    *exchangepkg.Config
	ExchangeProviders map[string]exchangepkg.Provider
	DefaultExchange   exchangepkg.Provider
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc := &ServiceContext{
		Config:   c,
		Messages: messages.NewAggregator(),
		TTL:      cachekeys.NewTTLSet(c.TTL),
	}

	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		svc.DBConn = conn
	}

	if c.Redis.Host != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		svc.Redis = rds
		svc.Cache = gocache.NewNode(rds, syncx.NewSingleFlight(), gocache.NewStat(cachekeys.Namespace),
			sqlx.ErrNotFound, gocache.WithExpiry(svc.TTL.Medium))
	}

	if svc.DBConn != nil {
		svc.EvmStore = evmpersist.NewStore(svc.DBConn, svc.Messages)
		svc.Assets = assetpersist.NewService(assetpersist.Config{
			SQLConn:        svc.DBConn,
			Cache:          svc.Cache,
			TTL:            svc.TTL,
			TreatEth2AsEth: c.TreatEth2AsEth,
		})
		svc.Ledger = ledgerpersist.NewService(svc.DBConn)
		if svc.Redis != nil {
			svc.Ledger = svc.Ledger.WithSnapshotCache(svc.Redis, svc.TTL)
		}
	}

	svc.Prices = buildOracle(&c, svc)

	// Build exchange providers when configured.
	if c.Exchange.Value != nil {
		exchangeCfg := c.Exchange.Value
		if c.IsTestEnv() {
			forceSandbox(exchangeCfg)
		}
		if svc.Assets == nil {
			log.Fatalf("exchange providers require a configured Postgres asset registry")
		}
		deps := exchangepkg.Deps{
			Assets:   svc.Assets,
			Prices:   svc.Prices,
			Messages: svc.Messages,
		}
		providers, err := exchangeCfg.BuildProviders(deps)
		if err != nil {
			log.Fatalf("failed to build exchange providers: %v", err)
		}
		svc.ExchangeConfig = exchangeCfg
		svc.ExchangeProviders = providers
		if exchangeCfg.Default != "" {
			svc.DefaultExchange = providers[exchangeCfg.Default]
		}
	}

	return svc
}

// forceSandbox points every configured provider at its sandbox endpoint.
// Test environments must never touch production exchange accounts.
func forceSandbox(cfg *exchangepkg.Config) {
	for _, provider := range cfg.Providers {
		provider.Sandbox = true
	}
}

// buildOracle stacks the pricing oracle: configured static sources first,
// then the database store, the whole chain behind the Redis cache.
func buildOracle(c *config.Config, svc *ServiceContext) pricing.Oracle {
	var chain pricing.Chain

	if c.Pricing.Value != nil {
		sources, err := c.Pricing.Value.BuildSources()
		if err != nil {
			log.Fatalf("failed to build pricing sources: %v", err)
		}
		if c.Pricing.Value.Default != "" {
			if oracle, ok := sources[c.Pricing.Value.Default]; ok {
				chain = append(chain, oracle)
			}
		}
		for name, oracle := range sources {
			if name == c.Pricing.Value.Default {
				continue
			}
			chain = append(chain, oracle)
		}
	}

	if svc.DBConn != nil {
		if dbOracle := pricepersist.NewService(svc.DBConn); dbOracle != nil {
			chain = append(chain, dbOracle)
		}
	}

	if len(chain) == 0 {
		// No source configured; every lookup fails with ErrNoPrice and the
		// affected balance is skipped with an error message.
		return pricing.NewStatic(nil)
	}

	return pricepersist.NewCached(chain, svc.Redis, svc.TTL)
}

// ClientTimeout returns the per-call HTTP timeout derived from config.
func (s *ServiceContext) ClientTimeout() time.Duration {
	read := s.Config.Client.ReadTimeout
	if read <= 0 {
		read = 30
	}
	return time.Duration(read) * time.Second
}
