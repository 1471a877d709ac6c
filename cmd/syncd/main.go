package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"folio-api/internal/cache"
	"folio-api/internal/cli"
	"folio-api/internal/config"
	ledgerpersist "folio-api/internal/persistence/ledger"
	"folio-api/internal/svc"
	"folio-api/pkg/exchange"
	"folio-api/pkg/journal"
)

const (
	syncInterval    = 10 * time.Minute // Exchange ingestion interval
	apiTimeout      = 2 * time.Minute  // Timeout for one full sync cycle
	shutdownTimeout = 10 * time.Second // Grace period for shutdown
)

var configFile = flag.String("f", "etc/folio.yaml", "the config file")

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting sync daemon...")

	appCfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[main] Failed to load config: %v", err)
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	svcCtx := svc.NewServiceContext(*appCfg)
	if svcCtx.Ledger == nil {
		log.Fatalf("[main] Sync daemon requires a configured Postgres ledger")
	}
	if len(svcCtx.ExchangeProviders) == 0 {
		log.Fatalf("[main] No exchange providers configured")
	}

	writer := journal.NewWriter(appCfg.JournalDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for name, provider := range svcCtx.ExchangeProviders {
		wg.Add(1)
		go func(name string, provider exchange.Provider) {
			defer wg.Done()
			runProviderSync(ctx, svcCtx, provider, writer)
		}(name, provider)
		log.Printf("[main] Scheduled provider %s every %s", name, syncInterval)
	}

	log.Println("[main] Sync daemon started. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Println("[main] Shutdown signal received, stopping tasks...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("[main] All tasks stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}

	log.Println("[main] Sync daemon stopped")
}

// runProviderSync ingests one provider on a schedule until ctx is cancelled.
func runProviderSync(ctx context.Context, svcCtx *svc.ServiceContext, provider exchange.Provider, writer *journal.Writer) {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()

	// Run once immediately on startup
	syncProvider(ctx, svcCtx, provider, writer)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] Stopping sync", provider.Name())
			return
		case <-ticker.C:
			syncProvider(ctx, svcCtx, provider, writer)
		}
	}
}

// syncProvider runs one ingestion cycle: trades and movements for the
// not-yet-covered window, then a balances snapshot.
func syncProvider(parentCtx context.Context, svcCtx *svc.ServiceContext, provider exchange.Provider, writer *journal.Writer) {
	if parentCtx.Err() != nil {
		return
	}
	location := provider.Name()

	if !acquireSyncLock(parentCtx, svcCtx, location) {
		log.Printf("[%s] Another instance holds the sync lock, skipping cycle", location)
		return
	}

	ctx, cancel := context.WithTimeout(parentCtx, apiTimeout)
	defer cancel()

	started := time.Now()
	rec := &journal.RunRecord{Location: location}

	err := runCycle(ctx, svcCtx, provider, rec)
	rec.DurationMs = time.Since(started).Milliseconds()
	rec.Success = err == nil
	if err != nil {
		rec.ErrorMessage = err.Error()
		log.Printf("[%s] [ERROR] sync cycle: %v, took %dms", location, err, rec.DurationMs)
	} else {
		log.Printf("[%s] [OK] trades=%d movements=%d balances=%d window=[%d,%d], took %dms",
			location, rec.TradeCount, rec.MovementCount, rec.BalanceCount,
			rec.WindowStart, rec.WindowEnd, rec.DurationMs)
		recordLastRun(ctx, svcCtx, location)
	}

	if _, werr := writer.WriteRun(rec); werr != nil {
		log.Printf("[%s] [WARN] journal write failed: %v", location, werr)
	}
}

func runCycle(ctx context.Context, svcCtx *svc.ServiceContext, provider exchange.Provider, rec *journal.RunRecord) error {
	location := provider.Name()
	if err := provider.FirstConnection(ctx); err != nil {
		return err
	}

	now := time.Now().Unix()
	tradesRange := ledgerpersist.RangeName(location, "trades")
	start, queryStart := int64(0), int64(0)
	if r, ok, err := svcCtx.Ledger.GetQueryRange(ctx, tradesRange); err != nil {
		return err
	} else if ok {
		start, queryStart = r.Start, r.End+1
	}
	rec.WindowStart, rec.WindowEnd = queryStart, now

	trades, err := provider.QueryTradeHistory(ctx, queryStart, now)
	if err != nil {
		return err
	}
	if err := svcCtx.Ledger.AddTrades(ctx, location, trades); err != nil {
		return err
	}
	if err := svcCtx.Ledger.SetQueryRange(ctx, tradesRange, ledgerpersist.QueryRange{Start: start, End: now}); err != nil {
		return err
	}
	rec.TradeCount = len(trades)

	movementsRange := ledgerpersist.RangeName(location, "movements")
	start, queryStart = 0, 0
	if r, ok, err := svcCtx.Ledger.GetQueryRange(ctx, movementsRange); err != nil {
		return err
	} else if ok {
		start, queryStart = r.Start, r.End+1
	}
	movements, err := provider.QueryAssetMovements(ctx, queryStart, now)
	if err != nil {
		return err
	}
	if err := svcCtx.Ledger.AddMovements(ctx, location, movements); err != nil {
		return err
	}
	if err := svcCtx.Ledger.SetQueryRange(ctx, movementsRange, ledgerpersist.QueryRange{Start: start, End: now}); err != nil {
		return err
	}
	rec.MovementCount = len(movements)

	balances, err := provider.QueryBalances(ctx)
	if err != nil {
		return err
	}
	if err := svcCtx.Ledger.SaveBalancesSnapshot(ctx, location, balances); err != nil {
		return err
	}
	rec.BalanceCount = len(balances)
	return nil
}

// recordLastRun stores the completion timestamp for dashboards and health
// checks. Failures only log.
func recordLastRun(ctx context.Context, svcCtx *svc.ServiceContext, location string) {
	if svcCtx.Redis == nil {
		return
	}
	key := cache.SyncLastRunKey(location)
	value := strconv.FormatInt(time.Now().Unix(), 10)
	if err := svcCtx.Redis.SetexCtx(ctx, key, value, int(svcCtx.TTL.Long.Seconds())); err != nil {
		log.Printf("[%s] [WARN] record last run: %v", location, err)
	}
}

// acquireSyncLock takes the per-location Redis lock so concurrent daemon
// instances never double-ingest. Without Redis the lock is a no-op.
func acquireSyncLock(ctx context.Context, svcCtx *svc.ServiceContext, location string) bool {
	if svcCtx.Redis == nil {
		return true
	}
	key := cache.SyncLockKey(location)
	ok, err := svcCtx.Redis.SetnxExCtx(ctx, key, "1", int(cache.SyncLockTTL(svcCtx.TTL).Seconds()))
	if err != nil {
		log.Printf("[%s] [WARN] sync lock: %v", location, err)
		return true
	}
	return ok
}
