package ledgerpersist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachekeys "folio-api/internal/cache"
)

type fakeSnapshotCache struct {
	store map[string]string
}

func newFakeSnapshotCache() *fakeSnapshotCache {
	return &fakeSnapshotCache{store: make(map[string]string)}
}

func (f *fakeSnapshotCache) GetCtx(_ context.Context, key string) (string, error) {
	raw, ok := f.store[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return raw, nil
}

func (f *fakeSnapshotCache) SetexCtx(_ context.Context, key, value string, _ int) error {
	f.store[key] = value
	return nil
}

func TestLatestBalancesServesFromCache(t *testing.T) {
	cache := newFakeSnapshotCache()
	service := (&Service{clock: time.Now}).WithSnapshotCache(cache, cachekeys.TTLSet{Medium: time.Minute})

	records := []BalanceRecord{
		{Location: "coinbasepro", Asset: "BTC", Amount: "1.5", USDValue: "75000", SnapshotTs: 1700000000},
		{Location: "coinbasepro", Asset: "ETH", Amount: "10", USDValue: "30000", SnapshotTs: 1700000000},
	}
	service.cacheSnapshot(context.Background(), "coinbasepro", records)

	// No SQL connection is wired, so a result proves the hit never reached
	// the database.
	got, err := service.LatestBalances(context.Background(), "coinbasepro")
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestWithSnapshotCacheNilSafe(t *testing.T) {
	var nilService *Service
	assert.Nil(t, nilService.WithSnapshotCache(newFakeSnapshotCache(), cachekeys.TTLSet{}))

	service := &Service{clock: time.Now}
	assert.Same(t, service, service.WithSnapshotCache(nil, cachekeys.TTLSet{}))
	assert.Nil(t, service.cache)
}
