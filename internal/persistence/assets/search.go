package assetpersist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/zeromicro/go-zero/core/logx"

	cachekeys "folio-api/internal/cache"
	"folio-api/pkg/asset"
)

// maxDistance is the score given to a candidate with no comparable field.
// Any real match scores below it.
const maxDistance = 100

// SearchQuery describes one asset search.
type SearchQuery struct {
	// Keyword is matched against names and symbols, case insensitively.
	Keyword string
	// EvmChain restricts results to assets on the given chain when set.
	EvmChain string
	// SearchNfts includes the NFT table in the search.
	SearchNfts bool
	// Limit caps the number of returned results. Zero means no cap.
	Limit int
}

type searchCandidate struct {
	asset    asset.Asset
	distance int
}

// Search returns assets ranked by edit distance to the keyword, closest
// first. Candidate rows are prefiltered in SQL by substring match; ranking
// happens here. Zero results is a valid outcome.
func (s *Service) Search(ctx context.Context, query SearchQuery) ([]asset.Asset, error) {
	keyword := strings.ToLower(strings.TrimSpace(query.Keyword))
	if keyword == "" {
		return nil, nil
	}

	cacheKey := cachekeys.AssetSearchKey(keyword, query.EvmChain, query.SearchNfts)
	if s.cache != nil {
		var cached []asset.Asset
		if err := s.cache.GetCtx(ctx, cacheKey, &cached); err == nil && len(cached) > 0 {
			return capResults(cached, query.Limit), nil
		}
	}

	pattern := "%" + keyword + "%"

	sqlQuery := `
SELECT identifier, name, symbol, asset_type, evm_chain, evm_address, collection_name
FROM assets
WHERE (name ILIKE $1 OR symbol ILIKE $1)`
	bindings := []any{pattern}
	if query.EvmChain != "" {
		sqlQuery += ` AND evm_chain = $2`
		bindings = append(bindings, query.EvmChain)
	}

	var rows []assetRow
	if err := s.conn.QueryRowsCtx(ctx, &rows, sqlQuery, bindings...); err != nil {
		return nil, fmt.Errorf("assetpersist: search assets: %w", err)
	}

	candidates := make([]searchCandidate, 0, len(rows))
	for _, row := range rows {
		a := row.toAsset()
		candidates = append(candidates, searchCandidate{
			asset:    a,
			distance: scoreAsset(keyword, a),
		})
	}

	if query.SearchNfts {
		nfts, err := s.searchNfts(ctx, keyword, pattern)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, nfts...)
	}

	// Rank without the cap so one cache entry serves every requested limit.
	ranked := rankCandidates(candidates, s.treatEth2AsEth, 0)
	s.cacheSearch(ctx, cacheKey, ranked)
	return capResults(ranked, query.Limit), nil
}

func (s *Service) cacheSearch(ctx context.Context, key string, results []asset.Asset) {
	if s.cache == nil || len(results) == 0 {
		return
	}
	ttl := cachekeys.AssetSearchTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, results, ttl); err != nil {
		logx.WithContext(ctx).Errorf("assetpersist: cache search key=%s err=%v", key, err)
	}
}

func capResults(results []asset.Asset, limit int) []asset.Asset {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}

func (s *Service) searchNfts(ctx context.Context, keyword, pattern string) ([]searchCandidate, error) {
	const query = `
SELECT identifier, name, collection_name
FROM nfts
WHERE (name ILIKE $1 OR collection_name ILIKE $1)`

	type nftRow struct {
		Identifier     string `db:"identifier"`
		Name           string `db:"name"`
		CollectionName string `db:"collection_name"`
	}
	var rows []nftRow
	if err := s.conn.QueryRowsCtx(ctx, &rows, query, pattern); err != nil {
		return nil, fmt.Errorf("assetpersist: search nfts: %w", err)
	}

	candidates := make([]searchCandidate, 0, len(rows))
	for _, row := range rows {
		a := asset.Asset{
			Identifier:     row.Identifier,
			Name:           row.Name,
			Type:           asset.TypeNFT,
			CollectionName: row.CollectionName,
		}
		candidates = append(candidates, searchCandidate{
			asset:    a,
			distance: minDistance(keyword, row.Name, row.CollectionName),
		})
	}
	return candidates, nil
}

// scoreAsset is the edit distance between the keyword and the closer of the
// asset's name and symbol (collection name for NFTs).
func scoreAsset(keyword string, a asset.Asset) int {
	if a.IsNFT() {
		return minDistance(keyword, a.Name, a.CollectionName)
	}
	return minDistance(keyword, a.Name, a.Symbol)
}

func minDistance(keyword string, fields ...string) int {
	best := maxDistance
	for _, field := range fields {
		if field == "" {
			continue
		}
		if d := levenshtein.ComputeDistance(keyword, strings.ToLower(field)); d < best {
			best = d
		}
	}
	return best
}

// rankCandidates orders candidates by ascending distance, keeping the SQL
// row order among equal scores, and applies the ETH2 merge and the limit.
// When treatEth2AsEth is set, ETH and ETH2 collapse into a single ETH entry;
// the first of the pair encountered wins and keeps its score.
func rankCandidates(candidates []searchCandidate, treatEth2AsEth bool, limit int) []asset.Asset {
	if treatEth2AsEth {
		merged := make([]searchCandidate, 0, len(candidates))
		ethSeen := false
		for _, candidate := range candidates {
			id := candidate.asset.Identifier
			if id == asset.EthIdentifier || id == asset.Eth2Identifier {
				if ethSeen {
					continue
				}
				ethSeen = true
				candidate.asset = asset.Eth()
			}
			merged = append(merged, candidate)
		}
		candidates = merged
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	results := make([]asset.Asset, 0, len(candidates))
	for _, candidate := range candidates {
		results = append(results, candidate.asset)
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
