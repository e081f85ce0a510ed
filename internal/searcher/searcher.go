package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/fileindex-mcp/internal/store"
	"github.com/dshills/fileindex-mcp/pkg/types"
)

// Fusion weights. Metadata similarity dominates because file names and
// paths carry most of the intent in file-search queries.
const (
	WeightMetadata = 0.62
	WeightContent  = 0.38
)

const (
	// DefaultLimit applies when a request does not set one.
	DefaultLimit = 10

	// overfetchFactor widens each per-collection query so the merged set
	// still fills the limit when the two collections disagree.
	overfetchFactor = 2

	// missingDistance is recorded for a collection that returned no hit
	// for an identity: orthogonal, contributing score zero.
	missingDistance = 1.0

	// DefaultCacheTTL bounds how long a cached response stays valid.
	DefaultCacheTTL = 5 * time.Minute

	cacheSize = 1000
)

// SearchRequest contains parameters for one fused search.
type SearchRequest struct {
	Query    string
	Limit    int
	UseCache bool
	CacheTTL time.Duration
}

// SearchResponse contains the fused results and query metadata.
type SearchResponse struct {
	Results      []types.WeightedSearchResult
	TotalResults int
	Duration     time.Duration
	CacheHit     bool

	// Per-collection hit counts before fusion.
	MetadataHits int
	ContentHits  int
}

// cacheEntry is a cached response with its expiration time.
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Engine queries both collections concurrently and fuses the hits into a
// single weighted ranking.
type Engine struct {
	store store.Store
	cache *lru.Cache[[32]byte, *cacheEntry]
}

// NewEngine creates a fusion engine over the given store.
func NewEngine(st store.Store) *Engine {
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		// Only reachable with an invalid size constant.
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &Engine{store: st, cache: cache}
}

// Search runs a fused search. A store failure on either collection is
// returned as an error, never as a silently empty result.
func (e *Engine) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if req.Query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.CacheTTL <= 0 {
		req.CacheTTL = DefaultCacheTTL
	}

	key := cacheKey(req)
	if req.UseCache {
		if cached := e.checkCache(key); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	metaHits, contentHits, err := e.dualQuery(ctx, req.Query, req.Limit*overfetchFactor)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Results:      fuse(metaHits, contentHits, req.Limit),
		MetadataHits: len(metaHits),
		ContentHits:  len(contentHits),
	}
	response.TotalResults = len(response.Results)
	response.Duration = time.Since(startTime)

	if req.UseCache {
		e.cache.Add(key, &cacheEntry{
			response:  response,
			expiresAt: time.Now().Add(req.CacheTTL),
		})
	}
	return response, nil
}

// ClearCache drops every cached response. Call after bulk index changes.
func (e *Engine) ClearCache() {
	e.cache.Purge()
}

// queryResult carries one collection's hits out of its goroutine.
type queryResult struct {
	hits []store.Hit
	err  error
}

// dualQuery runs the two collection queries concurrently and waits for
// both. Either failure fails the search.
func (e *Engine) dualQuery(ctx context.Context, query string, k int) (meta, content []store.Hit, err error) {
	metaChan := make(chan queryResult, 1)
	contentChan := make(chan queryResult, 1)

	go e.runQuery(ctx, store.CollectionMetadata, query, k, metaChan)
	go e.runQuery(ctx, store.CollectionContent, query, k, contentChan)

	var metaRes, contentRes queryResult
	var metaDone, contentDone bool
	for !metaDone || !contentDone {
		select {
		case metaRes = <-metaChan:
			metaDone = true
		case contentRes = <-contentChan:
			contentDone = true
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	if metaRes.err != nil {
		return nil, nil, fmt.Errorf("metadata query: %w", metaRes.err)
	}
	if contentRes.err != nil {
		return nil, nil, fmt.Errorf("content query: %w", contentRes.err)
	}
	return metaRes.hits, contentRes.hits, nil
}

func (e *Engine) runQuery(ctx context.Context, collection, query string, k int, out chan<- queryResult) {
	var res queryResult
	res.hits, res.err = e.store.Query(ctx, collection, query, k)
	select {
	case out <- res:
	case <-ctx.Done():
	}
}

// fuse merges per-collection hits by identity into a weighted ranking.
// Distances d in [0, 2] normalize to similarity (2-d)/2; each result's
// total is the sum of its weighted per-collection similarities, with a
// missing collection contributing zero.
func fuse(metaHits, contentHits []store.Hit, limit int) []types.WeightedSearchResult {
	byIdentity := make(map[string]*types.WeightedSearchResult)
	var order []string // first-seen order keeps ties deterministic

	lookup := func(identity string) *types.WeightedSearchResult {
		if r, ok := byIdentity[identity]; ok {
			return r
		}
		r := &types.WeightedSearchResult{
			Identity:            identity,
			RawMetadataDistance: missingDistance,
			RawContentDistance:  missingDistance,
		}
		byIdentity[identity] = r
		order = append(order, identity)
		return r
	}

	for _, hit := range metaHits {
		r := lookup(store.IdentityFromKey(hit.Key))
		r.RawMetadataDistance = hit.Distance
		r.MetadataScore = WeightMetadata * normalize(hit.Distance)
		r.Metadata = types.MetadataFromAttributes(hit.Attributes)
	}
	for _, hit := range contentHits {
		r := lookup(store.IdentityFromKey(hit.Key))
		r.RawContentDistance = hit.Distance
		r.ContentScore = WeightContent * normalize(hit.Distance)
	}

	results := make([]types.WeightedSearchResult, 0, len(order))
	for _, identity := range order {
		r := byIdentity[identity]
		r.TotalScore = r.MetadataScore + r.ContentScore
		results = append(results, *r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalScore > results[j].TotalScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// normalize maps a cosine distance in [0, 2] to similarity in [0, 1].
func normalize(distance float64) float64 {
	return (2 - distance) / 2
}

// checkCache returns a copy of a live cached response, or nil.
func (e *Engine) checkCache(key [32]byte) *SearchResponse {
	entry, ok := e.cache.Get(key)
	if !ok {
		return nil
	}
	if time.Now().After(entry.expiresAt) {
		e.cache.Remove(key)
		return nil
	}
	copied := *entry.response
	return &copied
}

// cacheKey hashes the request parameters that affect the result set.
func cacheKey(req SearchRequest) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s|%d", req.Query, req.Limit)))
}
