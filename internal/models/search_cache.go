// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cometstream/comet/internal/dbinterface"
)

// SearchCacheStore persists ranked search results keyed by the request
// parameters that produced them.
type SearchCacheStore struct {
	db  dbinterface.Querier
	ttl time.Duration
}

func NewSearchCacheStore(db dbinterface.Querier, ttl time.Duration) *SearchCacheStore {
	return &SearchCacheStore{db: db, ttl: ttl}
}

// SearchCacheKey derives the cache key from everything that can change the
// result set: the debrid service, the looked-up title, the episode coordinates
// and the set of indexers searched. Indexers are sorted so the key does not
// depend on the order a user listed them in.
func SearchCacheKey(debridService, name string, season, episode int, indexers []string) string {
	sorted := append([]string(nil), indexers...)
	sort.Strings(sorted)

	payload, _ := json.Marshal(struct {
		DebridService string   `json:"debridService"`
		Name          string   `json:"name"`
		Season        int      `json:"season"`
		Episode       int      `json:"episode"`
		Indexers      []string `json:"indexers"`
	}{debridService, name, season, episode, sorted})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached results blob for the key, or ok=false when the key is
// absent or its entry has outlived the TTL. Expired rows are deleted on read.
func (s *SearchCacheStore) Get(ctx context.Context, cacheKey string) ([]byte, bool, error) {
	if strings.TrimSpace(cacheKey) == "" {
		return nil, false, fmt.Errorf("cache key cannot be empty")
	}

	var (
		results   []byte
		createdAt time.Time
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT results, created_at FROM search_cache WHERE cache_key = ?`,
		cacheKey,
	).Scan(&results, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fetch search cache: %w", err)
	}

	if time.Now().UTC().After(createdAt.Add(s.ttl)) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM search_cache WHERE cache_key = ?`, cacheKey)
		return nil, false, nil
	}

	return results, true, nil
}

// Put stores a results blob under the key. When two requests race on the same
// key the first writer wins and later writes are ignored.
func (s *SearchCacheStore) Put(ctx context.Context, cacheKey string, results []byte) error {
	if strings.TrimSpace(cacheKey) == "" {
		return fmt.Errorf("cache key cannot be empty")
	}
	if len(results) == 0 {
		return fmt.Errorf("results cannot be empty")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO search_cache (cache_key, results, created_at) VALUES (?, ?, ?)`,
		cacheKey,
		results,
		time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("store search cache entry: %w", err)
	}

	return nil
}

// CleanupExpired removes all rows older than the TTL.
func (s *SearchCacheStore) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.ttl)
	res, err := s.db.ExecContext(ctx, `DELETE FROM search_cache WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup search cache: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup search cache rows affected: %w", err)
	}
	return deleted, nil
}
