// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cometstream/comet/internal/dbinterface"
)

// Debrid download links expire server-side; an hour keeps us safely inside
// the providers' validity windows.
const downloadLinkTTL = time.Hour

// DownloadLinkStore caches unrestricted debrid download links so repeated
// seeks and replays of the same file don't burn provider API calls.
type DownloadLinkStore struct {
	db dbinterface.Querier
}

func NewDownloadLinkStore(db dbinterface.Querier) *DownloadLinkStore {
	return &DownloadLinkStore{db: db}
}

// Get returns the cached link for (debridKey, infoHash, fileIndex), or
// ok=false when missing or expired. Expired rows are deleted on read.
func (s *DownloadLinkStore) Get(ctx context.Context, debridKey, infoHash, fileIndex string) (string, bool, error) {
	if strings.TrimSpace(infoHash) == "" {
		return "", false, fmt.Errorf("info hash cannot be empty")
	}

	var (
		link      string
		createdAt time.Time
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT link, created_at FROM download_links WHERE debrid_key = ? AND info_hash = ? AND file_index = ?`,
		debridKey, infoHash, fileIndex,
	).Scan(&link, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fetch download link: %w", err)
	}

	if time.Now().UTC().After(createdAt.Add(downloadLinkTTL)) {
		_, _ = s.db.ExecContext(ctx,
			`DELETE FROM download_links WHERE debrid_key = ? AND info_hash = ? AND file_index = ?`,
			debridKey, infoHash, fileIndex,
		)
		return "", false, nil
	}

	return link, true, nil
}

// Put caches a freshly generated link. First writer wins on races.
func (s *DownloadLinkStore) Put(ctx context.Context, debridKey, infoHash, fileIndex, link string) error {
	if strings.TrimSpace(infoHash) == "" {
		return fmt.Errorf("info hash cannot be empty")
	}
	if strings.TrimSpace(link) == "" {
		return fmt.Errorf("link cannot be empty")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO download_links (debrid_key, info_hash, file_index, link, created_at) VALUES (?, ?, ?, ?, ?)`,
		debridKey, infoHash, fileIndex, link, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("store download link: %w", err)
	}

	return nil
}

// CleanupExpired removes all links older than the TTL.
func (s *DownloadLinkStore) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-downloadLinkTTL)
	res, err := s.db.ExecContext(ctx, `DELETE FROM download_links WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup download links: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup download links rows affected: %w", err)
	}
	return deleted, nil
}
