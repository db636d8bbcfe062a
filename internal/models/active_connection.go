// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cometstream/comet/internal/dbinterface"
)

// ActiveConnection is one in-flight proxied stream.
type ActiveConnection struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ActiveConnectionStore tracks proxied streams so per-IP limits can be
// enforced and the dashboard can list what's playing.
type ActiveConnectionStore struct {
	db dbinterface.Querier
}

func NewActiveConnectionStore(db dbinterface.Querier) *ActiveConnectionStore {
	return &ActiveConnectionStore{db: db}
}

// Insert registers a new connection and returns its generated id. The caller
// must pair every successful Insert with a Delete on stream teardown.
func (s *ActiveConnectionStore) Insert(ctx context.Context, ip, content string) (string, error) {
	if strings.TrimSpace(ip) == "" {
		return "", fmt.Errorf("ip cannot be empty")
	}

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO active_connections (id, ip, content, created_at) VALUES (?, ?, ?, ?)`,
		id, ip, content, time.Now().UTC(),
	); err != nil {
		return "", fmt.Errorf("insert active connection: %w", err)
	}

	return id, nil
}

// Delete removes a connection row. Missing rows are not an error so teardown
// paths can call it unconditionally.
func (s *ActiveConnectionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM active_connections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete active connection: %w", err)
	}
	return nil
}

// CountForIP returns how many streams the given client IP currently holds.
func (s *ActiveConnectionStore) CountForIP(ctx context.Context, ip string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM active_connections WHERE ip = ?`, ip,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active connections: %w", err)
	}
	return count, nil
}

// List returns all active connections, newest first.
func (s *ActiveConnectionStore) List(ctx context.Context) ([]ActiveConnection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ip, content, created_at FROM active_connections ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list active connections: %w", err)
	}
	defer rows.Close()

	var conns []ActiveConnection
	for rows.Next() {
		var conn ActiveConnection
		if err := rows.Scan(&conn.ID, &conn.IP, &conn.Content, &conn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan active connection: %w", err)
		}
		conns = append(conns, conn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active connections: %w", err)
	}

	return conns, nil
}

// Flush clears all connection rows. Used at startup so rows orphaned by an
// unclean shutdown don't count against clients forever.
func (s *ActiveConnectionStore) Flush(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM active_connections`); err != nil {
		return fmt.Errorf("flush active connections: %w", err)
	}
	return nil
}
