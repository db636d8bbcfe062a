// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/cometstream/comet/internal/domain"
	"github.com/cometstream/comet/internal/models"
)

type ConnectionsHandler struct {
	config            *domain.Config
	activeConnections *models.ActiveConnectionStore
}

func NewConnectionsHandler(config *domain.Config, activeConnections *models.ActiveConnectionStore) *ConnectionsHandler {
	return &ConnectionsHandler{
		config:            config,
		activeConnections: activeConnections,
	}
}

type connectionsResponse struct {
	TotalConnections  int                       `json:"totalConnections"`
	ActiveConnections []models.ActiveConnection `json:"activeConnections"`
}

// List returns the in-flight proxied streams. Guarded by the admin password
// since it exposes client IPs.
func (h *ConnectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	password := r.URL.Query().Get("password")
	if h.config.AdminDashboardPassword == "" ||
		subtle.ConstantTimeCompare([]byte(password), []byte(h.config.AdminDashboardPassword)) != 1 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid password"})
		return
	}

	conns, err := h.activeConnections.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list active connections")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list connections"})
		return
	}

	if conns == nil {
		conns = []models.ActiveConnection{}
	}

	writeJSON(w, http.StatusOK, connectionsResponse{
		TotalConnections:  len(conns),
		ActiveConnections: conns,
	})
}
