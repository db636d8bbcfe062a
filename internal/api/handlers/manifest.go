// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/cometstream/comet/internal/stremio"
)

type ManifestHandler struct{}

func NewManifestHandler() *ManifestHandler {
	return &ManifestHandler{}
}

// Get serves the addon manifest. The optional config blob in the path does
// not change the manifest; the route exists because Stremio clients request
// it under the configured addon URL.
func (h *ManifestHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stremio.GetManifest())
}
