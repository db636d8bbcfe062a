// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIMDb(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tt0133093.json", r.URL.Path)
		w.Write([]byte(`{"d":[{"id":"tt0133093","l":"The Matrix","y":1999}]}`))
	}))
	defer srv.Close()

	c := NewClientWithEndpoints(srv.URL, srv.URL)
	meta, err := c.GetIMDb(context.Background(), "tt0133093")

	require.NoError(t, err)
	assert.Equal(t, "The Matrix", meta.Name)
	assert.Equal(t, 1999, meta.Year)
}

func TestGetIMDbSkipsEditorialEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"d":[
			{"id":"/imdbpicks/summer-watch-guide","l":"Summer Watch Guide"},
			{"id":"tt0133093","l":"The Matrix","y":1999}
		]}`))
	}))
	defer srv.Close()

	c := NewClientWithEndpoints(srv.URL, srv.URL)
	meta, err := c.GetIMDb(context.Background(), "tt0133093")

	require.NoError(t, err)
	assert.Equal(t, "The Matrix", meta.Name)
}

func TestGetIMDbNormalizesTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"d":[{"id":"tt0211915","l":"Amélie","y":2001}]}`))
	}))
	defer srv.Close()

	c := NewClientWithEndpoints(srv.URL, srv.URL)
	meta, err := c.GetIMDb(context.Background(), "tt0211915")

	require.NoError(t, err)
	assert.Equal(t, "Amelie", meta.Name)
}

func TestGetIMDbNoTitleEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"d":[{"id":"/emmys","l":"Emmys"}]}`))
	}))
	defer srv.Close()

	c := NewClientWithEndpoints(srv.URL, srv.URL)
	_, err := c.GetIMDb(context.Background(), "tt0000000")
	assert.Error(t, err)
}

func TestGetKitsu(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/44042", r.URL.Path)
		w.Write([]byte(`{"data":{"attributes":{"canonicalTitle":"Chainsaw Man"}}}`))
	}))
	defer srv.Close()

	c := NewClientWithEndpoints(srv.URL, srv.URL)
	meta, err := c.GetKitsu(context.Background(), "44042")

	require.NoError(t, err)
	assert.Equal(t, "Chainsaw Man", meta.Name)
	assert.Zero(t, meta.Year)
}

func TestGetKitsuMissingTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{}}}`))
	}))
	defer srv.Close()

	c := NewClientWithEndpoints(srv.URL, srv.URL)
	_, err := c.GetKitsu(context.Background(), "44042")
	assert.Error(t, err)
}

func TestGetIMDbRetriesTransientFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"d":[{"id":"tt0133093","l":"The Matrix","y":1999}]}`))
	}))
	defer srv.Close()

	c := NewClientWithEndpoints(srv.URL, srv.URL)
	meta, err := c.GetIMDb(context.Background(), "tt0133093")

	require.NoError(t, err)
	assert.Equal(t, "The Matrix", meta.Name)
	assert.Equal(t, 3, calls)
}
