// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package scraper collects torrent candidates for a media id from the
// configured sources and resolves their info hashes.
package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// SearchResult is one torrent candidate from any source. InfoHash is
// lowercase 40-hex once known; a result without a hash carries a Link that
// the hash resolver can follow.
type SearchResult struct {
	Title    string
	InfoHash string
	Tracker  string
	Size     int64
	Link     string
}

// Request describes one media lookup.
type Request struct {
	MediaType string // "movie" or "series"
	MediaID   string // full id as received, e.g. "tt1254207:1:5" or "kitsu:44042:2"
	Name      string // normalized title from metadata
	Year      int    // 0 when unknown (always for kitsu)
	Season    int
	Episode   int
	Kitsu     bool
	Indexers  []string // user-selected indexers for the indexer manager
}

// LogName renders the request the way it appears in log lines.
func (r Request) LogName() string {
	if r.MediaType == "series" {
		return fmt.Sprintf("%s S0%dE0%d", r.Name, r.Season, r.Episode)
	}
	return r.Name
}

// SearchTerms returns the queries sent to term-based sources: the bare title,
// plus an episode-qualified form for series.
func (r Request) SearchTerms() []string {
	terms := []string{r.Name}
	if r.MediaType == "series" {
		if r.Kitsu {
			terms = append(terms, fmt.Sprintf("%s %d", r.Name, r.Episode))
		} else {
			terms = append(terms, fmt.Sprintf("%s S0%dE0%d", r.Name, r.Season, r.Episode))
		}
	}
	return terms
}

// Scraper is one torrent source. term is empty for sources that search by
// media id rather than text query. Implementations own their timeouts and
// return an empty slice on failure after logging it; a request never fails
// because one source did.
type Scraper interface {
	Name() string
	Search(ctx context.Context, req Request, term string) ([]SearchResult, error)
}

// Aggregator fans a request out across all configured sources.
type Aggregator struct {
	perTerm []Scraper // searched once per derived term
	perID   []Scraper // searched once per request
}

func NewAggregator(perTerm, perID []Scraper) *Aggregator {
	return &Aggregator{perTerm: perTerm, perID: perID}
}

// Sources lists the configured source names for logging.
func (a *Aggregator) Sources() []string {
	var names []string
	for _, s := range a.perTerm {
		names = append(names, s.Name())
	}
	for _, s := range a.perID {
		names = append(names, s.Name())
	}
	return names
}

// Scrape runs every (source, term) pair concurrently and joins the results.
// A failing source contributes nothing; the others are unaffected.
func (a *Aggregator) Scrape(ctx context.Context, req Request) []SearchResult {
	type job struct {
		scraper Scraper
		term    string
	}

	var jobs []job
	for _, s := range a.perTerm {
		for _, term := range req.SearchTerms() {
			jobs = append(jobs, job{scraper: s, term: term})
		}
	}
	for _, s := range a.perID {
		jobs = append(jobs, job{scraper: s})
	}

	var (
		mu      sync.Mutex
		results []SearchResult
		wg      sync.WaitGroup
	)

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()

			found, err := j.scraper.Search(ctx, req, j.term)
			if err != nil {
				log.Warn().
					Err(err).
					Str("source", j.scraper.Name()).
					Str("query", j.term).
					Str("media", req.LogName()).
					Msg("Source search failed")
				return
			}

			mu.Lock()
			results = append(results, found...)
			mu.Unlock()
		}(j)
	}

	wg.Wait()

	return results
}

// Match partitions results into (all, matched) where matched passed the
// title/year filter. Callers prefer matched and fall back to all.
func Match(results []SearchResult, name string, year int) (all, matched []SearchResult) {
	for _, r := range results {
		all = append(all, r)
		if MatchesTitle(r.Title, name, year) {
			matched = append(matched, r)
		}
	}
	return all, matched
}
