// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package ranker

import "strings"

// BalanceOptions are the user's selection constraints.
type BalanceOptions struct {
	MaxResults  int      // 0 means unlimited
	MaxSize     int64    // bytes, 0 means unlimited
	Resolutions []string // "All" disables the filter
	Languages   []string // "All" disables the filter
}

// Balance filters the sorted candidate list by the user's size, resolution
// and language constraints, then spreads the result budget across resolution
// buckets so one plentiful tier can't crowd out the others. Within a bucket
// the incoming (ranked) order is preserved.
//
// The budget splits evenly across buckets; the remainder goes to the leading
// buckets in resolution order. When a bucket can't fill its share, the
// shortfall is re-offered to the other buckets, best resolution first.
// Returns the selected hashes grouped by resolution.
func Balance(sorted []RankedFile, opts BalanceOptions) map[string][]string {
	wantResolutions := make(map[string]struct{})
	allResolutions := false
	for _, res := range opts.Resolutions {
		res = strings.ToLower(res)
		if res == "all" {
			allResolutions = true
		}
		wantResolutions[res] = struct{}{}
	}

	wantLanguages := make(map[string]struct{})
	allLanguages := false
	wantMulti := false
	for _, lang := range opts.Languages {
		lang = strings.ToLower(lang)
		switch lang {
		case "all":
			allLanguages = true
		case "multi":
			wantMulti = true
		}
		wantLanguages[lang] = struct{}{}
	}

	buckets := make(map[string][]string)
	for _, f := range sorted {
		if opts.MaxSize != 0 && f.Size > opts.MaxSize {
			continue
		}

		if !allLanguages && !matchesLanguage(f, wantLanguages, wantMulti) {
			continue
		}

		if !allResolutions {
			if _, ok := wantResolutions[f.Resolution]; !ok {
				continue
			}
		}

		buckets[f.Resolution] = append(buckets[f.Resolution], f.InfoHash)
	}

	if opts.MaxResults == 0 || len(buckets) == 0 {
		return buckets
	}

	// Bucket iteration follows the fixed resolution order so ties and
	// remainders land deterministically.
	var present []string
	for _, res := range resolutionOrder {
		if _, ok := buckets[res]; ok {
			present = append(present, res)
		}
	}

	perBucket := opts.MaxResults / len(present)
	extra := opts.MaxResults % len(present)

	balanced := make(map[string][]string, len(present))
	for _, res := range present {
		take := perBucket
		if extra > 0 {
			take++
			extra--
		}
		if take > len(buckets[res]) {
			take = len(buckets[res])
		}
		balanced[res] = buckets[res][:take]
	}

	// Redistribute any shortfall to buckets that still have candidates.
	selected := 0
	for _, hashes := range balanced {
		selected += len(hashes)
	}
	missing := opts.MaxResults - selected
	for _, res := range present {
		if missing <= 0 {
			break
		}
		current := len(balanced[res])
		available := buckets[res][current:]
		if len(available) > missing {
			available = available[:missing]
		}
		balanced[res] = append(balanced[res], available...)
		missing -= len(available)
	}

	return balanced
}

func matchesLanguage(f RankedFile, want map[string]struct{}, wantMulti bool) bool {
	for _, lang := range f.Languages {
		if _, ok := want[lang]; ok {
			return true
		}
	}
	if f.Dubbed && wantMulti {
		return true
	}
	return false
}

// Selected flattens a balanced bucket map into a hash set for membership
// checks while walking the sorted file list.
func Selected(balanced map[string][]string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, hashes := range balanced {
		for _, h := range hashes {
			out[h] = struct{}{}
		}
	}
	return out
}
