// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package stremio

import (
	"strings"

	"github.com/cometstream/comet/internal/ranker"
	"github.com/cometstream/comet/internal/titles"
	"github.com/cometstream/comet/internal/userconfig"
)

var languageEmojis = map[string]string{
	"multi": "🌎",
	"en":    "🇬🇧",
	"ja":    "🇯🇵",
	"zh":    "🇨🇳",
	"ru":    "🇷🇺",
	"ar":    "🇸🇦",
	"pt":    "🇵🇹",
	"es":    "🇪🇸",
	"fr":    "🇫🇷",
	"de":    "🇩🇪",
	"it":    "🇮🇹",
	"ko":    "🇰🇷",
	"hi":    "🇮🇳",
	"bn":    "🇧🇩",
	"pa":    "🇵🇰",
	"mr":    "🇮🇳",
	"gu":    "🇮🇳",
	"ta":    "🇮🇳",
	"te":    "🇮🇳",
	"kn":    "🇮🇳",
	"ml":    "🇮🇳",
	"th":    "🇹🇭",
	"vi":    "🇻🇳",
	"id":    "🇮🇩",
	"tr":    "🇹🇷",
	"he":    "🇮🇱",
	"fa":    "🇮🇷",
	"uk":    "🇺🇦",
	"el":    "🇬🇷",
	"lt":    "🇱🇹",
	"lv":    "🇱🇻",
	"et":    "🇪🇪",
	"pl":    "🇵🇱",
	"cs":    "🇨🇿",
	"sk":    "🇸🇰",
	"hu":    "🇭🇺",
	"ro":    "🇷🇴",
	"bg":    "🇧🇬",
	"sr":    "🇷🇸",
	"hr":    "🇭🇷",
	"sl":    "🇸🇮",
	"nl":    "🇳🇱",
	"da":    "🇩🇰",
	"fi":    "🇫🇮",
	"sv":    "🇸🇪",
	"no":    "🇳🇴",
	"ms":    "🇲🇾",
	"la":    "💃🏻",
}

// LanguageEmoji maps a language code to its flag, falling back to the code
// itself for anything unmapped.
func LanguageEmoji(language string) string {
	if emoji, ok := languageEmojis[strings.ToLower(language)]; ok {
		return emoji
	}
	return language
}

// FormatTitle renders the multi-line description shown under a stream entry,
// honoring the sections the user enabled in their result format.
func FormatTitle(f ranker.RankedFile, cfg *userconfig.UserConfig) string {
	var b strings.Builder

	if cfg.WantsFormat("Title") {
		b.WriteString(f.RawTitle)
		b.WriteString("\n")
	}

	if cfg.WantsFormat("Metadata") {
		if meta := formatMetadata(f); meta != "" {
			b.WriteString("💿 ")
			b.WriteString(meta)
			b.WriteString("\n")
		}
	}

	if cfg.WantsFormat("Size") {
		b.WriteString("💾 ")
		b.WriteString(titles.BytesToSize(f.Size))
		b.WriteString(" ")
	}

	if cfg.WantsFormat("Tracker") {
		tracker := f.Tracker
		if tracker == "" {
			tracker = "?"
		}
		b.WriteString("🔎 ")
		b.WriteString(tracker)
	}

	if cfg.WantsFormat("Languages") {
		languages := f.Languages
		if f.Dubbed {
			languages = append([]string{"multi"}, languages...)
		}
		if len(languages) > 0 {
			emojis := make([]string, 0, len(languages))
			for _, lang := range languages {
				emojis = append(emojis, LanguageEmoji(lang))
			}
			b.WriteString("\n")
			b.WriteString(strings.Join(emojis, "/"))
		}
	}

	if b.Len() == 0 {
		// Without this Stremio renders "SD" for the entry, which reads as
		// a quality claim rather than a configuration problem.
		return "Empty result format configuration"
	}

	return b.String()
}

func formatMetadata(f ranker.RankedFile) string {
	var extras []string
	if f.Quality != "" {
		extras = append(extras, f.Quality)
	}
	extras = append(extras, f.HDR...)
	if f.Codec != "" {
		extras = append(extras, f.Codec)
	}
	extras = append(extras, f.Audio...)
	if f.Channels != "" {
		extras = append(extras, f.Channels)
	}
	if f.BitDepth != "" {
		extras = append(extras, f.BitDepth)
	}
	if f.Network != "" {
		extras = append(extras, f.Network)
	}
	if f.Group != "" {
		extras = append(extras, f.Group)
	}
	return strings.Join(extras, "|")
}
