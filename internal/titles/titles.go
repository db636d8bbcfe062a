// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package titles holds small pure helpers for working with release and file
// titles: diacritic folding for search queries, video file detection and
// human-readable sizes.
package titles

import (
	"fmt"
	"strings"
)

// Indexers and metadata providers disagree on accented characters, so search
// terms and parsed names are folded to plain ASCII before comparison. The
// mapping is a fixed table rather than full Unicode decomposition: it only
// covers the characters that actually show up in release names, and ligatures
// expand to their two-letter forms.
var diacriticReplacer = strings.NewReplacer(
	"ā", "a", "ă", "a", "ą", "a", "ǎ", "a", "ǻ", "a",
	"ć", "c", "č", "c", "ç", "c", "ĉ", "c", "ċ", "c",
	"ď", "d", "đ", "d",
	"è", "e", "é", "e", "ê", "e", "ë", "e", "ē", "e", "ĕ", "e", "ę", "e", "ě", "e", "ə", "e",
	"ƒ", "f",
	"ĝ", "g", "ğ", "g", "ġ", "g", "ģ", "g", "ǧ", "g",
	"ĥ", "h",
	"î", "i", "ï", "i", "ì", "i", "í", "i", "ī", "i", "ĩ", "i", "ĭ", "i", "ı", "i", "ǐ", "i",
	"ĵ", "j",
	"ķ", "k",
	"ĺ", "l", "ļ", "l", "ł", "l",
	"ń", "n", "ň", "n", "ñ", "n", "ņ", "n", "ŉ", "n", "ǹ", "n",
	"ó", "o", "ô", "o", "õ", "o", "ö", "o", "ø", "o", "ō", "o", "ő", "o", "ǒ", "o", "ǿ", "o",
	"œ", "oe",
	"ŕ", "r", "ř", "r", "ŗ", "r",
	"š", "s", "ş", "s", "ś", "s", "ș", "s",
	"ß", "ss",
	"ť", "t", "ţ", "t",
	"ū", "u", "ŭ", "u", "ũ", "u", "û", "u", "ü", "u", "ù", "u", "ú", "u", "ų", "u", "ű", "u", "ǔ", "u", "ǚ", "u", "ǜ", "u",
	"ŵ", "w",
	"ý", "y", "ÿ", "y", "ŷ", "y",
	"ž", "z", "ż", "z", "ź", "z",
	"æ", "ae", "ǽ", "ae",
)

// Normalize folds accented characters to their ASCII equivalents. It is pure
// and idempotent; characters outside the table pass through untouched.
func Normalize(title string) string {
	return diacriticReplacer.Replace(title)
}

var videoExtensions = map[string]struct{}{
	".mkv": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".flv": {}, ".wmv": {},
	".webm": {}, ".mpg": {}, ".mpeg": {}, ".m4v": {}, ".3gp": {}, ".3g2": {},
	".ogv": {}, ".ogg": {}, ".drc": {}, ".gif": {}, ".gifv": {}, ".mng": {},
	".qt": {}, ".yuv": {}, ".rm": {}, ".rmvb": {}, ".asf": {}, ".amv": {},
	".m4p": {}, ".mp2": {}, ".mpe": {}, ".mpv": {}, ".m2v": {}, ".svi": {},
	".mxf": {}, ".roq": {}, ".nsv": {}, ".f4v": {}, ".f4p": {}, ".f4a": {},
	".f4b": {},
}

// IsVideo reports whether the file name carries a known video extension.
func IsVideo(name string) bool {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return false
	}
	_, ok := videoExtensions[strings.ToLower(name[idx:])]
	return ok
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// BytesToSize renders a byte count the way users expect to read it in a
// stream description, e.g. "1.42 GB".
func BytesToSize(n int64) string {
	if n == 0 {
		return "0 Byte"
	}

	value := float64(n)
	i := 0
	for value >= 1024 && i < len(sizeUnits)-1 {
		value /= 1024
		i++
	}

	return fmt.Sprintf("%s %s", trimZeros(value), sizeUnits[i])
}

func trimZeros(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	return s
}
