// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package doi canonicalizes bibliographic identifiers and classifies the ones
// that must not be sent to the registry.
package doi

import (
	"regexp"
	"sort"
	"strings"
)

// prefixes are the resolver URL roots and labels stripped from raw
// identifiers. Matching is case-insensitive; only the longest match is
// removed per pass.
var prefixes = sortedByLength([]string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"dx.doi.org/",
	"doi: ",
	"doi:",
})

// refMarker matches a trailing bracketed reference number ("... [3]").
var refMarker = regexp.MustCompile(`\s*\[\d+\]$`)

// trailingParen matches a parenthetical clause separated from the identifier
// by whitespace. Parentheses inside DOIs ("10.1016/S0140-6736(20)30183-5")
// are not preceded by whitespace and stay intact.
var trailingParen = regexp.MustCompile(`\s+\([^()]*\)$`)

// placeholder matches a value that is entirely wrapped in brackets, such as
// "[not provided]" or "[DOI]".
var placeholder = regexp.MustCompile(`^\[.*\]$`)

// Normalize returns the bare identifier for raw, or "" when raw carries no
// usable identifier. It is deterministic and idempotent: the cleanup pass is
// repeated until the value stops changing, so Normalize(Normalize(x)) ==
// Normalize(x) for every input.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for {
		next := normalizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func normalizeOnce(s string) string {
	s = strings.TrimSpace(s)
	s = stripPrefix(s)
	s = refMarker.ReplaceAllString(s, "")
	s = trailingParen.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if placeholder.MatchString(s) {
		return ""
	}
	return s
}

// stripPrefix removes the longest matching known prefix, once.
func stripPrefix(s string) string {
	for _, p := range prefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

func sortedByLength(in []string) []string {
	out := append([]string(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
