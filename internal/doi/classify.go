// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package doi

import (
	"regexp"
	"strings"
)

// preprintPrefixes are DOI registrants and labels of preprint servers whose
// records are not expected in the registry: arXiv (10.48550) and
// bioRxiv/medRxiv (10.1101).
var preprintPrefixes = []string{
	"10.48550/",
	"10.1101/",
	"arxiv:",
	"arxiv.",
}

// arxivPattern matches bare arXiv IDs: "2301.07041", "2301.07041v2".
var arxivPattern = regexp.MustCompile(`^\d{4}\.\d{4,5}(?:v\d+)?$`)

// doiPattern matches registry DOIs: "10.1145/1234567.1234568".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// IsPreprint reports whether id belongs to a preprint server and should be
// accepted without a registry lookup.
func IsPreprint(id string) bool {
	lower := strings.ToLower(strings.TrimSpace(id))
	if lower == "" {
		return false
	}
	for _, p := range preprintPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return arxivPattern.MatchString(lower)
}

// LooksLikeDOI reports whether id has the shape of a registry DOI.
func LooksLikeDOI(id string) bool {
	return doiPattern.MatchString(strings.TrimSpace(id))
}
