// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import "strings"

// Rule assigns Category when any of Terms occurs in a record's title or
// keywords. Terms are matched as lowercase substrings.
type Rule struct {
	Category string
	Terms    []string
}

// RuleTable is an ordered, versioned set of categorization rules. The first
// matching rule wins; Default applies when none match.
type RuleTable struct {
	Version int
	Rules   []Rule
	Default string
}

// DefaultRules is the rule table used by every reader and writer. Bump
// Version whenever a rule changes so archived output can be traced to it.
var DefaultRules = RuleTable{
	Version: 2,
	Rules: []Rule{
		{Category: "Biohybrid Systems", Terms: []string{"biohybrid"}},
		{Category: "Neuromorphic Engineering", Terms: []string{"neuromorphic"}},
		{Category: "Soft Robotics", Terms: []string{"soft robot"}},
		{Category: "EMG Decoding", Terms: []string{"emg", "electromyograph"}},
		{Category: "Intracortical Decoding", Terms: []string{"intracortical"}},
		{Category: "Nerve Stimulation", Terms: []string{"stimulation"}},
	},
	Default: "General Biorobotics",
}

// Categorize derives a category from title and keywords using DefaultRules.
func Categorize(title, keywords string) string {
	return DefaultRules.Categorize(title, keywords)
}

// Categorize derives a category from title and keywords.
func (t RuleTable) Categorize(title, keywords string) string {
	text := strings.ToLower(title + " " + keywords)
	for _, r := range t.Rules {
		for _, term := range r.Terms {
			if term != "" && strings.Contains(text, strings.ToLower(term)) {
				return r.Category
			}
		}
	}
	return t.Default
}
