package feed

import (
	"strings"

	"golang.org/x/text/cases"
)

// columnLayout holds the resolved index of each field in the responses sheet
type columnLayout struct {
	Timestamp int
	Name      int
	Spice     int
	Portion   int
}

type columnRule struct {
	synonyms []string
	fallback int
	assign   func(*columnLayout, int)
}

// The sheet is admin-editable, so headers are matched by substring rather than position.
// Rules are resolved in this order and a column claimed by an earlier rule is not reused,
// which keeps "Portion Type" from being read as a timestamp through "time".
var columnRules = []columnRule{
	{synonyms: []string{"name", "nickname"}, fallback: 1, assign: func(l *columnLayout, i int) { l.Name = i }},
	{synonyms: []string{"pepper", "spice"}, fallback: 2, assign: func(l *columnLayout, i int) { l.Spice = i }},
	{synonyms: []string{"portion", "size", "type"}, fallback: 3, assign: func(l *columnLayout, i int) { l.Portion = i }},
	{synonyms: []string{"timestamp", "time", "date"}, fallback: 0, assign: func(l *columnLayout, i int) { l.Timestamp = i }},
}

// locateColumns sniffs the header row. Fields with no matching header use fixed positions 0..3.
func locateColumns(header []string) columnLayout {
	folder := cases.Fold()
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = folder.String(strings.TrimSpace(h))
	}

	var layout columnLayout
	claimed := make(map[int]bool, len(columnRules))
	for _, rule := range columnRules {
		idx := findColumn(folded, rule.synonyms, claimed)
		if idx < 0 {
			idx = rule.fallback
		} else {
			claimed[idx] = true
		}
		rule.assign(&layout, idx)
	}
	return layout
}

func findColumn(folded []string, synonyms []string, claimed map[int]bool) int {
	for i, h := range folded {
		if claimed[i] || h == "" {
			continue
		}
		for _, s := range synonyms {
			if strings.Contains(h, s) {
				return i
			}
		}
	}
	return -1
}
