package main

import (
	"strings"
)

// fuzzyMatch performs fuzzy matching and returns match status and positions.
// It matches characters from search in order within text (case-insensitive).
// Returns true if all characters in search were found, and the positions of those characters.
func fuzzyMatch(search, text string) (bool, []int) {
	search = strings.ToLower(search)
	text = strings.ToLower(text)

	var positions []int
	searchIdx := 0

	for i, char := range text {
		if searchIdx < len(search) && char == rune(search[searchIdx]) {
			positions = append(positions, i)
			searchIdx++
		}
	}

	return searchIdx == len(search), positions
}

func isPrefixMatch(search, text string) bool {
	return strings.HasPrefix(strings.ToLower(text), strings.ToLower(search))
}

// rankMatches filters items by search: prefix matches first, then the other
// fuzzy matches, each group in the original order. Items whose letters all
// appear in order within search (a name typed with extra characters) come
// last. At most limit items are returned when limit > 0.
func rankMatches(search string, items []string, limit int) []string {
	var prefix, fuzzy, contained []string
	for _, item := range items {
		switch {
		case isPrefixMatch(search, item):
			prefix = append(prefix, item)
		case matches(search, item):
			fuzzy = append(fuzzy, item)
		case search != "" && matches(item, search):
			contained = append(contained, item)
		}
	}

	ranked := append(append(prefix, fuzzy...), contained...)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func matches(search, text string) bool {
	ok, _ := fuzzyMatch(search, text)
	return ok
}
