// Package vocab loads the static matching vocabularies (entities, project
// names, event keywords, stopwords) from embedded data files and exposes the
// pure extractors built on them. The data files are configuration: the
// matching logic never changes when a vocabulary grows.
package vocab

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"horse.fit/crier/internal/normalize"
)

//go:embed data/entities.json
var entitiesJSON []byte

//go:embed data/projects.json
var projectsJSON []byte

//go:embed data/events.json
var eventsJSON []byte

//go:embed data/stopwords.json
var stopwordsJSON []byte

// EntityCategories is the fixed category order for entity tags.
var EntityCategories = []string{"companies", "cryptocurrencies", "products", "regulators", "locations"}

var (
	loadOnce sync.Once
	loadErr  error

	entities  map[string][]string
	projects  []string
	events    []string
	stopwords map[string]struct{}
)

func load() error {
	loadOnce.Do(func() {
		if err := json.Unmarshal(entitiesJSON, &entities); err != nil {
			loadErr = fmt.Errorf("parse entities.json: %w", err)
			return
		}
		for _, category := range EntityCategories {
			if _, ok := entities[category]; !ok {
				loadErr = fmt.Errorf("entities.json missing category %q", category)
				return
			}
		}
		if err := json.Unmarshal(projectsJSON, &projects); err != nil {
			loadErr = fmt.Errorf("parse projects.json: %w", err)
			return
		}
		if err := json.Unmarshal(eventsJSON, &events); err != nil {
			loadErr = fmt.Errorf("parse events.json: %w", err)
			return
		}
		var words []string
		if err := json.Unmarshal(stopwordsJSON, &words); err != nil {
			loadErr = fmt.Errorf("parse stopwords.json: %w", err)
			return
		}
		stopwords = make(map[string]struct{}, len(words))
		for _, w := range words {
			stopwords[strings.TrimSpace(strings.ToLower(w))] = struct{}{}
		}
	})
	return loadErr
}

// Entities returns the sorted, deduplicated "category:term" tags whose term
// occurs in the text. Empty input yields an empty result, never an error.
func Entities(text string) []string {
	if load() != nil {
		return nil
	}
	normalized := normalize.Text(text)
	if normalized == "" {
		return nil
	}
	wordSet := fieldSet(normalized)

	var tags []string
	for _, category := range EntityCategories {
		for _, term := range entities[category] {
			if termMatches(normalized, wordSet, term) {
				tags = append(tags, category+":"+term)
			}
		}
	}
	return sortedUnique(tags)
}

// Projects returns the sorted, deduplicated project names found in the text.
func Projects(text string) []string {
	if load() != nil {
		return nil
	}
	return matchTerms(text, projects)
}

// Events returns the sorted, deduplicated event keywords found in the text.
func Events(text string) []string {
	if load() != nil {
		return nil
	}
	return matchTerms(text, events)
}

// IsStopword reports whether the (already lowercased) token is in the
// stopword set.
func IsStopword(token string) bool {
	if load() != nil {
		return false
	}
	_, ok := stopwords[token]
	return ok
}

// KeyTerms returns the stopword-filtered tokens of the text, duplicates
// removed, original order preserved.
func KeyTerms(text string) []string {
	tokens := normalize.Tokens(text)
	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if IsStopword(token) {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		terms = append(terms, token)
	}
	return terms
}

func matchTerms(text string, terms []string) []string {
	normalized := normalize.Text(text)
	if normalized == "" {
		return nil
	}
	wordSet := fieldSet(normalized)

	var found []string
	for _, term := range terms {
		if termMatches(normalized, wordSet, term) {
			found = append(found, term)
		}
	}
	return sortedUnique(found)
}

// termMatches distinguishes phrases from short tokens: phrases use substring
// containment, tokens of three runes or fewer require a whole-word hit so
// "eth" never matches "whether".
func termMatches(normalized string, wordSet map[string]struct{}, term string) bool {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return false
	}
	if strings.Contains(term, " ") {
		return strings.Contains(normalized, term)
	}
	if len(term) <= 3 {
		_, ok := wordSet[term]
		return ok
	}
	return strings.Contains(normalized, term)
}

func fieldSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func sortedUnique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	sort.Strings(values)
	out := values[:0]
	var prev string
	for i, v := range values {
		if i > 0 && v == prev {
			continue
		}
		out = append(out, v)
		prev = v
	}
	return out
}
