// Package cluster groups a batch of already-unique articles into
// same-story equivalence clusters.
package cluster

import (
	"strings"

	"horse.fit/crier/internal/article"
	"horse.fit/crier/internal/dedup"
	"horse.fit/crier/internal/vocab"
)

// Strategy partitions a batch into clusters; each inner slice holds articles
// judged to describe the same underlying event. Implementations must preserve
// input order within and across clusters.
type Strategy interface {
	Cluster(articles []article.Article) [][]article.Article
}

const (
	defaultTitleThreshold     = 0.5
	defaultEntityOverlapAlone = 2
	defaultProjectOverlapAlone = 2
)

// FirstMatch assigns every article to the first existing cluster whose
// reference (first) article it matches, creating a new cluster otherwise.
// First-match-wins over insertion order is a simplicity/accuracy trade-off:
// early clusters take priority when an article could fit several.
type FirstMatch struct {
	TitleThreshold float64
}

func NewFirstMatch() *FirstMatch {
	return &FirstMatch{TitleThreshold: defaultTitleThreshold}
}

type features struct {
	article  article.Article
	topic    string
	entities map[string]struct{}
	projects map[string]struct{}
	events   map[string]struct{}
}

func (f *FirstMatch) Cluster(articles []article.Article) [][]article.Article {
	if len(articles) == 0 {
		return nil
	}

	clusters := make([][]article.Article, 0, len(articles))
	references := make([]features, 0, len(articles))

	for _, a := range articles {
		candidate := extractFeatures(a)

		assigned := false
		for i := range references {
			if f.sameStory(references[i], candidate) {
				clusters[i] = append(clusters[i], a)
				assigned = true
				break
			}
		}
		if assigned {
			continue
		}

		clusters = append(clusters, []article.Article{a})
		references = append(references, candidate)
	}

	return clusters
}

// sameStory joins the candidate to the reference on any of five signals:
// shared topic plus at least one shared entity, strong entity overlap on its
// own, high title similarity, a shared project paired with a shared event
// keyword, or strong project overlap on its own.
func (f *FirstMatch) sameStory(reference, candidate features) bool {
	entityOverlap := overlapCount(reference.entities, candidate.entities)

	if reference.topic != "" && reference.topic == candidate.topic && entityOverlap >= 1 {
		return true
	}
	if entityOverlap >= defaultEntityOverlapAlone {
		return true
	}

	threshold := f.TitleThreshold
	if threshold <= 0 {
		threshold = defaultTitleThreshold
	}
	if dedup.TitleSimilarity(reference.article.Title, candidate.article.Title) > threshold {
		return true
	}

	projectOverlap := overlapCount(reference.projects, candidate.projects)
	if projectOverlap > 0 && overlapCount(reference.events, candidate.events) >= 1 {
		return true
	}
	return projectOverlap >= defaultProjectOverlapAlone
}

func extractFeatures(a article.Article) features {
	text := a.CombinedText()
	return features{
		article:  a,
		topic:    strings.TrimSpace(strings.ToLower(a.Topic)),
		entities: toSet(vocab.Entities(text)),
		projects: toSet(vocab.Projects(text)),
		events:   toSet(vocab.Events(text)),
	}
}

func overlapCount(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	count := 0
	for v := range a {
		if _, ok := b[v]; ok {
			count++
		}
	}
	return count
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
