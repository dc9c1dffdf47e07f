// Package recency maintains the bounded recent-topics list and the
// last-crosspost cooldown record. Both are weaker, auxiliary signals distinct
// from the hard dedup gate.
package recency

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/crier/internal/article"
	"horse.fit/crier/internal/cache"
	"horse.fit/crier/internal/dedup"
	"horse.fit/crier/internal/globaltime"
	"horse.fit/crier/internal/vocab"
)

const (
	// RecentTopicsKey holds the bounded newest-first topic list.
	RecentTopicsKey = "recent_topics"
	// CrosspostKey holds the single-slot last-crossposted record.
	CrosspostKey = "crosspost:last"

	DefaultTTL       = 24 * time.Hour
	DefaultMaxTopics = 10

	topicNameWeight    = 0.5
	topicKeywordWeight = 0.5
	topicEntityBonus   = 0.3
)

type recentTopic struct {
	Name      string   `json:"name"`
	Timestamp int64    `json:"timestamp"`
	Keywords  []string `json:"keywords,omitempty"`
}

type crosspostRecord struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// RecentTopics is the aggregated view of the stored topic list.
type RecentTopics struct {
	Topics   []string
	Keywords []string
}

// Tracker is cache-backed; all failures degrade to empty results or logged
// no-ops, matching the engine-wide fail-open read policy.
type Tracker struct {
	cache     cache.Cache
	logger    zerolog.Logger
	ttl       time.Duration
	maxTopics int
}

// Options tune the tracker; zero values fall back to defaults.
type Options struct {
	TTL       time.Duration
	MaxTopics int
}

func NewTracker(c cache.Cache, logger zerolog.Logger, opts Options) *Tracker {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxTopics <= 0 {
		opts.MaxTopics = DefaultMaxTopics
	}
	return &Tracker{
		cache:     c,
		logger:    logger,
		ttl:       opts.TTL,
		maxTopics: opts.MaxTopics,
	}
}

// RecordTopic pushes the topic to the front of the bounded list, trims the
// overflow, and refreshes the shared TTL.
func (t *Tracker) RecordTopic(ctx context.Context, topic string) {
	name := strings.TrimSpace(strings.ToLower(topic))
	if name == "" {
		return
	}

	entry := recentTopic{
		Name:      name,
		Timestamp: globaltime.UTC().UnixMilli(),
		Keywords:  vocab.KeyTerms(topic),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		t.logger.Warn().Err(err).Str("topic", name).Msg("marshal recent topic failed")
		return
	}

	if err := t.cache.ListPush(ctx, RecentTopicsKey, string(raw)); err != nil {
		t.logger.Warn().Err(err).Str("topic", name).Msg("push recent topic failed")
		return
	}
	if err := t.cache.ListTrim(ctx, RecentTopicsKey, 0, int64(t.maxTopics-1)); err != nil {
		t.logger.Warn().Err(err).Msg("trim recent topics failed")
	}
	if err := t.cache.Expire(ctx, RecentTopicsKey, t.ttl); err != nil {
		t.logger.Warn().Err(err).Msg("refresh recent topics ttl failed")
	}
}

// RecentlyPostedTopics returns the stored topic names plus every keyword
// appearing in any stored entry, deduplicated.
func (t *Tracker) RecentlyPostedTopics(ctx context.Context) RecentTopics {
	entries, err := t.cache.ListRange(ctx, RecentTopicsKey, 0, -1)
	if err != nil {
		t.logger.Warn().Err(err).Msg("reading recent topics failed; treating as empty")
		return RecentTopics{}
	}

	var result RecentTopics
	seenKeywords := make(map[string]struct{})
	for _, raw := range entries {
		var entry recentTopic
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			t.logger.Debug().Err(err).Msg("skipping malformed recent topic entry")
			continue
		}
		if entry.Name == "" {
			continue
		}
		result.Topics = append(result.Topics, entry.Name)
		for _, keyword := range entry.Keywords {
			if _, dup := seenKeywords[keyword]; dup {
				continue
			}
			seenKeywords[keyword] = struct{}{}
			result.Keywords = append(result.Keywords, keyword)
		}
	}
	return result
}

// TopicSimilarity scores how close the article sits to recently posted
// topics: direct name match up to 0.5, keyword-overlap fraction up to 0.5,
// entity-name overlap against the same keyword pool up to a further 0.3,
// clamped to 1. Used to deprioritize, never to hard-suppress.
func (t *Tracker) TopicSimilarity(ctx context.Context, a article.Article) float64 {
	recent := t.RecentlyPostedTopics(ctx)
	if len(recent.Topics) == 0 && len(recent.Keywords) == 0 {
		return 0
	}

	score := 0.0

	if topic := strings.TrimSpace(strings.ToLower(a.Topic)); topic != "" {
		for _, name := range recent.Topics {
			if name == topic {
				score += topicNameWeight
				break
			}
		}
	}

	keywordPool := make(map[string]struct{}, len(recent.Keywords))
	for _, keyword := range recent.Keywords {
		keywordPool[keyword] = struct{}{}
	}

	keywords := a.Keywords
	if len(keywords) == 0 {
		keywords = vocab.KeyTerms(a.Title)
	}
	if len(keywords) > 0 && len(keywordPool) > 0 {
		matched := 0
		for _, keyword := range keywords {
			if _, ok := keywordPool[strings.ToLower(strings.TrimSpace(keyword))]; ok {
				matched++
			}
		}
		score += topicKeywordWeight * float64(matched) / float64(len(keywords))
	}

	entities := vocab.Entities(a.CombinedText())
	if len(entities) > 0 && len(keywordPool) > 0 {
		matched := 0
		for _, tag := range entities {
			name := tag
			if idx := strings.IndexByte(tag, ':'); idx >= 0 {
				name = tag[idx+1:]
			}
			if _, ok := keywordPool[name]; ok {
				matched++
			}
		}
		score += topicEntityBonus * float64(matched) / float64(len(entities))
	}

	if score > 1 {
		return 1
	}
	return score
}

// MarkCrossposted records the text just cross-posted. Single slot: each call
// overwrites the previous record and restarts its TTL.
func (t *Tracker) MarkCrossposted(ctx context.Context, content string) {
	record := crosspostRecord{
		Content:   content,
		Timestamp: globaltime.UTC().UnixMilli(),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		t.logger.Warn().Err(err).Msg("marshal crosspost record failed")
		return
	}
	if err := t.cache.Set(ctx, CrosspostKey, string(raw), t.ttl); err != nil {
		t.logger.Warn().Err(err).Msg("store crosspost record failed")
	}
}

// HasBeenCrossposted reports whether the candidate text is a near-repeat of
// the last cross-posted text within the cooldown window. Deliberately weaker
// than the full dedup scan: one slot, recent-bracket threshold.
func (t *Tracker) HasBeenCrossposted(ctx context.Context, content string) bool {
	raw, found, err := t.cache.Get(ctx, CrosspostKey)
	if err != nil {
		t.logger.Warn().Err(err).Msg("reading crosspost record failed; treating as not crossposted")
		return false
	}
	if !found {
		return false
	}

	var record crosspostRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.logger.Debug().Err(err).Msg("malformed crosspost record; treating as not crossposted")
		return false
	}

	age := globaltime.UTC().Sub(time.UnixMilli(record.Timestamp).UTC())
	if age > t.ttl {
		return false
	}
	return dedup.TextSimilarity(content, record.Content) > dedup.SimilarityThreshold(0)
}
