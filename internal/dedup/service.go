// Package dedup implements the multi-signal duplicate detection engine:
// fingerprinting, similarity scoring, time-decayed thresholds, and the
// cache-backed check/store orchestration.
package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/crier/internal/article"
	"horse.fit/crier/internal/cache"
	"horse.fit/crier/internal/globaltime"
	payloadschema "horse.fit/crier/schema"
)

const (
	contentKeyPrefix  = "content:"
	semanticKeyPrefix = "semantic:"
	sourceKeyPrefix   = "source:"
	intentKeyPrefix   = "intent:"

	// GlobalArticlesKey indexes every stored content fingerprint for the
	// cross-source, cross-time scan.
	GlobalArticlesKey = "global:articles"

	DefaultContentTTL = 24 * time.Hour
	DefaultIntentTTL  = 2 * time.Minute

	titleWeight   = 0.4
	entityWeight  = 0.3
	contentWeight = 0.3
)

// Reason explains why a candidate was ruled a duplicate.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonExact    Reason = "exact"
	ReasonSemantic Reason = "semantic"
	ReasonIntent   Reason = "intent"
	ReasonFuzzy    Reason = "fuzzy"
)

// Verdict is the outcome of one duplicate check. BestScore carries the
// highest combined similarity observed during the global scan, including for
// unique verdicts, purely as a diagnostic.
type Verdict struct {
	Duplicate          bool
	Reason             Reason
	MatchedFingerprint string
	BestScore          float64
}

// TopicRecorder receives the topic of every stored article. Satisfied by
// recency.Tracker; nil disables topic recording.
type TopicRecorder interface {
	RecordTopic(ctx context.Context, topic string)
}

// Options tune the service; zero values fall back to defaults.
type Options struct {
	ContentTTL time.Duration
	IntentTTL  time.Duration
	Topics     TopicRecorder
}

// Service orchestrates the exact, semantic, and fuzzy duplicate checks
// against the cache. Reads fail open (cache trouble never suppresses an
// article); writes fail closed but non-fatally.
type Service struct {
	cache      cache.Cache
	logger     zerolog.Logger
	contentTTL time.Duration
	intentTTL  time.Duration
	topics     TopicRecorder
}

func NewService(c cache.Cache, logger zerolog.Logger, opts Options) *Service {
	if opts.ContentTTL <= 0 {
		opts.ContentTTL = DefaultContentTTL
	}
	if opts.IntentTTL <= 0 {
		opts.IntentTTL = DefaultIntentTTL
	}
	return &Service{
		cache:      c,
		logger:     logger,
		contentTTL: opts.ContentTTL,
		intentTTL:  opts.IntentTTL,
		topics:     opts.Topics,
	}
}

// IsDuplicate runs the three-step check in order of increasing cost: exact
// content fingerprint, semantic fingerprint, then the all-pairs scan over the
// global index with an age-bracketed threshold. candidateText, when provided,
// is the generated post text; otherwise the article's own text is compared.
func (s *Service) IsDuplicate(ctx context.Context, a article.Article, candidateText string) Verdict {
	contentFP := ContentFingerprint(a)

	if hit, err := s.cache.Exists(ctx, contentKeyPrefix+contentFP); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", contentFP).Msg("exact check failed; treating as no match")
	} else if hit {
		return Verdict{Duplicate: true, Reason: ReasonExact, MatchedFingerprint: contentFP}
	}

	semanticFP := SemanticFingerprint(a)
	if hit, err := s.cache.Exists(ctx, semanticKeyPrefix+semanticFP); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", semanticFP).Msg("semantic check failed; treating as no match")
	} else if hit {
		return Verdict{Duplicate: true, Reason: ReasonSemantic, MatchedFingerprint: semanticFP}
	}

	if hit, err := s.cache.Exists(ctx, intentKeyPrefix+contentFP); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", contentFP).Msg("intent check failed; treating as no match")
	} else if hit {
		return Verdict{Duplicate: true, Reason: ReasonIntent, MatchedFingerprint: contentFP}
	}

	return s.scanGlobalIndex(ctx, a, candidateText)
}

func (s *Service) scanGlobalIndex(ctx context.Context, a article.Article, candidateText string) Verdict {
	fingerprints, err := s.cache.SetMembers(ctx, GlobalArticlesKey)
	if err != nil {
		s.logger.Warn().Err(err).Msg("global index unavailable; treating as no match")
		return Verdict{}
	}

	compareText := candidateText
	if compareText == "" {
		compareText = a.CombinedText()
	}

	now := globaltime.UTC()
	best := 0.0
	for _, fp := range fingerprints {
		raw, found, err := s.cache.Get(ctx, contentKeyPrefix+fp)
		if err != nil {
			s.logger.Warn().Err(err).Str("fingerprint", fp).Msg("skipping unreadable record during scan")
			continue
		}
		if !found {
			continue
		}

		record, err := payloadschema.ValidateContentRecord(json.RawMessage(raw))
		if err != nil {
			s.logger.Debug().Err(err).Str("fingerprint", fp).Msg("skipping malformed record during scan")
			continue
		}

		stored := article.Article{
			Title:       record.Title,
			Description: record.Content,
			Source:      record.Source,
			Topic:       record.Topic,
			Keywords:    record.Keywords,
		}
		combined := titleWeight*TitleSimilarity(a.Title, record.Title) +
			entityWeight*EntitySimilarity(a, stored) +
			contentWeight*TextSimilarity(compareText, stored.CombinedText())

		ageHours := now.Sub(time.UnixMilli(record.Timestamp).UTC()).Hours()
		if combined > SimilarityThreshold(ageHours) {
			return Verdict{Duplicate: true, Reason: ReasonFuzzy, MatchedFingerprint: fp, BestScore: combined}
		}
		if combined > best {
			best = combined
		}
	}

	return Verdict{BestScore: best}
}

// StoreContent persists the article's record under both fingerprints and
// indexes it for scanning. Every TTL is refreshed on write (last write wins).
// Returns false when any write failed; dedup state may then be stale and the
// caller should proceed with caution, not abort.
func (s *Service) StoreContent(ctx context.Context, a article.Article, content string) bool {
	contentFP := ContentFingerprint(a)
	semanticFP := SemanticFingerprint(a)

	record := payloadschema.ContentRecord{
		Title:     a.Title,
		Content:   content,
		Source:    a.Source,
		Timestamp: globaltime.UTC().UnixMilli(),
		URL:       a.URL,
		Topic:     a.Topic,
		Keywords:  a.Keywords,
	}
	raw, err := json.Marshal(record)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", a.URL).Msg("marshal content record failed")
		return false
	}

	ok := true
	if err := s.cache.Set(ctx, contentKeyPrefix+contentFP, string(raw), s.contentTTL); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", contentFP).Msg("store content record failed")
		ok = false
	}
	if err := s.cache.Set(ctx, semanticKeyPrefix+semanticFP, contentFP, s.contentTTL); err != nil {
		s.logger.Warn().Err(err).Str("fingerprint", semanticFP).Msg("store semantic pointer failed")
		ok = false
	}

	if a.Source != "" {
		sourceKey := sourceKeyPrefix + a.Source
		if err := s.indexFingerprint(ctx, sourceKey, contentFP); err != nil {
			s.logger.Warn().Err(err).Str("key", sourceKey).Msg("index fingerprint in source set failed")
			ok = false
		}
	}
	if err := s.indexFingerprint(ctx, GlobalArticlesKey, contentFP); err != nil {
		s.logger.Warn().Err(err).Str("key", GlobalArticlesKey).Msg("index fingerprint in global set failed")
		ok = false
	}

	if a.Topic != "" && s.topics != nil {
		s.topics.RecordTopic(ctx, a.Topic)
	}

	return ok
}

func (s *Service) indexFingerprint(ctx context.Context, key, fingerprint string) error {
	if err := s.cache.SetAdd(ctx, key, fingerprint); err != nil {
		return err
	}
	return s.cache.Expire(ctx, key, s.contentTTL)
}

// MarkIntent writes a short-lived placeholder before the expensive scan so a
// concurrent fetch of the same story hits the intent signal instead of racing
// the check-then-store sequence.
func (s *Service) MarkIntent(ctx context.Context, a article.Article) {
	key := intentKeyPrefix + ContentFingerprint(a)
	if err := s.cache.Set(ctx, key, "1", s.intentTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("mark intent failed")
	}
}

// ClearIntent removes the placeholder after StoreContent completes or the
// article's processing fails.
func (s *Service) ClearIntent(ctx context.Context, a article.Article) {
	key := intentKeyPrefix + ContentFingerprint(a)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("clear intent failed")
	}
}

// CleanupResult reports what one reconciliation pass removed.
type CleanupResult struct {
	Scanned int
	Removed int
}

// Cleanup lazily reconciles the fingerprint indexes with record expiry: any
// set member whose content:* key no longer exists is dropped from the global
// index and from every source set.
func (s *Service) Cleanup(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult

	indexKeys := []string{GlobalArticlesKey}
	sourceKeys, err := s.cache.KeysMatching(ctx, sourceKeyPrefix+"*")
	if err != nil {
		s.logger.Warn().Err(err).Msg("listing source sets failed; cleaning global index only")
	} else {
		indexKeys = append(indexKeys, sourceKeys...)
	}

	for _, key := range indexKeys {
		members, err := s.cache.SetMembers(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("skipping unreadable index during cleanup")
			continue
		}
		for _, fp := range members {
			result.Scanned++
			alive, err := s.cache.Exists(ctx, contentKeyPrefix+fp)
			if err != nil {
				s.logger.Warn().Err(err).Str("fingerprint", fp).Msg("skipping fingerprint during cleanup")
				continue
			}
			if alive {
				continue
			}
			if err := s.cache.SetRemove(ctx, key, fp); err != nil {
				s.logger.Warn().Err(err).Str("fingerprint", fp).Msg("removing expired fingerprint failed")
				continue
			}
			result.Removed++
		}
	}

	if result.Removed > 0 {
		s.logger.Info().Int("scanned", result.Scanned).Int("removed", result.Removed).Msg("index cleanup completed")
	}
	return result, nil
}

// ContentKey returns the cache key of an article's content record; exposed
// for diagnostics.
func ContentKey(a article.Article) string {
	return fmt.Sprintf("%s%s", contentKeyPrefix, ContentFingerprint(a))
}
