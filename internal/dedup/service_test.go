package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"horse.fit/crier/internal/article"
	"horse.fit/crier/internal/cache"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis, cache.Cache) {
	t.Helper()

	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	store := cache.NewRedisFromClient(client, 2*time.Second)
	t.Cleanup(func() { _ = store.Close() })

	return NewService(store, zerolog.Nop(), Options{}), m, store
}

func TestIsDuplicate_RoundTripExact(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestService(t)
	ctx := context.Background()
	a := sampleArticle()

	if verdict := service.IsDuplicate(ctx, a, ""); verdict.Duplicate {
		t.Fatalf("expected fresh article to be unique, got %+v", verdict)
	}
	if !service.StoreContent(ctx, a, "Generated post about the ETF filing.") {
		t.Fatalf("expected store to succeed")
	}

	verdict := service.IsDuplicate(ctx, a, "Generated post about the ETF filing.")
	if !verdict.Duplicate || verdict.Reason != ReasonExact {
		t.Fatalf("expected exact duplicate verdict, got %+v", verdict)
	}
}

func TestIsDuplicate_SemanticPath(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestService(t)
	ctx := context.Background()

	a := article.Article{
		Title:       "Bitcoin ETF launch filed by BlackRock",
		Description: "The asset manager moves into crypto.",
		URL:         "https://example.com/a",
		Source:      "newswire",
	}
	paraphrase := article.Article{
		Title:       "BlackRock pushes into crypto with Bitcoin ETF paperwork",
		Description: "A major step for the asset manager.",
		URL:         "https://other.example.com/b",
		Source:      "other-wire",
	}

	if !service.StoreContent(ctx, a, "") {
		t.Fatalf("expected store to succeed")
	}

	verdict := service.IsDuplicate(ctx, paraphrase, "")
	if !verdict.Duplicate || verdict.Reason != ReasonSemantic {
		t.Fatalf("expected semantic duplicate verdict, got %+v", verdict)
	}
}

func TestIsDuplicate_CrossSourceFuzzyMatch(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestService(t)
	ctx := context.Background()

	stored := article.Article{
		Title:       "Bitcoin ETF launch filed by BlackRock",
		Description: "BlackRock has filed paperwork to launch a spot bitcoin ETF in the united states.",
		URL:         "https://reuters.example.com/etf",
		Source:      "reuters",
	}
	candidate := article.Article{
		Title:       "BlackRock files new Bitcoin ETF paperwork",
		Description: "BlackRock has filed paperwork with the SEC to launch a spot bitcoin ETF in the united states.",
		URL:         "https://bloomberg.example.com/etf",
		Source:      "bloomberg",
	}

	// entity sets differ (the candidate adds the SEC), so neither fingerprint
	// collides and only the global scan can connect the two
	if ContentFingerprint(stored) == ContentFingerprint(candidate) {
		t.Fatalf("test setup: content fingerprints must differ")
	}
	if SemanticFingerprint(stored) == SemanticFingerprint(candidate) {
		t.Fatalf("test setup: semantic fingerprints must differ")
	}

	if !service.StoreContent(ctx, stored, stored.Description) {
		t.Fatalf("expected store to succeed")
	}

	verdict := service.IsDuplicate(ctx, candidate, "")
	if !verdict.Duplicate || verdict.Reason != ReasonFuzzy {
		t.Fatalf("expected fuzzy duplicate via global scan, got %+v", verdict)
	}
	if verdict.MatchedFingerprint != ContentFingerprint(stored) {
		t.Fatalf("expected match against stored fingerprint, got %q", verdict.MatchedFingerprint)
	}
}

func TestIsDuplicate_UniqueTracksBestScore(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestService(t)
	ctx := context.Background()

	stored := article.Article{
		Title:       "Bitcoin ETF launch filed by BlackRock",
		Description: "BlackRock has filed paperwork to launch a spot bitcoin ETF.",
		URL:         "https://example.com/a",
		Source:      "newswire",
	}
	unrelated := article.Article{
		Title:       "Solana network suffers major outage",
		Description: "Validators restarted the network after a six hour halt.",
		URL:         "https://example.com/b",
		Source:      "newswire",
	}

	if !service.StoreContent(ctx, stored, "") {
		t.Fatalf("expected store to succeed")
	}

	verdict := service.IsDuplicate(ctx, unrelated, "")
	if verdict.Duplicate {
		t.Fatalf("expected unrelated article to be unique, got %+v", verdict)
	}
	if verdict.BestScore < 0 || verdict.BestScore >= 0.5 {
		t.Fatalf("expected diagnostic best score below the recent threshold, got %f", verdict.BestScore)
	}
}

func TestIsDuplicate_IntentMarker(t *testing.T) {
	t.Parallel()

	service, _, _ := newTestService(t)
	ctx := context.Background()
	a := sampleArticle()

	service.MarkIntent(ctx, a)
	verdict := service.IsDuplicate(ctx, a, "")
	if !verdict.Duplicate || verdict.Reason != ReasonIntent {
		t.Fatalf("expected intent duplicate verdict, got %+v", verdict)
	}

	service.ClearIntent(ctx, a)
	if verdict := service.IsDuplicate(ctx, a, ""); verdict.Duplicate {
		t.Fatalf("expected unique after intent cleared, got %+v", verdict)
	}
}

func TestIsDuplicate_SkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	service, _, store := newTestService(t)
	ctx := context.Background()

	// a fingerprint whose record is not valid JSON must be skipped silently
	if err := store.Set(ctx, "content:deadbeef", "{not json", time.Hour); err != nil {
		t.Fatalf("seed malformed record: %v", err)
	}
	if err := store.SetAdd(ctx, GlobalArticlesKey, "deadbeef"); err != nil {
		t.Fatalf("seed global index: %v", err)
	}

	verdict := service.IsDuplicate(ctx, sampleArticle(), "")
	if verdict.Duplicate {
		t.Fatalf("malformed record must not produce a duplicate verdict, got %+v", verdict)
	}
}

func TestIsDuplicate_FailsOpenWhenCacheDown(t *testing.T) {
	t.Parallel()

	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	addr := m.Addr()
	m.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	store := cache.NewRedisFromClient(client, 500*time.Millisecond)
	defer store.Close()

	service := NewService(store, zerolog.Nop(), Options{})
	ctx := context.Background()

	if verdict := service.IsDuplicate(ctx, sampleArticle(), ""); verdict.Duplicate {
		t.Fatalf("reads must fail open when the cache is down, got %+v", verdict)
	}
	if service.StoreContent(ctx, sampleArticle(), "post") {
		t.Fatalf("writes must report failure when the cache is down")
	}
}

func TestStoreContent_IndexesSourceAndGlobal(t *testing.T) {
	t.Parallel()

	service, _, store := newTestService(t)
	ctx := context.Background()
	a := sampleArticle()

	if !service.StoreContent(ctx, a, "post text") {
		t.Fatalf("expected store to succeed")
	}

	fp := ContentFingerprint(a)
	global, err := store.SetMembers(ctx, GlobalArticlesKey)
	if err != nil {
		t.Fatalf("read global index: %v", err)
	}
	if len(global) != 1 || global[0] != fp {
		t.Fatalf("expected global index [%s], got %v", fp, global)
	}

	perSource, err := store.SetMembers(ctx, "source:"+a.Source)
	if err != nil {
		t.Fatalf("read source index: %v", err)
	}
	if len(perSource) != 1 || perSource[0] != fp {
		t.Fatalf("expected source index [%s], got %v", fp, perSource)
	}
}

func TestCleanup_RemovesExpiredFingerprints(t *testing.T) {
	t.Parallel()

	service, _, store := newTestService(t)
	ctx := context.Background()

	a := sampleArticle()
	b := article.Article{
		Title:       "Ethereum gas fees drop 40 percent after upgrade",
		Description: "Average fees fell sharply following the network upgrade.",
		URL:         "https://example.com/eth",
		Source:      "other-wire",
	}
	if !service.StoreContent(ctx, a, "") || !service.StoreContent(ctx, b, "") {
		t.Fatalf("expected stores to succeed")
	}

	// simulate expiry of a's record while its index entries linger
	if err := store.Delete(ctx, ContentKey(a)); err != nil {
		t.Fatalf("delete record: %v", err)
	}

	result, err := service.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if result.Removed != 2 { // a's fingerprint leaves the global and source sets
		t.Fatalf("expected 2 removals, got %+v", result)
	}

	global, err := store.SetMembers(ctx, GlobalArticlesKey)
	if err != nil {
		t.Fatalf("read global index: %v", err)
	}
	if len(global) != 1 || global[0] != ContentFingerprint(b) {
		t.Fatalf("expected only b's fingerprint to remain, got %v", global)
	}
}
