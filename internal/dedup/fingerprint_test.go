package dedup

import (
	"testing"
	"time"

	"horse.fit/crier/internal/article"
)

func sampleArticle() article.Article {
	return article.Article{
		Title:       "Bitcoin ETF launch filed by BlackRock",
		Description: "BlackRock has filed paperwork to launch a spot bitcoin ETF.",
		URL:         "https://example.com/btc-etf",
		Source:      "newswire",
		Keywords:    []string{"bitcoin", "etf"},
		PublishedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestContentFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	a := sampleArticle()
	first := ContentFingerprint(a)
	second := ContentFingerprint(a)
	if first != second {
		t.Fatalf("content fingerprint not deterministic: %q vs %q", first, second)
	}
	if len(first) != 32 {
		t.Fatalf("expected 32-char hex digest, got %q", first)
	}
}

func TestContentFingerprint_IgnoresURLsAndCase(t *testing.T) {
	t.Parallel()

	a := sampleArticle()
	b := a
	b.Title = "BITCOIN etf LAUNCH filed BY blackrock"
	b.Description = a.Description + " https://tracker.example.com/xyz"
	if ContentFingerprint(a) != ContentFingerprint(b) {
		t.Fatalf("case and URL variations must not change the fingerprint")
	}
}

func TestContentFingerprint_KeywordsMatter(t *testing.T) {
	t.Parallel()

	a := sampleArticle()
	b := a
	b.Keywords = []string{"bitcoin", "etf", "sec"}
	if ContentFingerprint(a) == ContentFingerprint(b) {
		t.Fatalf("different keyword sets must produce different fingerprints")
	}
}

func TestSemanticFingerprint_ParaphraseCollision(t *testing.T) {
	t.Parallel()

	a := article.Article{
		Title:       "Bitcoin ETF launch filed by BlackRock",
		Description: "The asset manager moves into crypto.",
	}
	b := article.Article{
		Title:       "BlackRock pushes into crypto with Bitcoin ETF paperwork",
		Description: "A major step for the asset manager.",
	}
	if SemanticFingerprint(a) != SemanticFingerprint(b) {
		t.Fatalf("paraphrases naming the same entities must share a semantic fingerprint")
	}
}

func TestSemanticFingerprint_DifferentEntities(t *testing.T) {
	t.Parallel()

	a := article.Article{Title: "Bitcoin ETF launch filed by BlackRock"}
	b := article.Article{Title: "Ethereum gas fees drop after upgrade"}
	if SemanticFingerprint(a) == SemanticFingerprint(b) {
		t.Fatalf("different entity sets must produce different semantic fingerprints")
	}
}
