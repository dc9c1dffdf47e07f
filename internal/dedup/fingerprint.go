package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"horse.fit/crier/internal/article"
	"horse.fit/crier/internal/normalize"
	"horse.fit/crier/internal/vocab"
)

// ContentFingerprint hashes the normalized title + description + keywords.
// Two sources covering the same story with different wording will not collide
// here; that is what the semantic fingerprint and the global scan are for.
func ContentFingerprint(a article.Article) string {
	normalized := normalize.Text(normalize.StripURLs(a.FingerprintText()))
	return digest(normalized)
}

// SemanticFingerprint hashes the sorted entity-tag set of title+description,
// so paraphrases naming the same entities collide.
func SemanticFingerprint(a article.Article) string {
	tags := vocab.Entities(a.CombinedText())
	return digest(strings.Join(tags, "|"))
}

func digest(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
