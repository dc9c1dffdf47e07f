package dedup

import (
	"math"
	"strings"

	"horse.fit/crier/internal/article"
	"horse.fit/crier/internal/normalize"
	"horse.fit/crier/internal/vocab"
)

const (
	jaccardWeight  = 0.2
	cosineWeight   = 0.2
	sequenceWeight = 0.2
	phraseWeight   = 0.4

	bigramShare  = 0.6
	trigramShare = 0.4
)

// TextSimilarity scores two text blobs in [0,1] as a weighted composite of
// token-set Jaccard, term-frequency cosine, n-gram sequence overlap, and
// exact-phrase overlap. Either side empty scores 0.
func TextSimilarity(a, b string) float64 {
	termsA := filteredTokens(a)
	termsB := filteredTokens(b)
	if len(termsA) == 0 || len(termsB) == 0 {
		return 0
	}

	score := jaccardWeight*tokenJaccard(termsA, termsB) +
		cosineWeight*termFrequencyCosine(termsA, termsB) +
		sequenceWeight*sequenceSimilarity(termsA, termsB) +
		phraseWeight*phraseOverlap(termsA, termsB)
	return clamp01(score)
}

// EntitySimilarity is the Jaccard similarity of the two articles' entity-tag
// sets. Zero when either article names no known entities.
func EntitySimilarity(a, b article.Article) float64 {
	return setJaccard(vocab.Entities(a.CombinedText()), vocab.Entities(b.CombinedText()))
}

// TitleSimilarity is the Jaccard similarity of the stopword-filtered title
// tokens alone.
func TitleSimilarity(titleA, titleB string) float64 {
	return tokenJaccard(filteredTokens(titleA), filteredTokens(titleB))
}

// SimilarityThreshold returns the global-scan duplicate threshold for a
// cached record of the given age. Recent near-identical coverage is almost
// certainly the same event, so tolerance tightens as the record ages.
func SimilarityThreshold(ageHours float64) float64 {
	switch {
	case ageHours < 6:
		return 0.5
	case ageHours < 12:
		return 0.55
	case ageHours < 24:
		return 0.6
	default:
		return 0.65
	}
}

func filteredTokens(text string) []string {
	tokens := normalize.Tokens(text)
	if len(tokens) == 0 {
		return nil
	}
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if vocab.IsStopword(token) {
			continue
		}
		filtered = append(filtered, token)
	}
	return filtered
}

func tokenJaccard(termsA, termsB []string) float64 {
	return setJaccard(termsA, termsB)
}

func setJaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := toSet(a)
	setB := toSet(b)
	intersection := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func termFrequencyCosine(termsA, termsB []string) float64 {
	freqA := termFrequencies(termsA)
	freqB := termFrequencies(termsB)
	if len(freqA) == 0 || len(freqB) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, count := range freqA {
		normA += float64(count * count)
		if other, ok := freqB[term]; ok {
			dot += float64(count * other)
		}
	}
	for _, count := range freqB {
		normB += float64(count * count)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func termFrequencies(terms []string) map[string]int {
	freq := make(map[string]int, len(terms))
	for _, term := range terms {
		freq[term]++
	}
	return freq
}

func sequenceSimilarity(termsA, termsB []string) float64 {
	bigram := ngramJaccard(termsA, termsB, 2)
	trigram := ngramJaccard(termsA, termsB, 3)
	return bigramShare*bigram + trigramShare*trigram
}

func ngramJaccard(termsA, termsB []string, n int) float64 {
	gramsA := ngramSet(termsA, n)
	gramsB := ngramSet(termsB, n)
	if len(gramsA) == 0 || len(gramsB) == 0 {
		return 0
	}

	intersection := 0
	for gram := range gramsA {
		if _, ok := gramsB[gram]; ok {
			intersection++
		}
	}
	union := len(gramsA) + len(gramsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func ngramSet(terms []string, n int) map[string]struct{} {
	if len(terms) < n {
		return nil
	}
	set := make(map[string]struct{}, len(terms)-n+1)
	for i := 0; i+n <= len(terms); i++ {
		set[strings.Join(terms[i:i+n], " ")] = struct{}{}
	}
	return set
}

// phraseOverlap scores contiguous phrases shared verbatim by both token
// sequences. Longer phrases are checked first and absorb their sub-phrases;
// each match is weighted by its length and the total is normalized by twice
// the shorter word count.
func phraseOverlap(termsA, termsB []string) float64 {
	minWords := len(termsA)
	if len(termsB) < minWords {
		minWords = len(termsB)
	}
	if minWords == 0 {
		return 0
	}

	matchedFour := make(map[string]struct{})
	weighted := 0

	fourB := ngramSet(termsB, 4)
	for gram := range ngramSet(termsA, 4) {
		if _, ok := fourB[gram]; ok {
			matchedFour[gram] = struct{}{}
			weighted += 4
		}
	}

	threeB := ngramSet(termsB, 3)
	for gram := range ngramSet(termsA, 3) {
		if _, ok := threeB[gram]; !ok {
			continue
		}
		if containedInMatched(gram, matchedFour) {
			continue
		}
		weighted += 3
	}

	score := float64(weighted) / float64(2*minWords)
	return clamp01(score)
}

func containedInMatched(gram string, matched map[string]struct{}) bool {
	for longer := range matched {
		if strings.Contains(" "+longer+" ", " "+gram+" ") {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
