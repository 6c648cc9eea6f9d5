package matcher

import (
	"sort"

	"github.com/tlemarchand/shelfer/internal/normalize"
)

// Config holds matcher configuration
type Config struct {
	// MinOverlap is the fraction of tokens from one key that must appear in
	// the other for a fuzzy candidate to be accepted.
	MinOverlap float64

	// MinKeyLength guards against short generic keys matching everything:
	// both keys must be strictly longer than this to be fuzzy-matched.
	MinKeyLength int
}

// DefaultConfig returns sensible defaults for matcher
func DefaultConfig() Config {
	return Config{
		MinOverlap:   0.7,
		MinKeyLength: 5,
	}
}

// Matcher resolves normalized title keys against a corpus of normalized
// filename keys.
type Matcher struct {
	cfg Config
}

// New creates a new matcher
func New(cfg Config) *Matcher {
	if cfg.MinOverlap <= 0 {
		cfg.MinOverlap = DefaultConfig().MinOverlap
	}
	if cfg.MinKeyLength <= 0 {
		cfg.MinKeyLength = DefaultConfig().MinKeyLength
	}
	return &Matcher{cfg: cfg}
}

// Find returns the path of the corpus entry matching queryKey, if any.
//
// An exact key hit always wins. Otherwise candidates pass on token overlap:
// the fraction of query tokens present in the candidate key, or of candidate
// tokens present in the query key, must reach MinOverlap, and both keys must
// be longer than MinKeyLength. Among passing candidates the highest overlap
// wins; remaining ties break on lexicographic key order so results are
// deterministic across runs.
func (m *Matcher) Find(queryKey string, corpus map[string]string) (string, bool) {
	if queryKey == "" {
		return "", false
	}

	if path, ok := corpus[queryKey]; ok {
		return path, true
	}

	if len(queryKey) <= m.cfg.MinKeyLength {
		return "", false
	}

	queryTokens := normalize.Tokens(queryKey)
	querySet := tokenSet(queryTokens)

	keys := make([]string, 0, len(corpus))
	for key := range corpus {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	bestScore := 0.0
	bestPath := ""
	found := false

	for _, key := range keys {
		if len(key) <= m.cfg.MinKeyLength {
			continue
		}

		candidateTokens := normalize.Tokens(key)
		candidateSet := tokenSet(candidateTokens)

		score := overlap(queryTokens, candidateSet)
		if reverse := overlap(candidateTokens, querySet); reverse > score {
			score = reverse
		}

		if score >= m.cfg.MinOverlap && score > bestScore {
			bestScore = score
			bestPath = corpus[key]
			found = true
		}
	}

	return bestPath, found
}

// overlap computes the fraction of tokens present in set.
func overlap(tokens []string, set map[string]struct{}) float64 {
	if len(tokens) == 0 {
		return 0
	}

	matching := 0
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			matching++
		}
	}

	return float64(matching) / float64(len(tokens))
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
