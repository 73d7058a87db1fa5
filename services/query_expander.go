package services

import (
	"regexp"
	"strings"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
)

// synonymEntry maps one domain term to its substitution candidates. An
// ordered slice keeps expansion deterministic; map iteration order would
// make the variant set flap between runs.
type synonymEntry struct {
	term     string
	synonyms []string
	pattern  *regexp.Regexp
}

// defaultSynonyms covers the dominant lexical mismatches between how
// users phrase questions and how the SOP documents phrase the same thing.
var defaultSynonyms = []struct {
	term     string
	synonyms []string
}{
	{"sop", []string{"standard operating procedure", "procedure"}},
	{"check status", []string{"track", "view the tracker", "see progress"}},
	{"tracker", []string{"status board", "progress sheet"}},
	{"upload", []string{"submit", "add"}},
	{"delete", []string{"remove"}},
	{"create", []string{"set up", "add a new"}},
	{"update", []string{"edit", "change"}},
	{"approve", []string{"authorize", "sign off on"}},
	{"login", []string{"sign in", "log in"}},
	{"error", []string{"issue", "failure"}},
	{"escalate", []string{"raise", "report to supervisor"}},
	{"customer", []string{"client"}},
	{"invoice", []string{"bill"}},
	{"reject", []string{"decline", "return"}},
}

// QueryExpander produces a small set of semantically-equivalent query
// strings from one question. Pure vector similarity under-retrieves when
// the user's phrasing diverges lexically from document phrasing; cheap
// substring-based substitution covers that failure mode without a query
// rewriting model.
type QueryExpander struct {
	entries     []synonymEntry
	maxVariants int
}

func NewQueryExpander(cfg *config.Config) *QueryExpander {
	entries := make([]synonymEntry, 0, len(defaultSynonyms))
	for _, s := range defaultSynonyms {
		entries = append(entries, synonymEntry{
			term:     s.term,
			synonyms: s.synonyms,
			pattern:  regexp.MustCompile(`(?i)` + regexp.QuoteMeta(s.term)),
		})
	}

	return &QueryExpander{
		entries:     entries,
		maxVariants: cfg.MaxQueryVariants,
	}
}

// Expand returns a deduplicated, size-bounded variant set that always
// contains the original question verbatim.
func (qe *QueryExpander) Expand(question string) []string {
	variants := []string{question}
	seen := map[string]bool{strings.ToLower(question): true}

	lower := strings.ToLower(question)
	for _, entry := range qe.entries {
		if len(variants) >= qe.maxVariants {
			break
		}
		if !strings.Contains(lower, entry.term) {
			continue
		}

		for _, synonym := range entry.synonyms {
			if len(variants) >= qe.maxVariants {
				break
			}

			variant := entry.pattern.ReplaceAllString(question, synonym)
			key := strings.ToLower(variant)
			if seen[key] {
				continue
			}
			seen[key] = true
			variants = append(variants, variant)
		}
	}

	return variants
}
