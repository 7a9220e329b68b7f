// Package extraction pulls organization mentions and keyword signals
// out of free-text article titles. It is heuristic: it will miss some
// company mentions and raise false positives; downstream resolution
// filters out anything that does not map to a real ticker.
package extraction

import (
	"strings"
	"unicode"

	"github.com/kts999jjang/themeradar/internal/models"
)

// bannedOrgWords are spans the tokenizer flags as organizations but
// that carry no company identity on their own.
var bannedOrgWords = map[string]struct{}{
	"ai": {}, "inc": {}, "corp": {}, "corporation": {}, "group": {},
	"tech": {}, "technologies": {}, "solutions": {}, "company": {},
	"holdings": {}, "report": {}, "news": {}, "update": {}, "market": {},
	"stock": {}, "stocks": {}, "shares": {}, "ipo": {}, "ceo": {},
}

// stopwords never begin or end an organization span.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "in": {},
	"on": {}, "for": {}, "to": {}, "with": {}, "at": {}, "by": {}, "as": {},
	"is": {}, "are": {}, "was": {}, "how": {}, "why": {}, "what": {},
	"new": {}, "after": {}, "before": {}, "over": {}, "amid": {},
	"its": {}, "this": {}, "that": {}, "says": {}, "their": {},
}

// corporate suffixes that mark the preceding run as a company name.
var orgSuffixes = map[string]struct{}{
	"inc": {}, "corp": {}, "corporation": {}, "co": {}, "ltd": {},
	"llc": {}, "plc": {}, "group": {}, "holdings": {}, "technologies": {},
	"motors": {}, "platforms": {}, "semiconductor": {}, "pharmaceuticals": {},
}

// CountOrganizations extracts organization-like spans from every
// article title and returns normalized mention counts summed across
// the batch. Pure function of its input.
func CountOrganizations(articles []models.Article) map[string]int {
	counts := make(map[string]int)
	for _, article := range articles {
		for _, org := range organizationSpans(article.Title) {
			name := Normalize(org)
			if !Acceptable(name) {
				continue
			}
			counts[name]++
		}
	}
	return counts
}

// Normalize lowercases a raw organization span, strips periods and
// commas, drops a trailing " inc" suffix and trims whitespace.
// Normalize is idempotent.
func Normalize(raw string) string {
	name := strings.ToLower(raw)
	name = strings.ReplaceAll(name, ".", "")
	name = strings.ReplaceAll(name, ",", "")
	name = strings.TrimSuffix(name, " inc")
	return strings.TrimSpace(name)
}

// Acceptable reports whether a normalized name survives the length and
// banned-word filters.
func Acceptable(name string) bool {
	if len(name) <= 2 {
		return false
	}
	_, banned := bannedOrgWords[name]
	return !banned
}

// organizationSpans returns maximal runs of capitalized tokens in a
// title. A run qualifies as organization-like when it is either
// multi-token, ends in a corporate suffix, or is a single strongly
// capitalized token (all-caps or mixed-case brand) away from the
// sentence start.
func organizationSpans(title string) []string {
	tokens := strings.FieldsFunc(title, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\'' || r == '"' || r == '(' ||
			r == ')' || r == '[' || r == ']' || r == ':' || r == ';' ||
			r == '!' || r == '?'
	})

	var spans []string
	var run []string
	runStart := -1

	flush := func() {
		defer func() { run = nil; runStart = -1 }()
		if len(run) == 0 {
			return
		}
		// Trim leading/trailing stopwords that got swept into the run.
		for len(run) > 0 && isStopword(run[0]) {
			run = run[1:]
			runStart++
		}
		for len(run) > 0 && isStopword(run[len(run)-1]) {
			run = run[:len(run)-1]
		}
		if len(run) == 0 {
			return
		}
		if len(run) > 1 || hasOrgSuffix(run) || strongToken(run[0], runStart) {
			spans = append(spans, strings.Join(run, " "))
		}
	}

	for i, tok := range tokens {
		word := strings.Trim(tok, ",.-–—")
		if word == "" {
			flush()
			continue
		}
		if capitalized(word) {
			if runStart == -1 {
				runStart = i
			}
			run = append(run, word)
			// Sentence punctuation ends the span even mid-run.
			if strings.HasSuffix(tok, ",") {
				flush()
			}
			continue
		}
		flush()
	}
	flush()

	return spans
}

func capitalized(word string) bool {
	runes := []rune(word)
	return unicode.IsUpper(runes[0]) || unicode.IsDigit(runes[0]) && len(runes) > 1 && unicode.IsUpper(runes[1])
}

func strongToken(word string, position int) bool {
	if position == 0 {
		// A lone capitalized first word is usually just sentence case.
		return strings.ToUpper(word) == word && len(word) > 1
	}
	return true
}

func isStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

func hasOrgSuffix(run []string) bool {
	last := strings.ToLower(strings.TrimSuffix(run[len(run)-1], "."))
	_, ok := orgSuffixes[last]
	return ok
}

// TopKeywords returns up to n frequent lowercase tokens (length > 2,
// non-numeric, non-stopword) across the given titles, most frequent
// first. Used by the ticker detail view.
func TopKeywords(titles []string, n int) []string {
	freq := make(map[string]int)
	order := make([]string, 0)

	for _, title := range titles {
		for _, tok := range strings.Fields(strings.ToLower(title)) {
			word := strings.Trim(tok, `.,'"()[]:;!?-`)
			if len(word) <= 2 || isStopword(word) || isNumeric(word) {
				continue
			}
			if freq[word] == 0 {
				order = append(order, word)
			}
			freq[word]++
		}
	}

	// Stable selection sort over first-seen order keeps ties deterministic.
	for i := 0; i < len(order); i++ {
		best := i
		for j := i + 1; j < len(order); j++ {
			if freq[order[j]] > freq[order[best]] {
				best = j
			}
		}
		order[i], order[best] = order[best], order[i]
	}

	if n < len(order) {
		order = order[:n]
	}
	return order
}

func isNumeric(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '.' && r != '%' && r != '$' {
			return false
		}
	}
	return true
}
