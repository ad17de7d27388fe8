package rerank

import (
	"sort"
	"strings"
	"unicode"

	"github.com/dshills/docsearch/internal/keyword"
)

const (
	// maxKeywords bounds the keywords reported per result
	maxKeywords = 10
	// minKeywordLength drops short tokens from keyword extraction
	minKeywordLength = 4

	// CategoryGeneral is assigned when no category term occurs
	CategoryGeneral = "general"
)

// Category maps a content category to the terms that select it
type Category struct {
	Name  string
	Terms []string
}

// DefaultCategories are checked in order, first match wins
func DefaultCategories() []Category {
	return []Category{
		{Name: "education", Terms: []string{"exam", "syllabus", "lecture", "university", "college"}},
		{Name: "finance", Terms: []string{"invoice", "salary", "tax", "bank", "payment"}},
		{Name: "technology", Terms: []string{"python", "java", "algorithm", "database", "ai"}},
	}
}

// ExtractKeywords returns the most frequent excerpt words of at least four
// characters, most frequent first. Ties keep first-occurrence order.
func ExtractKeywords(text string) []string {
	counts := make(map[string]int)
	var order []string
	for _, tok := range words(text) {
		if len([]rune(tok)) < minKeywordLength {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}
	if len(order) == 0 {
		return nil
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	return order
}

// classify returns the first category with a term among the text tokens
func classify(categories []Category, text string) string {
	tokens := make(map[string]struct{})
	for _, tok := range words(text) {
		tokens[tok] = struct{}{}
	}
	for _, c := range categories {
		for _, term := range c.Terms {
			if _, ok := tokens[term]; ok {
				return c.Name
			}
		}
	}
	return CategoryGeneral
}

// words tokenizes like the keyword index and trims surrounding punctuation
func words(text string) []string {
	tokens := keyword.Tokenize(text)
	out := tokens[:0]
	for _, tok := range tokens {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
