// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"strings"
	"unicode"
)

// stopwords contains common English words that carry no topical signal.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "tell": true, "any": true, "there": true, "these": true,
	"those": true, "some": true, "case": true, "cases": true,
}

// functionWords is the smaller set dropped for embedding. Question words,
// auxiliaries such as "were" and prepositions such as "with" are kept.
var functionWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "am": true,
	"be": true, "been": true, "being": true, "do": true, "does": true, "did": true,
	"of": true, "to": true, "for": true, "in": true, "on": true, "at": true,
	"by": true, "from": true, "into": true, "and": true, "or": true, "as": true,
	"so": true, "up": true, "out": true, "if": true, "then": true, "than": true,
	"it": true, "its": true, "this": true, "that": true, "these": true, "those": true,
	"there": true, "any": true, "some": true, "tell": true, "about": true,
	"i": true, "me": true, "my": true, "you": true, "your": true, "we": true,
	"us": true, "they": true, "them": true, "he": true, "she": true, "him": true,
	"her": true, "case": true, "cases": true,
}

// Tokenize splits text into lowercase letter-or-digit words, drops
// stopwords and single characters, and folds simple plurals. Order and
// repeats are preserved.
func Tokenize(text string) []string {
	return tokenize(text, stopwords)
}

// EmbedTokens is Tokenize with only functionWords dropped.
func EmbedTokens(text string) []string {
	return tokenize(text, functionWords)
}

func tokenize(text string, drop map[string]bool) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 2 || drop[w] {
			continue
		}
		tokens = append(tokens, fold(w))
	}
	return tokens
}

// UniqueTokens returns the distinct tokens of text in first-seen order.
func UniqueTokens(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range Tokenize(text) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func fold(w string) string {
	if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return w[:len(w)-1]
	}
	return w
}
