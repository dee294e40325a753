// Package contextbuild turns heterogeneous conversational input (raw text or
// a message history) into a single bounded context string, plus the stable
// fingerprint used as its cache key.
package contextbuild

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// charsPerToken is the truncation heuristic: roughly 4 characters per token
// for English text. Close enough for budgeting, no tokenizer dependency.
const charsPerToken = 4

// boundaryWindow is the fraction of the truncation window in which a word
// boundary is considered "close enough" to prefer over a hard cut.
const boundaryWindow = 0.8

// truncationMarker is appended whenever the context string was cut.
const truncationMarker = "..."

// Message is one entry of a conversational history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FromText bounds raw text to approximately maxTokens tokens.
//
// The cut prefers the nearest preceding word boundary when that boundary falls
// within the last 20% of the truncation window; otherwise it cuts mid-word.
// A maxTokens of zero or less disables truncation.
func FromText(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	budget := maxTokens * charsPerToken
	if len(text) <= budget {
		return text
	}

	cut := budget
	// Never split a UTF-8 sequence.
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	window := text[:cut]
	if idx := strings.LastIndexFunc(window, unicode.IsSpace); idx >= int(float64(budget)*boundaryWindow) {
		window = strings.TrimRightFunc(window[:idx], unicode.IsSpace)
	}

	return window + truncationMarker
}

// FromMessages renders a message history as a bounded context string.
//
// System-role entries are dropped, only the last contextMessages remaining
// entries are kept in original order, each rendered as "Role: content" joined
// by blank lines, then the same token budget as FromText is applied.
func FromMessages(messages []Message, contextMessages, maxTokens int) string {
	kept := make([]Message, 0, len(messages))
	for _, m := range messages {
		if strings.EqualFold(m.Role, "system") {
			continue
		}
		kept = append(kept, m)
	}

	if contextMessages > 0 && len(kept) > contextMessages {
		kept = kept[len(kept)-contextMessages:]
	}

	lines := make([]string, len(kept))
	for i, m := range kept {
		lines[i] = titleRole(m.Role) + ": " + m.Content
	}

	return FromText(strings.Join(lines, "\n\n"), maxTokens)
}

// titleRole renders a role with an uppercased first letter ("user" -> "User").
func titleRole(role string) string {
	if role == "" {
		return role
	}
	r, size := utf8.DecodeRuneInString(role)
	return string(unicode.ToUpper(r)) + role[size:]
}
