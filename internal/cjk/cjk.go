package cjk

import (
	"regexp"
	"strings"
	"unicode"
)

// Unified ideograph ranges recognized by the tokenizer. Covers the main
// CJK block plus Extension A and the compatibility block.
func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case r >= 0x3400 && r <= 0x4DBF:
		return true
	case r >= 0xF900 && r <= 0xFAFF:
		return true
	}
	return false
}

var multiSpace = regexp.MustCompile(`\s+`)

// Split inserts a space before and after every CJK code point so that a
// whitespace-based tokenizer sees each ideograph as its own token. Latin
// words are left untouched. Applying Split twice is idempotent.
func Split(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text) * 2)
	for _, r := range text {
		if isCJK(r) {
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		} else {
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(multiSpace.ReplaceAllString(b.String(), " "))
}

// Restore collapses whitespace strictly between two CJK characters,
// undoing Split on stored titles and snippets. A single pass is not
// enough: removing the space in "中 文 搜" joins 中文 and creates a new
// CJK pair around the next space, so Restore loops until a full pass
// makes no change.
func Restore(text string) string {
	if text == "" {
		return ""
	}

	runes := []rune(text)
	for {
		out := make([]rune, 0, len(runes))
		changed := false
		for i := 0; i < len(runes); i++ {
			r := runes[i]
			if !unicode.IsSpace(r) {
				out = append(out, r)
				continue
			}

			// Scan past the whitespace run and drop it only when it
			// sits between two CJK characters.
			j := i
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			if len(out) > 0 && isCJK(out[len(out)-1]) && j < len(runes) && isCJK(runes[j]) {
				changed = true
			} else {
				out = append(out, runes[i:j]...)
			}
			i = j - 1
		}
		runes = out
		if !changed {
			break
		}
	}

	return string(runes)
}

// FTS5 metacharacters that raise syntax errors or silently change query
// semantics when they appear in raw user input.
var ftsSpecial = strings.NewReplacer(
	"*", " ", "^", " ", "(", " ", ")", " ",
	"[", " ", "]", " ", "{", " ", "}", " ",
	":", " ", `"`, " ", "+", " ", `\`, " ",
	"/", " ", "<", " ", ">", " ", "-", " ", ".", " ",
)

var wordChar = regexp.MustCompile(`[\p{L}\p{N}_]`)

// hasBoolOperator reports whether the user wrote an explicit FTS5
// boolean expression. Only operators with a space on both sides count;
// a leading or trailing AND/OR/NOT is a plain search term, and passing
// it through as an operator would make the engine reject the query.
func hasBoolOperator(q string) bool {
	upper := strings.ToUpper(q)
	return strings.Contains(upper, " AND ") ||
		strings.Contains(upper, " OR ") ||
		strings.Contains(upper, " NOT ")
}

// SanitizeQuery converts raw user text into a query string that is safe
// to hand to the full-text engine.
//
// Queries with balanced double quotes pass through unchanged (explicit
// phrase search). Otherwise metacharacters are stripped, and unless the
// user wrote explicit boolean operators the remaining terms are joined
// with OR to maximize recall. Returns "" for empty or symbol-only input;
// callers must treat that as no results, not match-everything.
func SanitizeQuery(raw string) string {
	q := strings.TrimSpace(raw)
	if q == "" {
		return ""
	}

	if n := strings.Count(q, `"`); n > 0 && n%2 == 0 {
		return q
	}

	cleaned := strings.TrimSpace(multiSpace.ReplaceAllString(ftsSpecial.Replace(q), " "))
	if cleaned == "" {
		return ""
	}

	if hasBoolOperator(q) {
		return cleaned
	}

	var terms []string
	for _, term := range strings.Fields(Split(cleaned)) {
		if !wordChar.MatchString(term) {
			continue
		}
		// Stray operator keywords become quoted literals
		switch term {
		case "AND", "OR", "NOT":
			term = `"` + term + `"`
		}
		terms = append(terms, term)
	}
	return strings.Join(terms, " OR ")
}
