// Package cjk bridges the gap between a token-based full-text engine and
// CJK text, which has no whitespace between words.
//
// SQLite's FTS5 unicode61 tokenizer segments on whitespace and ASCII word
// boundaries, so a Chinese sentence indexes as one giant token and never
// matches a shorter query. Split works around this by spacing out every
// ideograph before text is written to the index, turning each character
// into its own token (unigram indexing). Restore reverses the transform
// on titles and snippets before they are returned to callers.
//
// SanitizeQuery prepares raw user input for FTS5 MATCH: phrase queries in
// double quotes pass through, metacharacters are stripped, and plain
// natural-language queries are OR-joined for recall.
package cjk
