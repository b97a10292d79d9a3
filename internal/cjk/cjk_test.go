package cjk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "latin text untouched",
			input:    "machine learning notes",
			expected: "machine learning notes",
		},
		{
			name:     "pure chinese",
			input:    "中文搜索",
			expected: "中 文 搜 索",
		},
		{
			name:     "mixed chinese and latin",
			input:    "hello 世界",
			expected: "hello 世 界",
		},
		{
			name:     "extension a block",
			input:    "㐀㐁",
			expected: "㐀 㐁",
		},
		{
			name:     "compatibility block",
			input:    "豈更",
			expected: "豈 更",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Split(tt.input))
		})
	}
}

func TestSplitIdempotent(t *testing.T) {
	inputs := []string{
		"中文搜索引擎",
		"hello 世界 foo",
		"plain english",
	}

	for _, input := range inputs {
		once := Split(input)
		assert.Equal(t, once, Split(once), "Split should be idempotent for %q", input)
	}
}

func TestRestore(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "collapses space between cjk pairs",
			input:    "中 文",
			expected: "中文",
		},
		{
			name:     "requires multiple passes",
			input:    "中 文 搜 索 引 擎",
			expected: "中文搜索引擎",
		},
		{
			name:     "preserves space next to latin",
			input:    "hello 世 界 foo",
			expected: "hello 世界 foo",
		},
		{
			name:     "latin only untouched",
			input:    "no cjk here",
			expected: "no cjk here",
		},
		{
			name:     "snippet with highlight markers",
			input:    "... <b>搜</b> 索 引 擎 ...",
			expected: "... <b>搜</b> 索 引 擎 ...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Restore(tt.input))
		})
	}
}

func TestRestoreInvertsSplit(t *testing.T) {
	inputs := []string{
		"中文搜索",
		"向量数据库与全文检索",
		"hello 世界",
	}

	for _, input := range inputs {
		assert.Equal(t, input, Restore(Split(input)), "round trip failed for %q", input)
	}
}

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "",
		},
		{
			name:     "balanced quotes pass through",
			input:    `"machine learning"`,
			expected: `"machine learning"`,
		},
		{
			name:     "single term",
			input:    "golang",
			expected: "golang",
		},
		{
			name:     "natural language joined with OR",
			input:    "vector database search",
			expected: "vector OR database OR search",
		},
		{
			name:     "chinese split into unigrams",
			input:    "中文搜索",
			expected: "中 OR 文 OR 搜 OR 索",
		},
		{
			name:     "metacharacters stripped",
			input:    "foo* (bar) [baz]",
			expected: "foo OR bar OR baz",
		},
		{
			name:     "unbalanced quote stripped",
			input:    `hello"world`,
			expected: "hello OR world",
		},
		{
			name:     "explicit boolean preserved",
			input:    "cats AND dogs",
			expected: "cats AND dogs",
		},
		{
			name:     "explicit NOT preserved",
			input:    "cats NOT dogs",
			expected: "cats NOT dogs",
		},
		{
			name:     "leading NOT is a plain term",
			input:    "NOT apple",
			expected: `"NOT" OR apple`,
		},
		{
			name:     "trailing operator is a plain term",
			input:    "apple AND",
			expected: `apple OR "AND"`,
		},
		{
			name:     "symbols only",
			input:    "*** ---",
			expected: "",
		},
		{
			name:     "dotted path split",
			input:    "internal.storage.engine",
			expected: "internal OR storage OR engine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeQuery(tt.input))
		})
	}
}
