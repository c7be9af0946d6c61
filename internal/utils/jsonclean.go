// internal/utils/jsonclean.go
package utils

import (
	"strings"
	"unicode"
)

// 清理LLM返回文本中的噪声：Markdown代码块、BOM、特殊空白
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```JSON", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

// 全角或排版标点映射为JSON结构标点
var structuralPunctuationMap = map[rune]rune{
	'：': ':',
	'，': ',',
	'［': '[',
	'］': ']',
	'｛': '{',
	'｝': '}',
}

// 引号对，键为开引号，值为对应的闭引号
var quotePairs = map[rune]rune{
	'“': '”',
	'”': '”',
	'„': '”',
	'«': '»',
}

// normalizeJSONStructure rewrites typographic quotes and punctuation outside
// string literals into their ASCII JSON equivalents and drops stray
// non-ASCII symbols between tokens.
func normalizeJSONStructure(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	closing := '"'

	for _, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == closing || r == '"':
				inString = false
				closing = '"'
				b.WriteRune('"')
				continue
			}
			b.WriteRune(r)
			continue
		}

		if replacement, ok := structuralPunctuationMap[r]; ok {
			r = replacement
		} else if end, ok := quotePairs[r]; ok {
			inString = true
			closing = end
			b.WriteRune('"')
			continue
		} else if r == '"' {
			inString = true
			closing = '"'
		} else if r > unicode.MaxASCII && !unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CleanLLMJSON strips everything around the first balanced JSON object or
// array in raw: code fences, prose before the opening brace, trailing
// commentary after the matching close.
func CleanLLMJSON(raw string) string {
	s := jsonNoiseReplacer.Replace(raw)
	s = strings.TrimSpace(s)

	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	s = normalizeJSONStructure(strings.TrimSpace(s[start:]))
	if s == "" {
		return s
	}

	open, close := byte('{'), byte('}')
	if s[0] == '[' {
		open, close = '[', ']'
	}

	balance := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		if c == open {
			balance++
		} else if c == close {
			balance--
			if balance == 0 {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	// 未找到匹配的结束符，退回到最后一个结束符
	if end := strings.LastIndexByte(s, close); end >= 0 {
		return strings.TrimSpace(s[:end+1])
	}
	return strings.TrimSpace(s)
}

// SplitJSONStrings splits s into alternating segments outside and inside
// string literals. Even indexes are outside strings, odd indexes are the
// literals including their quotes.
func SplitJSONStrings(s string) []string {
	var parts []string
	var cur strings.Builder
	inString := false
	escaped := false

	for _, r := range s {
		if inString {
			cur.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				parts = append(parts, cur.String())
				cur.Reset()
				inString = false
			}
			continue
		}
		if r == '"' {
			parts = append(parts, cur.String())
			cur.Reset()
			cur.WriteRune(r)
			inString = true
			continue
		}
		cur.WriteRune(r)
	}
	parts = append(parts, cur.String())
	return parts
}
