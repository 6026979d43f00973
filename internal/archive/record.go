package archive

import "github.com/tidwall/gjson"

// maxExcerptLen bounds the slice of offending text carried inside a
// ParseError, keeping error payloads and logs small.
const maxExcerptLen = 120

// ParseRecord parses one JSONL line as a JSON value. index is the
// 0-based session index of the line, carried into the error when the
// text is not syntactically valid JSON.
func ParseRecord(index int, text string) (gjson.Result, error) {
	if !gjson.Valid(text) {
		return gjson.Result{}, &ParseError{
			Line:    index,
			Excerpt: excerpt(text),
		}
	}
	return gjson.Parse(text), nil
}

func excerpt(s string) string {
	if len(s) <= maxExcerptLen {
		return s
	}
	// Cut on a rune boundary so the excerpt stays valid UTF-8.
	cut := maxExcerptLen
	for cut > 0 && s[cut]&0xc0 == 0x80 {
		cut--
	}
	return s[:cut] + "..."
}
