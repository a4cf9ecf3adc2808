// Package fence extracts Markdown fenced code blocks from free-form model
// replies.
package fence

import (
	"regexp"
	"strings"
)

// Language tags recognised by the stages.
const (
	JSON  = "json"
	LaTeX = "latex"
)

// aliases lists extra info-string tags accepted for a language.
var aliases = map[string][]string{
	LaTeX: {"tex"},
}

// blockPattern matches ``` plus an optional info string, any whitespace, and
// the body through the next closing ```. The body may start on the opening
// line. It is captured lazily so the first closing fence ends the block.
var blockPattern = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)(\\s*)(.*?)```")

// Extract returns the contents of the first fenced block whose info string is
// lang (case-insensitive), one of its aliases, or empty. Surrounding prose is
// discarded and the body is trimmed. ok is false when no such block exists,
// including when the only fence is never closed.
func Extract(text, lang string) (body string, ok bool) {
	for _, m := range blockPattern.FindAllStringSubmatch(text, -1) {
		tag, sep, content := m[1], m[2], m[3]
		// ```json``` is a mention of the tag, not a block.
		if sep == "" && content == "" {
			continue
		}
		if accepts(lang, tag) {
			return strings.TrimSpace(content), true
		}
	}
	return "", false
}

func accepts(lang, tag string) bool {
	if tag == "" {
		return true
	}
	tag = strings.ToLower(tag)
	if tag == lang {
		return true
	}
	for _, a := range aliases[lang] {
		if tag == a {
			return true
		}
	}
	return false
}
