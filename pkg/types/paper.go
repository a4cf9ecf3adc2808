// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Record is a semi-structured JSON object returned by the model. Its shape is
// whatever the model chose to produce; callers must not assume any key exists.
type Record map[string]any

// Fallback keys used when a model reply cannot be parsed as a JSON object.
const (
	RawOutlineKey  = "raw_outline"
	RawTemplateKey = "raw_template"
)

// Outline is the paper plan produced by the outline stage: title, abstract
// points, keywords, sections, diagrams, tables, math areas, key sources.
type Outline = Record

// Template holds LaTeX formatting directives produced by the template stage:
// document class, packages, styling, bibliography style.
type Template = Record

// Raw returns the fallback text stored under key, if the record is a fallback.
func (r Record) Raw(key string) (string, bool) {
	if len(r) != 1 {
		return "", false
	}
	s, ok := r[key].(string)
	return s, ok
}

// Title returns the record's "title" field when it is a string.
func (r Record) Title() string {
	s, _ := r["title"].(string)
	return s
}

// CacheEntry is one persisted generation result.
type CacheEntry struct {
	// Topic is the exact topic text the document was generated for.
	Topic string `json:"topic" yaml:"topic"`

	// Document is the generated LaTeX body.
	Document string `json:"document" yaml:"document"`

	// Timestamp is when the entry was written.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
