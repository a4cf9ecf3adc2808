// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package stage

import (
	"bytes"
	"text/template"
)

// prompt pairs the system persona with the user prompt template for a stage.
type prompt struct {
	persona string
	user    *template.Template
}

var prompts = map[string]prompt{
	Outline: {
		persona: "You are a helpful research assistant.",
		user: template.Must(template.New(Outline).Parse(
			`You are a world-class academic researcher. Develop a comprehensive plan for a research paper on the topic: '{{.Topic}}'. ` +
				`Include title, abstract points, keywords, sections, diagrams, tables, mathematical areas, and key sources. Format as JSON.`)),
	},
	Template: {
		persona: "You are a helpful LaTeX expert.",
		user: template.Must(template.New(Template).Parse(
			`You are an expert in LaTeX. Based on this research outline: {{.Outline}}, ` +
				`create a LaTeX template with document class, packages, styling, and bibliography style. Format as JSON.`)),
	},
	Content: {
		persona: "You are a helpful research paper writer.",
		user: template.Must(template.New(Content).Parse(
			`You are a world-class academic researcher. Write a complete research paper based on this outline: {{.Outline}} ` +
				`and LaTeX template: {{.Template}}. Return ONLY the complete LaTeX code.`)),
	},
	Citations: {
		persona: "You are a helpful citation expert.",
		user: template.Must(template.New(Citations).Parse(
			`You are an expert in academic citation. Review this LaTeX paper: {{.Document}} ` +
				`and enhance its citations and references. Return the complete LaTeX document.`)),
	},
	Diagrams: {
		persona: "You are a helpful visualization expert.",
		user: template.Must(template.New(Diagrams).Parse(
			`You are an expert in scientific visualization. Review this LaTeX paper: {{.Document}} ` +
				`and enhance its diagrams and visualizations. Return the complete LaTeX document.`)),
	},
	Polish: {
		persona: "You are a helpful LaTeX editor.",
		user: template.Must(template.New(Polish).Parse(
			`You are a meticulous academic editor and LaTeX expert. Review this LaTeX paper: {{.Document}} ` +
				`and perform final polishing. Return the complete, finalized LaTeX document.`)),
	},
}

// promptData is the value every stage template executes against. Outline and
// Template are pre-rendered indented JSON.
type promptData struct {
	Topic    string
	Outline  string
	Template string
	Document string
}

// renderPrompt executes the named stage's user template.
func renderPrompt(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts[name].user.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
