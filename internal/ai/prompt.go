package ai

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/doglog/doglog/internal/markdown"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Prompt is a user message template with its system message and sampling
// settings taken from the file's frontmatter.
type Prompt struct {
	Name        string
	System      string
	Temperature float64

	tmpl *template.Template
}

// LoadPrompt reads prompts/<name>.md.
func LoadPrompt(name string) (*Prompt, error) {
	source, err := promptFS.ReadFile("prompts/" + name + ".md")
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt %s: %w", name, err)
	}

	doc, err := markdown.NewParser().ParseDocument(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", name, err)
	}

	return &Prompt{
		Name:        doc.MetaString("name", name),
		System:      doc.MetaString("system", ""),
		Temperature: doc.MetaFloat("temperature", 0.2),
		tmpl:        tmpl,
	}, nil
}

func (p *Prompt) Render(data any) (string, error) {
	var b strings.Builder
	err := p.tmpl.Execute(&b, data)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", p.Name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
