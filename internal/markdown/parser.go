// Package markdown reads markdown documents that carry YAML or TOML frontmatter.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/frontmatter"
)

// Document is a markdown source split into its frontmatter and body.
type Document struct {
	Meta map[string]any
	Body string
}

type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			&frontmatter.Extender{},
		),
	)

	return &Parser{
		md: md,
	}
}

// ParseDocument extracts the frontmatter into Meta and returns the remaining
// source untouched as Body.
func (p *Parser) ParseDocument(source []byte) (*Document, error) {
	meta, err := p.extractFrontmatter(source)
	if err != nil {
		return nil, err
	}

	return &Document{
		Meta: meta,
		Body: string(bytes.TrimSpace(stripFrontmatter(source))),
	}, nil
}

func (p *Parser) extractFrontmatter(source []byte) (map[string]any, error) {
	context := parser.NewContext()
	p.md.Parser().Parse(text.NewReader(source), parser.WithContext(context))

	meta := make(map[string]any)
	data := frontmatter.Get(context)
	if data == nil {
		return meta, nil
	}

	err := data.Decode(&meta)
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// stripFrontmatter drops a leading block delimited by "---" (YAML) or "+++"
// (TOML) lines.
func stripFrontmatter(source []byte) []byte {
	for _, delim := range [][]byte{[]byte("---"), []byte("+++")} {
		if !bytes.HasPrefix(source, delim) {
			continue
		}

		rest := source[len(delim):]
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
			return source
		}
		rest = rest[nl+1:]

		for len(rest) > 0 {
			line := rest
			next := []byte(nil)
			if i := bytes.IndexByte(rest, '\n'); i >= 0 {
				line, next = rest[:i], rest[i+1:]
			}
			if bytes.Equal(bytes.TrimSpace(line), delim) {
				return next
			}
			rest = next
		}
		return source
	}
	return source
}

// MetaString returns meta[key] as a string, or def when absent.
func (d *Document) MetaString(key, def string) string {
	if v, ok := d.Meta[key].(string); ok && v != "" {
		return v
	}
	return def
}

// MetaFloat returns meta[key] as a float64, or def when absent.
func (d *Document) MetaFloat(key string, def float64) float64 {
	switch v := d.Meta[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return def
}
