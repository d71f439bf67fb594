// Package ingest turns book source files into embedded vector store
// points. The pipeline per file: parse frontmatter, strip MDX syntax down
// to prose, chunk on paragraph boundaries, embed, upsert. A SQLite
// catalog of content hashes lets repeated runs skip unchanged files.
package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is one parsed source file before chunking.
type Document struct {
	Path    string
	Title   string
	Section string
	Content string
}

var (
	importExportRe = regexp.MustCompile(`(?m)^\s*(?:import|export)\s+.*?;?\s*$`)
	codeBlockRe    = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe   = regexp.MustCompile("`[^`]*`")
	htmlTagRe      = regexp.MustCompile(`<[^>]*>`)
	blankRunRe     = regexp.MustCompile(`\n\s*\n+`)
	spaceRunRe     = regexp.MustCompile(`[ \t]+`)
	headingRe      = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// frontmatter is the subset of Docusaurus page metadata the ingester
// cares about.
type frontmatter struct {
	Title        string `yaml:"title"`
	SidebarLabel string `yaml:"sidebar_label"`
}

// ParseMDX splits a raw MDX file into frontmatter metadata and cleaned
// prose. Title falls back to the first level-one heading when the
// frontmatter has none; section prefers sidebar_label, then title.
func ParseMDX(path, raw string) (Document, error) {
	fm, body, err := splitFrontmatter(raw)
	if err != nil {
		return Document{}, fmt.Errorf("parse %s: %w", path, err)
	}

	title := fm.Title
	if title == "" {
		if m := headingRe.FindStringSubmatch(body); m != nil {
			title = strings.TrimSpace(m[1])
		}
	}

	section := fm.SidebarLabel
	if section == "" {
		section = title
	}

	return Document{
		Path:    path,
		Title:   title,
		Section: section,
		Content: CleanMDX(body),
	}, nil
}

func splitFrontmatter(raw string) (frontmatter, string, error) {
	var fm frontmatter

	if !strings.HasPrefix(raw, "---\n") && !strings.HasPrefix(raw, "---\r\n") {
		return fm, raw, nil
	}

	rest := raw[strings.Index(raw, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		// Unterminated frontmatter block, treat the whole file as body.
		return fm, raw, nil
	}

	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return frontmatter{}, "", fmt.Errorf("frontmatter: %w", err)
	}

	body := rest[end+len("\n---"):]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return fm, body, nil
}

// CleanMDX strips MDX syntax down to prose: import/export statements,
// JSX and HTML tags, fenced code blocks, and inline code all go. Blank
// line runs collapse to a single paragraph break so the chunker can
// still split on paragraphs.
func CleanMDX(content string) string {
	content = importExportRe.ReplaceAllString(content, "")
	content = codeBlockRe.ReplaceAllString(content, "")
	content = inlineCodeRe.ReplaceAllString(content, "")
	content = htmlTagRe.ReplaceAllString(content, "")
	content = spaceRunRe.ReplaceAllString(content, " ")
	content = blankRunRe.ReplaceAllString(content, "\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
