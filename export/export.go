// Package export saves lead reports as documents.
package export

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/smallnest/leadgraph/lead"
)

// Link points at an exported document and the folder holding it.
type Link struct {
	Document string
	Folder   string
}

// Exporter stores a report in a named folder.
type Exporter interface {
	Export(ctx context.Context, folder string, report lead.Report) (Link, error)
}

// LocalDir writes reports below Root. Markdown reports become a .md source
// plus a sanitized .html rendering; plain reports become .txt files. Links
// are file:// URLs.
type LocalDir struct {
	Root string
}

var _ Exporter = (*LocalDir)(nil)

// NewLocalDir creates an exporter writing below root.
func NewLocalDir(root string) *LocalDir {
	return &LocalDir{Root: root}
}

// Export implements Exporter.
func (d *LocalDir) Export(ctx context.Context, folder string, report lead.Report) (Link, error) {
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}
	dir, err := filepath.Abs(filepath.Join(d.Root, SafeName(folder)))
	if err != nil {
		return Link{}, fmt.Errorf("failed to resolve folder: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Link{}, fmt.Errorf("failed to create folder: %w", err)
	}

	base := filepath.Join(dir, SafeName(report.Title))
	var doc string
	if report.Markdown {
		if err := os.WriteFile(base+".md", []byte(report.Content), 0o644); err != nil {
			return Link{}, fmt.Errorf("failed to write %s: %w", report.Title, err)
		}
		doc = base + ".html"
		if err := os.WriteFile(doc, []byte(Page(report.Title, report.Content)), 0o644); err != nil {
			return Link{}, fmt.Errorf("failed to write %s: %w", report.Title, err)
		}
	} else {
		doc = base + ".txt"
		if err := os.WriteFile(doc, []byte(report.Content), 0o644); err != nil {
			return Link{}, fmt.Errorf("failed to write %s: %w", report.Title, err)
		}
	}
	return Link{Document: fileURL(doc), Folder: fileURL(dir)}, nil
}

// RenderHTML converts markdown to sanitized HTML.
func RenderHTML(md string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	htmlFlags := mdhtml.CommonFlags | mdhtml.HrefTargetBlank
	opts := mdhtml.RendererOptions{Flags: htmlFlags}
	renderer := mdhtml.NewRenderer(opts)
	out := markdown.Render(doc, renderer)

	return string(bluemonday.UGCPolicy().SanitizeBytes(out))
}

// Page renders a complete HTML document for a markdown report.
func Page(title, md string) string {
	return fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(title), RenderHTML(md))
}

// SafeName makes s usable as a file or folder name.
func SafeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < ' ' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.Trim(s, ". ")
	if s == "" {
		return "untitled"
	}
	return s
}

func fileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}
