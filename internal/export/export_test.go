// Package export tests for document rendering.
package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reflecta/backend/internal/models"
)

func sampleRecords() []*models.Reflection {
	return []*models.Reflection{
		{
			ObjID:        "obj-1",
			Title:        "A rainy day",
			CreationTime: 100,
			ModTime:      1700000000,
			Stars:        3,
			Tags:         []string{"#weather", "#school"},
			Content: []models.ContentItem{
				{Text: "It rained all morning."},
				{Image: "/pics/clouds.png"},
			},
			Comments: []models.Comment{
				{Nick: "teacher", Comment: "vivid!"},
				{Comment: "me too"},
			},
		},
		{ObjID: "obj-2", Title: "Gone", Deleted: true},
		{ObjID: "obj-3", Title: "Filtered out", Hidden: true},
	}
}

// =====================================================
// Markdown Tests
// =====================================================

// TestMarkdown verifies the rendered document structure.
func TestMarkdown(t *testing.T) {
	doc := string(Markdown(sampleRecords()))

	for _, want := range []string{
		"# Reflections\n",
		"## A rainy day\n",
		"*2023-11-14*",
		"★★★☆☆",
		"#weather #school",
		"It rained all morning.",
		"![](/pics/clouds.png)",
		"> **teacher**: vivid!",
		"> **anonymous**: me too",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

// TestMarkdown_skipsInvisible verifies deleted and filtered records never
// render.
func TestMarkdown_skipsInvisible(t *testing.T) {
	doc := string(Markdown(sampleRecords()))
	if strings.Contains(doc, "Gone") {
		t.Error("deleted record rendered")
	}
	if strings.Contains(doc, "Filtered out") {
		t.Error("hidden record rendered")
	}
}

// TestMarkdown_noStars verifies unrated records carry no star line.
func TestMarkdown_noStars(t *testing.T) {
	doc := string(Markdown([]*models.Reflection{
		{ObjID: "obj-1", Title: "Unrated", ModTime: 100},
	}))
	if strings.Contains(doc, "☆") {
		t.Error("unrated record rendered stars")
	}
}

// =====================================================
// HTML Tests
// =====================================================

// TestHTML verifies the markdown converts to HTML.
func TestHTML(t *testing.T) {
	out, err := HTML(sampleRecords())
	if err != nil {
		t.Fatalf("HTML failed: %v", err)
	}
	html := string(out)
	for _, want := range []string{
		"<h1>Reflections</h1>",
		"<h2>A rainy day</h2>",
		"<blockquote>",
		`<img src="/pics/clouds.png"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q:\n%s", want, html)
		}
	}
}

// =====================================================
// File Output Tests
// =====================================================

// TestWriteMarkdownAndHTML verifies both writers produce readable files.
func TestWriteMarkdownAndHTML(t *testing.T) {
	dir := t.TempDir()

	mdPath := filepath.Join(dir, "reflections.md")
	if err := WriteMarkdown(mdPath, sampleRecords()); err != nil {
		t.Fatalf("WriteMarkdown failed: %v", err)
	}
	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(md), "## A rainy day") {
		t.Error("markdown file missing content")
	}

	htmlPath := filepath.Join(dir, "reflections.html")
	if err := WriteHTML(htmlPath, sampleRecords()); err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}
	html, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "<h2>A rainy day</h2>") {
		t.Error("html file missing content")
	}
}
