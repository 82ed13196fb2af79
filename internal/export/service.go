// Package export renders the reflection store to shareable documents.
package export

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/reflecta/backend/internal/errors"
	"github.com/reflecta/backend/internal/models"
)

// Markdown renders visible, non-deleted records to a Markdown document in
// store order.
func Markdown(records []*models.Reflection) []byte {
	var b bytes.Buffer
	b.WriteString("# Reflections\n\n")
	for _, r := range records {
		if r == nil || r.Deleted || r.Hidden {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", r.Title)
		fmt.Fprintf(&b, "*%s*", time.Unix(r.ModTime, 0).UTC().Format("2006-01-02"))
		if r.Stars > 0 {
			b.WriteString("  ")
			b.WriteString(strings.Repeat("★", r.Stars))
			b.WriteString(strings.Repeat("☆", models.StarsMax-r.Stars))
		}
		b.WriteString("\n\n")
		if len(r.Tags) > 0 {
			fmt.Fprintf(&b, "%s\n\n", strings.Join(r.Tags, " "))
		}
		for _, item := range r.Content {
			if item.IsText() {
				fmt.Fprintf(&b, "%s\n\n", item.Text)
			} else {
				fmt.Fprintf(&b, "![](%s)\n\n", item.Image)
			}
		}
		for _, c := range r.Comments {
			nick := c.Nick
			if nick == "" {
				nick = "anonymous"
			}
			fmt.Fprintf(&b, "> **%s**: %s\n\n", nick, c.Comment)
		}
	}
	return b.Bytes()
}

// HTML renders the records to an HTML fragment via goldmark.
func HTML(records []*models.Reflection) ([]byte, error) {
	var out bytes.Buffer
	if err := goldmark.Convert(Markdown(records), &out); err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "markdown conversion failed", err)
	}
	return out.Bytes(), nil
}

// WriteMarkdown writes the Markdown document to path.
func WriteMarkdown(path string, records []*models.Reflection) error {
	if err := os.WriteFile(path, Markdown(records), 0644); err != nil {
		return errors.Wrap(errors.ErrExportFailed, "cannot write export", err)
	}
	return nil
}

// WriteHTML writes the HTML document to path.
func WriteHTML(path string, records []*models.Reflection) error {
	data, err := HTML(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrExportFailed, "cannot write export", err)
	}
	return nil
}
