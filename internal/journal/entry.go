package journal

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/reflecta/backend/internal/logging"
	"github.com/reflecta/backend/internal/models"
)

// Entry is one journal entry as the host exposes it: an object id plus a
// loosely-typed metadata mapping and an optional file path.
type Entry struct {
	ObjectID string
	Metadata map[string]string
	FilePath string
}

// jsonComment is the journal's on-disk comment shape.
type jsonComment struct {
	From      string `json:"from"`
	Message   string `json:"message"`
	IconColor string `json:"icon-color"`
}

// Normalize converts a journal entry into a reflection record. Every field
// is recovered individually: a malformed field falls back to its default
// and never aborts the rest of the entry.
func Normalize(e Entry) *models.Reflection {
	r := &models.Reflection{
		ObjID: e.ObjectID,
		Title: e.Metadata["title"],
	}

	r.CreationTime = parseTimestamp(e.Metadata["creation_time"], 0)
	if r.CreationTime == 0 {
		r.CreationTime = time.Now().Unix()
	}
	r.ModTime = parseTimestamp(e.Metadata["timestamp"], r.CreationTime)

	if desc := e.Metadata["description"]; desc != "" {
		r.Content = append(r.Content, models.ContentItem{Text: desc})
	}

	if act := e.Metadata["activity"]; act != "" {
		r.Activities = append(r.Activities, act)
	}

	if tags := e.Metadata["tags"]; tags != "" {
		r.Tags = models.NormalizeTags(strings.Fields(tags))
	}

	r.Comments = parseComments(e.ObjectID, e.Metadata["comments"])

	if path := imagePath(e); path != "" {
		r.Content = append(r.Content, models.ContentItem{Image: path})
	}

	return r
}

// parseTimestamp parses a seconds timestamp, falling back on garbage.
func parseTimestamp(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// parseComments parses the journal's comment blob. The journal has carried
// two shapes over time: structured {from,message,icon-color} objects and
// bare strings. Both are accepted; anything else yields no comments.
func parseComments(objectID, blob string) []models.Comment {
	if blob == "" {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		logging.Warn("dropping malformed journal comments",
			map[string]interface{}{"object_id": objectID})
		return nil
	}

	var out []models.Comment
	for _, item := range raw {
		var jc jsonComment
		if err := json.Unmarshal(item, &jc); err == nil && jc.Message != "" {
			out = append(out, models.Comment{
				Nick:    jc.From,
				Color:   jc.IconColor,
				Comment: jc.Message,
			})
			continue
		}
		var plain string
		if err := json.Unmarshal(item, &plain); err == nil && plain != "" {
			out = append(out, models.Comment{Comment: plain})
		}
	}
	return out
}

// imagePath returns the entry's image path if the entry carries an image:
// either the metadata says so, or sniffing the file does.
func imagePath(e Entry) string {
	if e.FilePath == "" {
		return ""
	}
	if strings.HasPrefix(e.Metadata["mime_type"], "image") {
		return e.FilePath
	}
	if e.Metadata["mime_type"] != "" {
		return ""
	}
	mt, err := mimetype.DetectFile(e.FilePath)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(mt.String(), "image/") {
		return e.FilePath
	}
	return ""
}
