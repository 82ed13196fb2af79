// Package models provides data model definitions for the Reflecta core.
package models

import "time"

// StarsMax is the upper bound for a reflection's star rating.
const StarsMax = 5

// Comment is one remark left on a reflection: the author's display name,
// the author's display color, and the remark body.
type Comment struct {
	Nick    string `json:"nick"`
	Color   string `json:"color"`
	Comment string `json:"comment"`
}

// ContentItem is one entry in a reflection's display sequence. Exactly one
// of Text or Image is set: Text holds prose, Image holds a local path or a
// wire basename for a picture.
type ContentItem struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

// IsText reports whether the item is a text item.
func (c ContentItem) IsText() bool { return c.Image == "" }

// Valid reports whether exactly one of Text/Image is populated.
func (c ContentItem) Valid() bool {
	return (c.Text == "") != (c.Image == "")
}

// Reflection is one journal-style entry: text and images the student
// collected, plus the annotations (stars, tags, comments) layered on top.
//
// Hidden is a transient display flag set by tag filtering; it is never
// persisted and never transmitted. Deleted marks a tombstone: the record
// stays in the store under its ObjID but all display content is discarded.
type Reflection struct {
	ObjID        string        `json:"obj_id"`
	Title        string        `json:"title"`
	CreationTime int64         `json:"creation_time"`
	ModTime      int64         `json:"modification_time"`
	Tags         []string      `json:"tags,omitempty"`
	Activities   []string      `json:"activities,omitempty"`
	Content      []ContentItem `json:"content,omitempty"`
	Stars        int           `json:"stars"`
	Comments     []Comment     `json:"comments,omitempty"`
	Deleted      bool          `json:"deleted,omitempty"`

	Hidden bool `json:"-"`
}

// CreationTimeTime returns CreationTime as time.Time.
func (r *Reflection) CreationTimeTime() time.Time {
	return time.Unix(r.CreationTime, 0)
}

// ModTimeTime returns ModTime as time.Time.
func (r *Reflection) ModTimeTime() time.Time {
	return time.Unix(r.ModTime, 0)
}

// Touch updates the modification timestamp. ModTime never moves backwards
// past CreationTime.
func (r *Reflection) Touch() {
	now := time.Now().Unix()
	if now < r.CreationTime {
		now = r.CreationTime
	}
	r.ModTime = now
}

// ClampStars clamps n into [0, StarsMax].
func ClampStars(n int) int {
	if n < 0 {
		return 0
	}
	if n > StarsMax {
		return StarsMax
	}
	return n
}

// NormalizeTag ensures a tag carries exactly one leading '#'. Case is
// preserved; surrounding whitespace is not expected here (the journal layer
// splits on whitespace before normalizing).
func NormalizeTag(tag string) string {
	for len(tag) > 0 && tag[0] == '#' {
		tag = tag[1:]
	}
	if tag == "" {
		return ""
	}
	return "#" + tag
}

// NormalizeTags normalizes every tag in order, dropping empties.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if n := NormalizeTag(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Tombstone discards all display content, leaving a minimal stub under the
// same ObjID so concurrent in-flight events referencing it do not crash.
func (r *Reflection) Tombstone() {
	r.Title = ""
	r.Tags = nil
	r.Activities = nil
	r.Content = nil
	r.Stars = 0
	r.Comments = nil
	r.Hidden = false
	r.Deleted = true
	r.Touch()
}

// Clone returns a deep copy of the reflection.
func (r *Reflection) Clone() *Reflection {
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	c.Activities = append([]string(nil), r.Activities...)
	c.Content = append([]ContentItem(nil), r.Content...)
	c.Comments = append([]Comment(nil), r.Comments...)
	return &c
}
