// Package store owns the ordered in-memory collection of reflections.
//
// The store is the sole owner of record mutation and tombstoning; every
// other component reads and writes through it. It carries no locks: all
// access is serialized onto the session loop, so no two mutations ever run
// concurrently by construction.
package store

import (
	"sort"
	"strings"
	"time"

	"github.com/reflecta/backend/internal/models"
	"github.com/reflecta/backend/internal/objid"
)

// DefaultTitle is the title given to records that arrive without one.
const DefaultTitle = "Untitled"

// SortOrder selects a display ordering for Reordered.
type SortOrder string

const (
	SortByTitle    SortOrder = "title"
	SortByModified SortOrder = "modified"
	SortByStars    SortOrder = "stars"
)

// Store holds the ordered sequence of reflections.
type Store struct {
	records []*models.Reflection
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Len returns the number of records, tombstones included.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns the records in store order. The slice is a copy; the
// records are the live ones.
func (s *Store) Records() []*models.Reflection {
	return append([]*models.Reflection(nil), s.records...)
}

// Find returns the record with the given object id. Linear scan; the
// collection is small (one student's journal).
func (s *Store) Find(objID string) (*models.Reflection, bool) {
	for _, r := range s.records {
		if r.ObjID == objID {
			return r, true
		}
	}
	return nil, false
}

// InsertFront inserts a record at the top of the store. Records created in
// the activity, locally or by a peer, appear first. Returns false if the
// object id is already present.
func (s *Store) InsertFront(r *models.Reflection) bool {
	if _, ok := s.Find(r.ObjID); ok {
		return false
	}
	s.records = append([]*models.Reflection{r}, s.records...)
	return true
}

// NewLocal creates a reflection with a fresh local object id and inserts it
// at the top of the store.
func (s *Store) NewLocal(title string) *models.Reflection {
	if title == "" {
		title = DefaultTitle
	}
	now := time.Now().Unix()
	r := &models.Reflection{
		ObjID:        objid.New(),
		Title:        title,
		CreationTime: now,
		ModTime:      now,
	}
	s.InsertFront(r)
	return r
}

// AppendFromJournal appends an already-normalized journal record at the
// back of the store. Import is idempotent: an object id that is already
// present is skipped.
func (s *Store) AppendFromJournal(r *models.Reflection) bool {
	if _, ok := s.Find(r.ObjID); ok {
		return false
	}
	if r.Title == "" {
		r.Title = DefaultTitle
	}
	if r.ModTime < r.CreationTime {
		r.ModTime = r.CreationTime
	}
	r.Stars = models.ClampStars(r.Stars)
	r.Tags = models.NormalizeTags(r.Tags)
	s.records = append(s.records, r)
	return true
}

// Tombstone replaces the record's contents with a deletion stub, keeping
// its position so in-flight events referencing the id still resolve.
// A missing id is a silent no-op; re-tombstoning is a no-op.
func (s *Store) Tombstone(objID string) {
	r, ok := s.Find(objID)
	if !ok || r.Deleted {
		return
	}
	r.Tombstone()
}

// Reordered returns the records in the requested order without mutating
// the store's own ordering. Used for display only.
func (s *Store) Reordered(order SortOrder) []*models.Reflection {
	out := s.Records()
	switch order {
	case SortByTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case SortByModified:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ModTime > out[j].ModTime
		})
	case SortByStars:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Stars > out[j].Stars
		})
	}
	return out
}

// FilterByTags hides every record whose tags do not intersect the given
// set. An empty set un-hides everything. Returns the number of visible
// records.
func (s *Store) FilterByTags(tags []string) int {
	want := map[string]bool{}
	for _, t := range models.NormalizeTags(tags) {
		want[t] = true
	}
	visible := 0
	for _, r := range s.records {
		if len(want) == 0 {
			r.Hidden = false
			visible++
			continue
		}
		r.Hidden = true
		for _, t := range r.Tags {
			if want[t] {
				r.Hidden = false
				visible++
				break
			}
		}
	}
	return visible
}

// SetTitle sets the record's title.
func (s *Store) SetTitle(objID, title string) (*models.Reflection, bool) {
	r, ok := s.Find(objID)
	if !ok {
		return nil, false
	}
	r.Title = title
	r.Touch()
	return r, true
}

// SetStars sets the record's star rating, clamped into [0,5].
func (s *Store) SetStars(objID string, stars int) (*models.Reflection, bool) {
	r, ok := s.Find(objID)
	if !ok {
		return nil, false
	}
	r.Stars = models.ClampStars(stars)
	r.Touch()
	return r, true
}

// SetTags replaces the record's tags wholesale, normalized.
func (s *Store) SetTags(objID string, tags []string) (*models.Reflection, bool) {
	r, ok := s.Find(objID)
	if !ok {
		return nil, false
	}
	r.Tags = models.NormalizeTags(tags)
	r.Touch()
	return r, true
}

// AddActivity appends an activity reference. Duplicates are permitted.
func (s *Store) AddActivity(objID, bundleID string) (*models.Reflection, bool) {
	r, ok := s.Find(objID)
	if !ok {
		return nil, false
	}
	r.Activities = append(r.Activities, bundleID)
	r.Touch()
	return r, true
}

// AddComment appends a comment.
func (s *Store) AddComment(objID string, c models.Comment) (*models.Reflection, bool) {
	r, ok := s.Find(objID)
	if !ok {
		return nil, false
	}
	r.Comments = append(r.Comments, c)
	r.Touch()
	return r, true
}

// AppendText appends a text content item. Empty text is rejected so every
// content item stays exactly one of text or image.
func (s *Store) AppendText(objID, text string) (*models.Reflection, bool) {
	if text == "" {
		return nil, false
	}
	r, ok := s.Find(objID)
	if !ok {
		return nil, false
	}
	r.Content = append(r.Content, models.ContentItem{Text: text})
	r.Touch()
	return r, true
}

// AppendImage appends an image content item referencing a local path.
func (s *Store) AppendImage(objID, path string) (*models.Reflection, bool) {
	r, ok := s.Find(objID)
	if !ok {
		return nil, false
	}
	r.Content = append(r.Content, models.ContentItem{Image: path})
	r.Touch()
	return r, true
}

// EditText edits an existing text item in place. Content is otherwise
// append-only; image items cannot be edited.
func (s *Store) EditText(objID string, index int, text string) (*models.Reflection, bool) {
	r, ok := s.Find(objID)
	if !ok {
		return nil, false
	}
	if index < 0 || index >= len(r.Content) || !r.Content[index].IsText() {
		return nil, false
	}
	r.Content[index].Text = text
	r.Touch()
	return r, true
}

// Snapshot returns a deep copy of every record in store order, with
// transient hidden flags cleared. This is the shape that goes over the
// wire at bootstrap and into the persisted activity state.
func (s *Store) Snapshot() []*models.Reflection {
	out := make([]*models.Reflection, 0, len(s.records))
	for _, r := range s.records {
		c := r.Clone()
		c.Hidden = false
		out = append(out, c)
	}
	return out
}

// Replace swaps the store's contents wholesale. Used when the bootstrap
// snapshot arrives and when resuming persisted state.
func (s *Store) Replace(records []*models.Reflection) {
	s.records = make([]*models.Reflection, 0, len(records))
	seen := map[string]bool{}
	for _, r := range records {
		if r == nil || r.ObjID == "" || seen[r.ObjID] {
			continue
		}
		seen[r.ObjID] = true
		s.records = append(s.records, r.Clone())
	}
}
