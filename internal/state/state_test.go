// Package state tests for the suspend/resume blob.
package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/reflecta/backend/internal/errors"
	"github.com/reflecta/backend/internal/models"
)

// =====================================================
// Round-trip Tests
// =====================================================

// TestSaveLoad_roundTrip verifies a saved state loads back identically.
func TestSaveLoad_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity_state.json")

	st := &ActivityState{
		FontSize: 10,
		Reflections: []*models.Reflection{
			{
				ObjID:        "obj-1",
				Title:        "Day one",
				CreationTime: 100,
				ModTime:      120,
				Stars:        3,
				Tags:         []string{"#art"},
				Activities:   []string{"org.example.Paint"},
				Content:      []models.ContentItem{{Text: "it rained"}},
				Comments:     []models.Comment{{Nick: "peer", Color: "#00AA00", Comment: "same here"}},
			},
			{
				ObjID:        "obj-2",
				CreationTime: 50,
				ModTime:      50,
				Deleted:      true,
			},
		},
	}
	if err := Save(path, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, st) {
		t.Errorf("round trip changed the state:\n got %+v\nwant %+v", got, st)
	}
}

// TestSave_hiddenNotPersisted verifies the transient display flag never
// reaches disk.
func TestSave_hiddenNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity_state.json")

	st := NewActivityState()
	st.Reflections = []*models.Reflection{
		{ObjID: "obj-1", Title: "hidden at save time", CreationTime: 1, ModTime: 1, Hidden: true},
	}
	if err := Save(path, st); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Reflections[0].Hidden {
		t.Error("hidden flag survived a save/load cycle")
	}
}

// TestSave_atomic verifies no temp file is left behind.
func TestSave_atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activity_state.json")

	if err := Save(path, NewActivityState()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}

// =====================================================
// Load Edge Cases
// =====================================================

// TestLoad_missingFile verifies a fresh start yields defaults.
func TestLoad_missingFile(t *testing.T) {
	st, err := Load(filepath.Join(t.TempDir(), "nothing.json"))
	if err != nil {
		t.Fatalf("missing file errored: %v", err)
	}
	if st.FontSize != DefaultFontSize {
		t.Errorf("font size = %d, want default %d", st.FontSize, DefaultFontSize)
	}
	if len(st.Reflections) != 0 {
		t.Errorf("fresh state has %d records", len(st.Reflections))
	}
}

// TestLoad_corruptFile verifies corruption is surfaced, not swallowed.
func TestLoad_corruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); !apperrors.Is(err, apperrors.ErrStateCorrupt) {
		t.Errorf("corrupt file error = %v, want %s", err, apperrors.ErrStateCorrupt)
	}
}

// TestLoad_clampsFontSize verifies out-of-range persisted sizes are pulled
// back into range.
func TestLoad_clampsFontSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity_state.json")
	if err := os.WriteFile(path, []byte(`{"font_size": 99, "reflections": []}`), 0644); err != nil {
		t.Fatal(err)
	}

	st, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.FontSize != FontSizeMax {
		t.Errorf("font size = %d, want clamped %d", st.FontSize, FontSizeMax)
	}
}

// TestClampFontSize table.
func TestClampFontSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-1, FontSizeMin},
		{0, 0},
		{8, 8},
		{16, 16},
		{17, FontSizeMax},
	}
	for _, tt := range tests {
		if got := ClampFontSize(tt.in); got != tt.want {
			t.Errorf("ClampFontSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
