// Package state persists the activity's suspend/resume blob: the full
// reflection store plus the font size setting. Transient display flags are
// not part of the blob.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/reflecta/backend/internal/errors"
	"github.com/reflecta/backend/internal/models"
)

// Font size is a step index into the presentation layer's size table.
const (
	FontSizeMin     = 0
	FontSizeMax     = 16
	DefaultFontSize = 8
)

// ActivityState is the persisted shape.
type ActivityState struct {
	FontSize    int                  `json:"font_size"`
	Reflections []*models.Reflection `json:"reflections"`
}

// NewActivityState returns an empty state with defaults.
func NewActivityState() *ActivityState {
	return &ActivityState{FontSize: DefaultFontSize}
}

// ClampFontSize clamps a font size step into its valid range.
func ClampFontSize(n int) int {
	if n < FontSizeMin {
		return FontSizeMin
	}
	if n > FontSizeMax {
		return FontSizeMax
	}
	return n
}

// Save writes the state to path atomically (write temp, rename).
func Save(path string, st *ActivityState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrInternal, "cannot marshal activity state", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrInternal, "cannot create state directory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(errors.ErrInternal, "cannot write activity state", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(errors.ErrInternal, "cannot replace activity state", err)
	}
	return nil
}

// Load reads the state from path. A missing file yields an empty default
// state; a corrupt file is an error the caller decides about.
func Load(path string) (*ActivityState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewActivityState(), nil
		}
		return nil, errors.Wrap(errors.ErrInternal, "cannot read activity state", err)
	}
	var st ActivityState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.Wrap(errors.ErrStateCorrupt, "activity state is not valid JSON", err)
	}
	st.FontSize = ClampFontSize(st.FontSize)
	for _, r := range st.Reflections {
		if r != nil {
			r.Hidden = false
		}
	}
	return &st, nil
}
