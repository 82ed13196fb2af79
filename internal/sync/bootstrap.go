package sync

import (
	"path/filepath"

	"github.com/reflecta/backend/internal/logging"
	"github.com/reflecta/backend/internal/media"
	"github.com/reflecta/backend/internal/models"
	"github.com/reflecta/backend/internal/wire"
)

// sendBootstrap is the initiator's answer to a JOIN: one PICTURE event per
// image content item (store order, then content order within a record),
// then one SHARE carrying the full snapshot. Channel FIFO plus this send
// order is what lets the joiner resolve every image when the snapshot
// lands; the manifest in the SHARE makes the dependency explicit.
func (d *Dispatcher) sendBootstrap() {
	refs := map[string]wire.PictureRef{} // local path -> wire reference

	for _, r := range d.store.Records() {
		for _, item := range r.Content {
			if item.IsText() {
				continue
			}
			if _, done := refs[item.Image]; done {
				continue
			}
			data, err := media.Downsize(item.Image)
			if err != nil {
				// this item is omitted from sharing, the rest still goes
				logging.Error("skipping unreadable image during bootstrap", err,
					map[string]interface{}{"obj_id": r.ObjID, "path": item.Image})
				continue
			}
			ref := wire.PictureRef{
				Basename: filepath.Base(item.Image),
				SHA256:   media.Hash(data),
			}
			refs[item.Image] = ref
			d.broadcast(wire.Picture{Basename: ref.Basename, SHA256: ref.SHA256, Data: data})
		}
	}

	records := make([]*models.Reflection, 0, d.store.Len())
	manifest := make([]wire.PictureRef, 0, len(refs))
	seen := map[string]bool{}
	for _, r := range d.store.Snapshot() {
		records = append(records, snapshotForWire(r, refs))
	}
	for _, r := range d.store.Records() {
		for _, item := range r.Content {
			if item.IsText() {
				continue
			}
			if ref, ok := refs[item.Image]; ok && !seen[ref.SHA256] {
				seen[ref.SHA256] = true
				manifest = append(manifest, ref)
			}
		}
	}

	d.broadcast(wire.Share{Records: records, Manifest: manifest})
	logging.Info("bootstrap snapshot sent",
		map[string]interface{}{"records": len(records), "pictures": len(manifest)})
}

// snapshotForWire rewrites a record clone for transmission: image content
// items point at wire basenames instead of local paths. Items whose bytes
// could not be shipped are dropped from the wire copy.
func snapshotForWire(r *models.Reflection, refs map[string]wire.PictureRef) *models.Reflection {
	c := r.Clone()
	c.Hidden = false
	if len(c.Content) == 0 {
		return c
	}
	content := make([]models.ContentItem, 0, len(c.Content))
	for _, item := range c.Content {
		if item.IsText() {
			content = append(content, item)
			continue
		}
		if refs == nil {
			content = append(content, models.ContentItem{Image: filepath.Base(item.Image)})
			continue
		}
		ref, ok := refs[item.Image]
		if !ok {
			continue
		}
		content = append(content, models.ContentItem{Image: ref.Basename})
	}
	c.Content = content
	return c
}

// applyShare replaces the joiner's store wholesale and ends the waiting
// state. Only meaningful to a joiner still awaiting bootstrap.
func (d *Dispatcher) applyShare(e wire.Share) {
	if !d.waiting.Load() {
		logging.Debug("ignoring share snapshot, not awaiting bootstrap")
		return
	}

	byBasename := map[string]string{} // basename -> sha256
	for _, ref := range e.Manifest {
		byBasename[ref.Basename] = ref.SHA256
		if !d.pictures.Has(ref.Basename, ref.SHA256) {
			logging.Warn("share manifest names a picture that never landed",
				map[string]interface{}{"basename": ref.Basename})
		}
	}

	records := make([]*models.Reflection, 0, len(e.Records))
	for _, r := range e.Records {
		c := r.Clone()
		content := make([]models.ContentItem, 0, len(c.Content))
		for _, item := range c.Content {
			if item.IsText() {
				content = append(content, item)
				continue
			}
			path, err := d.pictures.Resolve(item.Image, byBasename[item.Image])
			if err != nil {
				// omit just this item, keep the record
				logging.Warn("omitting image with missing bytes",
					map[string]interface{}{"obj_id": c.ObjID, "basename": item.Image})
				continue
			}
			content = append(content, models.ContentItem{Image: path})
		}
		c.Content = content
		records = append(records, c)
	}

	d.store.Replace(records)
	d.waiting.Store(false)
	d.notifier.Waiting(false)
	d.notifier.StoreReplaced()
	logging.Info("bootstrap complete",
		map[string]interface{}{"records": len(records)})
}
