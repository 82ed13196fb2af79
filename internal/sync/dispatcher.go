package sync

import (
	"encoding/json"
	"path/filepath"
	"sync/atomic"

	"github.com/reflecta/backend/internal/logging"
	"github.com/reflecta/backend/internal/media"
	"github.com/reflecta/backend/internal/models"
	"github.com/reflecta/backend/internal/objid"
	"github.com/reflecta/backend/internal/session"
	"github.com/reflecta/backend/internal/store"
	"github.com/reflecta/backend/internal/wire"
)

// JournalWriter writes edited metadata back to the journal, fire and
// forget. Satisfied by journal.Repository.
type JournalWriter interface {
	UpdateAsync(objectID string, meta map[string]string, done func(error))
}

// Dispatcher owns steady-state event flow in both directions. Inbound
// frames and outbound mutations all run on the session loop, so the store
// is never touched concurrently.
//
// Delivery is at-most-effort: an event referencing an unknown record is
// logged and dropped, never queued or retried.
type Dispatcher struct {
	store    *store.Store
	sess     *session.Session
	pictures *media.PictureStore
	notifier Notifier
	journal  JournalWriter // optional

	// identity stamped onto locally authored comments
	nick  string
	color string

	// joiner-side bootstrap state, readable off the loop
	waiting atomic.Bool
}

// NewDispatcher wires the dispatcher. journal may be nil when the activity
// runs without a host journal (tests, ephemeral sessions).
func NewDispatcher(st *store.Store, sess *session.Session, pictures *media.PictureStore, notifier Notifier, journal JournalWriter) *Dispatcher {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Dispatcher{
		store:    st,
		sess:     sess,
		pictures: pictures,
		notifier: notifier,
		journal:  journal,
	}
}

// Run starts the session loop and, for a joiner, opens the bootstrap
// exchange. Blocks only until the loop is started.
func (d *Dispatcher) Run() error {
	if err := d.sess.Start(d.handleFrame); err != nil {
		return err
	}
	if d.sess.Role() == session.RoleJoiner {
		d.waiting.Store(true)
		d.notifier.Waiting(true)
		d.broadcast(wire.Join{})
	}
	return nil
}

// SetIdentity records the nick and color stamped onto comments authored
// through CommentText.
func (d *Dispatcher) SetIdentity(nick, color string) {
	d.nick = nick
	d.color = color
}

// Waiting reports whether the joiner is still blocked on the snapshot.
func (d *Dispatcher) Waiting() bool { return d.waiting.Load() }

// Do schedules a local operation onto the session loop.
func (d *Dispatcher) Do(fn func()) { d.sess.Do(fn) }

// broadcast encodes and sends one event. Encoding failures are a local
// bug surface: logged and dropped.
func (d *Dispatcher) broadcast(ev wire.Event) {
	frame, err := wire.Encode(ev)
	if err != nil {
		logging.Error("cannot encode outbound event", err,
			map[string]interface{}{"command": string(ev.Command())})
		return
	}
	d.sess.Broadcast(frame)
}

// handleFrame decodes and applies one inbound frame. Runs on the session
// loop. Exactly one mutation per event, then one presentation
// notification for the affected record.
func (d *Dispatcher) handleFrame(frame []byte) {
	ev, err := wire.Decode(frame)
	if err != nil {
		logging.Warn("dropping undecodable event",
			map[string]interface{}{"error": err.Error()})
		return
	}

	switch e := ev.(type) {
	case wire.NewReflection:
		d.applyNewReflection(e)
	case wire.Title:
		if r, ok := d.store.SetTitle(e.ObjID, e.Title); ok {
			d.notifier.RecordChanged(r)
		} else {
			d.dropUnknown(ev, e.ObjID)
		}
	case wire.Star:
		if r, ok := d.store.SetStars(e.ObjID, e.Stars); ok {
			d.notifier.RecordChanged(r)
		} else {
			d.dropUnknown(ev, e.ObjID)
		}
	case wire.Tags:
		if r, ok := d.store.SetTags(e.ObjID, e.Tags); ok {
			d.notifier.RecordChanged(r)
		} else {
			d.dropUnknown(ev, e.ObjID)
		}
	case wire.Activity:
		if r, ok := d.store.AddActivity(e.ObjID, e.BundleID); ok {
			d.notifier.RecordChanged(r)
		} else {
			d.dropUnknown(ev, e.ObjID)
		}
	case wire.Comment:
		c := models.Comment{Nick: e.Nick, Color: e.Color, Comment: e.Comment}
		if r, ok := d.store.AddComment(e.ObjID, c); ok {
			d.notifier.RecordChanged(r)
		} else {
			d.dropUnknown(ev, e.ObjID)
		}
	case wire.Text:
		if r, ok := d.store.AppendText(e.ObjID, e.Text); ok {
			d.notifier.RecordChanged(r)
		} else {
			d.dropUnknown(ev, e.ObjID)
		}
	case wire.Image:
		d.applyImage(e)
	case wire.Picture:
		d.applyPicture(e)
	case wire.Join:
		// only meaningful to the initiator
		if d.sess.Role() == session.RoleInitiator {
			d.sendBootstrap()
		}
	case wire.Share:
		d.applyShare(e)
	}
}

func (d *Dispatcher) dropUnknown(ev wire.Event, objID string) {
	logging.Warn("dropping event for unknown record",
		map[string]interface{}{
			"command": string(ev.Command()),
			"obj_id":  objID,
		})
}

func (d *Dispatcher) applyNewReflection(e wire.NewReflection) {
	r := e.Record.Clone()
	r.Hidden = false
	r.Stars = models.ClampStars(r.Stars)
	r.Tags = models.NormalizeTags(r.Tags)
	if r.Title == "" {
		r.Title = store.DefaultTitle
	}
	if !d.store.InsertFront(r) {
		// id already present: the peer's announcement raced our import
		logging.Debug("new reflection already known",
			map[string]interface{}{"obj_id": r.ObjID})
		return
	}
	d.notifier.RecordAdded(r)
}

// applyImage appends an image content item; the matching picture bytes
// must already have landed.
func (d *Dispatcher) applyImage(e wire.Image) {
	path, err := d.pictures.Resolve(e.Basename, e.SHA256)
	if err != nil {
		logging.Warn("dropping image event with no picture bytes",
			map[string]interface{}{"obj_id": e.ObjID, "basename": e.Basename})
		return
	}
	if r, ok := d.store.AppendImage(e.ObjID, path); ok {
		d.notifier.RecordChanged(r)
	} else {
		d.dropUnknown(e, e.ObjID)
	}
}

// applyPicture lands picture bytes on disk. No store mutation.
func (d *Dispatcher) applyPicture(e wire.Picture) {
	hash, err := d.pictures.Put(e.Basename, e.Data)
	if err != nil {
		logging.Error("cannot store received picture", err,
			map[string]interface{}{"basename": e.Basename})
		return
	}
	if e.SHA256 != "" && e.SHA256 != hash {
		logging.Warn("picture hash mismatch, stored under actual hash",
			map[string]interface{}{"basename": e.Basename})
	}
}

// --- outbound: local mutations -----------------------------------------
//
// Each mutator applies the change to the local store, broadcasts the
// matching event immediately (no batching, no acks), notifies the
// presentation layer, and for journal-sourced fields fires a write-back.

// CreateReflection creates a record locally and announces it. The id is
// assigned before anything leaves draft state.
func (d *Dispatcher) CreateReflection(title string) *models.Reflection {
	r := d.store.NewLocal(title)
	d.broadcast(wire.NewReflection{Record: snapshotForWire(r, nil)})
	d.notifier.RecordAdded(r)
	return r
}

// EditTitle sets a record's title.
func (d *Dispatcher) EditTitle(objID, title string) {
	r, ok := d.store.SetTitle(objID, title)
	if !ok {
		return
	}
	d.broadcast(wire.Title{ObjID: objID, Title: title})
	d.notifier.RecordChanged(r)
	d.writeBack(r, map[string]string{"title": r.Title})
}

// SetStars sets a record's star rating.
func (d *Dispatcher) SetStars(objID string, stars int) {
	r, ok := d.store.SetStars(objID, stars)
	if !ok {
		return
	}
	d.broadcast(wire.Star{ObjID: objID, Stars: r.Stars})
	d.notifier.RecordChanged(r)
}

// SetTags replaces a record's tags.
func (d *Dispatcher) SetTags(objID string, tags []string) {
	r, ok := d.store.SetTags(objID, tags)
	if !ok {
		return
	}
	d.broadcast(wire.Tags{ObjID: objID, Tags: r.Tags})
	d.notifier.RecordChanged(r)
	d.writeBack(r, map[string]string{"tags": journalTags(r.Tags)})
}

// AddActivity appends an activity reference.
func (d *Dispatcher) AddActivity(objID, bundleID string) {
	r, ok := d.store.AddActivity(objID, bundleID)
	if !ok {
		return
	}
	d.broadcast(wire.Activity{ObjID: objID, BundleID: bundleID})
	d.notifier.RecordChanged(r)
}

// AddComment appends a comment.
func (d *Dispatcher) AddComment(objID string, c models.Comment) {
	r, ok := d.store.AddComment(objID, c)
	if !ok {
		return
	}
	d.broadcast(wire.Comment{ObjID: objID, Nick: c.Nick, Color: c.Color, Comment: c.Comment})
	d.notifier.RecordChanged(r)
	d.writeBack(r, map[string]string{"comments": journalComments(r.Comments)})
}

// CommentText appends a comment authored by the local user, stamped with
// the configured identity.
func (d *Dispatcher) CommentText(objID, body string) {
	d.AddComment(objID, models.Comment{Nick: d.nick, Color: d.color, Comment: body})
}

// AddText appends a text content item.
func (d *Dispatcher) AddText(objID, text string) {
	r, ok := d.store.AppendText(objID, text)
	if !ok {
		return
	}
	d.broadcast(wire.Text{ObjID: objID, Text: text})
	d.notifier.RecordChanged(r)
}

// AddImage appends an image from a local file and ships a downsized copy
// ahead of the reference so peers can resolve it.
func (d *Dispatcher) AddImage(objID, path string) {
	r, ok := d.store.AppendImage(objID, path)
	if !ok {
		return
	}
	d.notifier.RecordChanged(r)

	data, err := media.Downsize(path)
	if err != nil {
		// peers miss this picture; the local record keeps it
		logging.Error("cannot downsize image for sharing", err,
			map[string]interface{}{"path": path})
		return
	}
	basename := filepath.Base(path)
	hash, err := d.pictures.Put(basename, data)
	if err != nil {
		logging.Error("cannot store outbound picture", err,
			map[string]interface{}{"path": path})
		return
	}
	d.broadcast(wire.Picture{Basename: basename, SHA256: hash, Data: data})
	d.broadcast(wire.Image{ObjID: objID, Basename: basename, SHA256: hash})
}

// DeleteReflection tombstones a record locally. Deletion never crosses the
// wire; peers keep their copy and tombstones only guard against in-flight
// events referencing the id.
func (d *Dispatcher) DeleteReflection(objID string) {
	d.store.Tombstone(objID)
	if r, ok := d.store.Find(objID); ok {
		d.notifier.RecordChanged(r)
	}
}

// writeBack fires an asynchronous journal metadata update for records the
// journal owns. Locally created records have no journal entry.
func (d *Dispatcher) writeBack(r *models.Reflection, meta map[string]string) {
	if d.journal == nil || objid.IsLocal(r.ObjID) {
		return
	}
	d.journal.UpdateAsync(r.ObjID, meta, nil)
}

// journalTags renders tags in the journal's whitespace-separated form.
func journalTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}

// journalComments renders comments in the journal's JSON form.
func journalComments(comments []models.Comment) string {
	type jc struct {
		From      string `json:"from"`
		Message   string `json:"message"`
		IconColor string `json:"icon-color"`
	}
	items := make([]jc, 0, len(comments))
	for _, c := range comments {
		items = append(items, jc{From: c.Nick, Message: c.Comment, IconColor: c.Color})
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}
