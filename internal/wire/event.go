// Package wire defines the event vocabulary shared by all participants.
//
// Every frame on the tube is a JSON envelope {command, payload}. The
// command is a single-character code; the payload shape is fixed per
// command and anything not matching a known shape is rejected at decode
// rather than interpreted loosely.
package wire

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/reflecta/backend/internal/errors"
	"github.com/reflecta/backend/internal/models"
)

// sha256 fields are optional, but when present they must be full hex
// digests. Anything else is rejected before it can reach path building.
var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

func validHash(hash string) bool {
	return hash == "" || hashPattern.MatchString(hash)
}

// Command discriminates event kinds on the wire.
type Command string

const (
	CmdNewReflection Command = "n" // full record snapshot
	CmdTitle         Command = "t"
	CmdStar          Command = "s"
	CmdTags          Command = "g"
	CmdActivity      Command = "a"
	CmdComment       Command = "c"
	CmdText          Command = "r"
	CmdImage         Command = "i"
	CmdPicture       Command = "p"
	CmdJoin          Command = "j"
	CmdShare         Command = "S"
)

// Event is one decoded wire event.
type Event interface {
	Command() Command
	// Validate checks the payload's structural requirements.
	Validate() error
}

// Envelope is the raw frame shape.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewReflection announces a record created by a peer.
type NewReflection struct {
	Record *models.Reflection `json:"record"`
}

// Title sets a record's title.
type Title struct {
	ObjID string `json:"obj_id"`
	Title string `json:"title"`
}

// Star sets a record's star rating.
type Star struct {
	ObjID string `json:"obj_id"`
	Stars int    `json:"stars"`
}

// Tags replaces a record's tags wholesale.
type Tags struct {
	ObjID string   `json:"obj_id"`
	Tags  []string `json:"tags"`
}

// Activity appends an activity reference.
type Activity struct {
	ObjID    string `json:"obj_id"`
	BundleID string `json:"bundle_id"`
}

// Comment appends a comment.
type Comment struct {
	ObjID   string `json:"obj_id"`
	Nick    string `json:"nick"`
	Color   string `json:"color"`
	Comment string `json:"comment"`
}

// Text appends a text content item.
type Text struct {
	ObjID string `json:"obj_id"`
	Text  string `json:"text"`
}

// Image appends an image content item referencing previously landed
// picture bytes. SHA256 lets the receiver resolve the bytes
// content-addressed; Basename is kept for peers that sent none.
type Image struct {
	ObjID    string `json:"obj_id"`
	Basename string `json:"basename"`
	SHA256   string `json:"sha256,omitempty"`
}

// Picture carries image bytes. Data is base64 on the wire (encoding/json's
// []byte encoding).
type Picture struct {
	Basename string `json:"basename"`
	SHA256   string `json:"sha256,omitempty"`
	Data     []byte `json:"data"`
}

// Join asks the initiator for the bootstrap snapshot.
type Join struct{}

// PictureRef names one picture the share snapshot depends on.
type PictureRef struct {
	Basename string `json:"basename"`
	SHA256   string `json:"sha256,omitempty"`
}

// Share carries the initiator's full store snapshot, plus a manifest of
// the pictures that should have landed before it.
type Share struct {
	Records  []*models.Reflection `json:"records"`
	Manifest []PictureRef         `json:"manifest,omitempty"`
}

func (NewReflection) Command() Command { return CmdNewReflection }
func (Title) Command() Command         { return CmdTitle }
func (Star) Command() Command          { return CmdStar }
func (Tags) Command() Command          { return CmdTags }
func (Activity) Command() Command      { return CmdActivity }
func (Comment) Command() Command       { return CmdComment }
func (Text) Command() Command          { return CmdText }
func (Image) Command() Command         { return CmdImage }
func (Picture) Command() Command       { return CmdPicture }
func (Join) Command() Command          { return CmdJoin }
func (Share) Command() Command         { return CmdShare }

func (e NewReflection) Validate() error {
	if e.Record == nil || e.Record.ObjID == "" {
		return errors.New(errors.ErrWirePayload, "new reflection without record id")
	}
	for _, item := range e.Record.Content {
		if !item.Valid() {
			return errors.New(errors.ErrWirePayload, "content item must be text or image")
		}
	}
	return nil
}

func (e Title) Validate() error    { return requireObjID(e.ObjID) }
func (e Star) Validate() error     { return requireObjID(e.ObjID) }
func (e Tags) Validate() error     { return requireObjID(e.ObjID) }
func (e Activity) Validate() error { return requireObjID(e.ObjID) }

func (e Comment) Validate() error {
	if err := requireObjID(e.ObjID); err != nil {
		return err
	}
	if e.Comment == "" {
		return errors.New(errors.ErrWirePayload, "empty comment")
	}
	return nil
}

func (e Text) Validate() error {
	if err := requireObjID(e.ObjID); err != nil {
		return err
	}
	if e.Text == "" {
		return errors.New(errors.ErrWirePayload, "empty text")
	}
	return nil
}

func (e Image) Validate() error {
	if err := requireObjID(e.ObjID); err != nil {
		return err
	}
	if e.Basename == "" && e.SHA256 == "" {
		return errors.New(errors.ErrWirePayload, "image event without reference")
	}
	if !validHash(e.SHA256) {
		return errors.New(errors.ErrWirePayload, "malformed image hash")
	}
	return nil
}

func (e Picture) Validate() error {
	if e.Basename == "" {
		return errors.New(errors.ErrWirePayload, "picture without basename")
	}
	if len(e.Data) == 0 {
		return errors.New(errors.ErrWirePayload, "picture without bytes")
	}
	if !validHash(e.SHA256) {
		return errors.New(errors.ErrWirePayload, "malformed picture hash")
	}
	return nil
}

func (Join) Validate() error { return nil }

func (e Share) Validate() error {
	for _, r := range e.Records {
		if r == nil || r.ObjID == "" {
			return errors.New(errors.ErrWirePayload, "share snapshot record without id")
		}
	}
	for _, ref := range e.Manifest {
		if ref.Basename == "" {
			return errors.New(errors.ErrWirePayload, "manifest entry without basename")
		}
		if !validHash(ref.SHA256) {
			return errors.New(errors.ErrWirePayload, "malformed manifest hash")
		}
	}
	return nil
}

func requireObjID(id string) error {
	if id == "" {
		return errors.New(errors.ErrWirePayload, "missing obj_id")
	}
	return nil
}

// Encode serializes an event into an envelope frame.
func Encode(ev Event) ([]byte, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.Wrap(errors.ErrWirePayload, "cannot marshal payload", err)
	}
	return json.Marshal(Envelope{Command: ev.Command(), Payload: payload})
}

// Decode parses a frame into a typed event. Unknown commands and malformed
// payloads are rejected.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(errors.ErrWireDecode, "cannot parse envelope", err)
	}

	var ev Event
	var err error
	switch env.Command {
	case CmdNewReflection:
		ev, err = decodeAs[NewReflection](env.Payload)
	case CmdTitle:
		ev, err = decodeAs[Title](env.Payload)
	case CmdStar:
		ev, err = decodeAs[Star](env.Payload)
	case CmdTags:
		ev, err = decodeAs[Tags](env.Payload)
	case CmdActivity:
		ev, err = decodeAs[Activity](env.Payload)
	case CmdComment:
		ev, err = decodeAs[Comment](env.Payload)
	case CmdText:
		ev, err = decodeAs[Text](env.Payload)
	case CmdImage:
		ev, err = decodeAs[Image](env.Payload)
	case CmdPicture:
		ev, err = decodeAs[Picture](env.Payload)
	case CmdJoin:
		ev, err = decodeAs[Join](env.Payload)
	case CmdShare:
		ev, err = decodeAs[Share](env.Payload)
	default:
		return nil, errors.New(errors.ErrWireUnknownCommand,
			fmt.Sprintf("unknown command %q", string(env.Command)))
	}
	if err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeAs[T Event](payload json.RawMessage) (Event, error) {
	var v T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, errors.Wrap(errors.ErrWirePayload, "cannot parse payload", err)
		}
	}
	return v, nil
}
