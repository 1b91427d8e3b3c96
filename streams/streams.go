// Package streams implements the subset of the ActivityStreams vocabulary
// toki speaks, and its JSON wire codec. Values are polymorphic on the type
// field; references to other objects are either bare id strings or inline
// objects, modelled by the Ref type.
package streams

import (
	"encoding/json"
	"errors"
	"fmt"
)

// PublicAudience is the well known collection addressing an activity to the
// world at large.
const PublicAudience = "https://www.w3.org/ns/activitystreams#Public"

// ActivityStreams is the vocabulary namespace every document imports.
const ActivityStreams = "https://www.w3.org/ns/activitystreams"

// Activity types.
const (
	TypeCreate   = "Create"
	TypeFollow   = "Follow"
	TypeAccept   = "Accept"
	TypeReject   = "Reject"
	TypeLike     = "Like"
	TypeAnnounce = "Announce"
	TypeUndo     = "Undo"
	TypeUpdate   = "Update"
	TypeDelete   = "Delete"
	TypeAdd      = "Add"
	TypeRemove   = "Remove"

	// TypeBite is the toki extension activity for biting another actor.
	TypeBite = "Bite"
)

// ErrMissingType is returned when a JSON object has no type field.
// A missing type is malformed; an unrecognised type is not.
var ErrMissingType = errors.New("streams: object has no type")

// Object is implemented by every ActivityStreams value.
type Object interface {
	ObjectID() string
	ObjectType() string
}

// Base carries the fields shared by every ActivityStreams value. It also
// stands alone as the degraded representation of objects whose type toki
// does not recognise.
type Base struct {
	Context *Context `json:"@context,omitempty"`
	ID      string   `json:"id,omitempty"`
	Type    string   `json:"type,omitempty"`
}

func (b *Base) ObjectID() string   { return b.ID }
func (b *Base) ObjectType() string { return b.Type }

// objectTypes dispatches a type discriminator to its concrete value.
// Adding a vocabulary type is a one line change.
var objectTypes = map[string]func() Object{
	TypeCreate:   newActivity,
	TypeFollow:   newActivity,
	TypeAccept:   newActivity,
	TypeReject:   newActivity,
	TypeLike:     newActivity,
	TypeAnnounce: newActivity,
	TypeUndo:     newActivity,
	TypeUpdate:   newActivity,
	TypeDelete:   newActivity,
	TypeAdd:      newActivity,
	TypeRemove:   newActivity,
	TypeBite:     newActivity,

	"Note":  newNote,
	"Video": newNote,

	"Person":       newActor,
	"Service":      newActor,
	"Organization": newActor,
	"Group":        newActor,
	"Application":  newActor,

	"Collection":            newCollection,
	"OrderedCollection":     newCollection,
	"CollectionPage":        newCollection,
	"OrderedCollectionPage": newCollection,
}

func newActivity() Object   { return new(Activity) }
func newNote() Object       { return new(Note) }
func newActor() Object      { return new(Actor) }
func newCollection() Object { return new(Collection) }

// Decode decodes a single JSON object into its concrete ActivityStreams
// value. Objects with an unrecognised type decode to a bare *Base carrying
// the type string, so unknown vocabulary degrades instead of failing the
// whole payload. Objects with no type at all are malformed.
func Decode(data []byte) (Object, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("streams: decode: %w", err)
	}
	if head.Type == nil {
		return nil, ErrMissingType
	}
	ctor, ok := objectTypes[*head.Type]
	if !ok {
		return &Base{Type: *head.Type}, nil
	}
	obj := ctor()
	if err := json.Unmarshal(data, obj); err != nil {
		return nil, fmt.Errorf("streams: decode %s: %w", *head.Type, err)
	}
	return obj, nil
}

// Encode encodes an ActivityStreams value to JSON.
func Encode(obj Object) ([]byte, error) {
	return json.Marshal(obj)
}

// A Ref is a reference to an ActivityStreams object: either a bare link
// carrying only an id, or a resolved value. Consumers switch on Object
// being nil rather than inspecting runtime types.
type Ref struct {
	ID     string
	Object Object
}

// NewRef returns an unresolved reference to id.
func NewRef(id string) *Ref {
	return &Ref{ID: id}
}

// RefTo returns a resolved reference wrapping obj.
func RefTo(obj Object) *Ref {
	return &Ref{ID: obj.ObjectID(), Object: obj}
}

// Resolved reports whether the reference carries a value.
func (r *Ref) Resolved() bool {
	return r != nil && r.Object != nil
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	if string(data) == "null" {
		return nil
	}
	obj, err := Decode(data)
	if err != nil {
		return err
	}
	r.ID = obj.ObjectID()
	r.Object = obj
	return nil
}

// MarshalJSON collapses unresolved references to their bare id string.
func (r *Ref) MarshalJSON() ([]byte, error) {
	if r.Object == nil {
		return json.Marshal(r.ID)
	}
	return json.Marshal(r.Object)
}

// DecodeRef decodes a JSON value that is either a bare id string or an
// inline object.
func DecodeRef(data []byte) (*Ref, error) {
	var ref Ref
	if err := ref.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Refs is a list of references that accepts either a single JSON value or
// an array on the wire, and always writes the array form.
type Refs []*Ref

func (r *Refs) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var many []*Ref
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*r = many
		return nil
	}
	if string(data) == "null" {
		*r = nil
		return nil
	}
	var one Ref
	if err := one.UnmarshalJSON(data); err != nil {
		return err
	}
	*r = Refs{&one}
	return nil
}

// IDs returns the ids of the references in order.
func (r Refs) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, ref := range r {
		ids = append(ids, ref.ID)
	}
	return ids
}

// Contains reports whether any reference carries the given id.
func (r Refs) Contains(id string) bool {
	for _, ref := range r {
		if ref.ID == id {
			return true
		}
	}
	return false
}
