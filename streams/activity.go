package streams

import "time"

// An Activity is something an actor did, or wants done. The actor is always
// present, typically as an unresolved link; the object is absent on
// intransitive activities.
type Activity struct {
	Base
	Actor     *Ref       `json:"actor,omitempty"`
	Object    *Ref       `json:"object,omitempty"`
	Target    *Ref       `json:"target,omitempty"`
	To        Refs       `json:"to,omitempty"`
	CC        Refs       `json:"cc,omitempty"`
	Published *time.Time `json:"published,omitempty"`
}

// A Note is a short piece of written content. Video objects share the same
// field set and decode to the same value.
type Note struct {
	Base
	Content      string     `json:"content,omitempty"`
	Summary      string     `json:"summary,omitempty"`
	AttributedTo *Ref       `json:"attributedTo,omitempty"`
	InReplyTo    *Ref       `json:"inReplyTo,omitempty"`
	To           Refs       `json:"to,omitempty"`
	CC           Refs       `json:"cc,omitempty"`
	Published    *time.Time `json:"published,omitempty"`
	Sensitive    bool       `json:"sensitive,omitempty"`
	Attachments  Links      `json:"attachment,omitempty"`
	Tags         Links      `json:"tag,omitempty"`
}

// A Collection is a set of references, ordered or not, possibly paginated.
type Collection struct {
	Base
	TotalItems   int  `json:"totalItems"`
	Items        Refs `json:"items,omitempty"`
	OrderedItems Refs `json:"orderedItems,omitempty"`
	First        *Ref `json:"first,omitempty"`
	Next         *Ref `json:"next,omitempty"`
	Prev         *Ref `json:"prev,omitempty"`
	PartOf       *Ref `json:"partOf,omitempty"`
}

// All returns the collection's items, whichever field carries them.
func (c *Collection) All() Refs {
	if len(c.OrderedItems) > 0 {
		return c.OrderedItems
	}
	return c.Items
}
