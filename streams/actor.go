package streams

import "time"

// An Actor is an entity capable of performing activities: a person, a
// service, a group. The concrete type string is preserved in Base.Type.
type Actor struct {
	Base
	PreferredUsername string `json:"preferredUsername,omitempty"`
	Name              string `json:"name,omitempty"`
	Summary           string `json:"summary,omitempty"`

	Inbox     string `json:"inbox,omitempty"`
	Outbox    string `json:"outbox,omitempty"`
	Followers string `json:"followers,omitempty"`
	Following string `json:"following,omitempty"`
	// Featured is the actor's pinned post collection.
	Featured string `json:"featured,omitempty"`

	ManuallyApprovesFollowers bool `json:"manuallyApprovesFollowers,omitempty"`

	Endpoints *Endpoints `json:"endpoints,omitempty"`
	PublicKey *PublicKey `json:"publicKey,omitempty"`

	Icon        *LastLink  `json:"icon,omitempty"`
	Image       *LastLink  `json:"image,omitempty"`
	Attachments Links      `json:"attachment,omitempty"`
	Published   *time.Time `json:"published,omitempty"`
}

// SharedInbox returns the actor's shared inbox URL, or the empty string when
// the actor's instance does not expose one.
func (a *Actor) SharedInbox() string {
	if a.Endpoints == nil {
		return ""
	}
	return a.Endpoints.SharedInbox
}

// DeliveryInbox returns the inbox deliveries for this actor should target,
// preferring the instance shared inbox when one is exposed.
func (a *Actor) DeliveryInbox() string {
	if shared := a.SharedInbox(); shared != "" {
		return shared
	}
	return a.Inbox
}

// A PublicKey is the signing key block embedded in an actor document.
type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// Endpoints carries the instance level endpoints advertised by an actor.
type Endpoints struct {
	SharedInbox string `json:"sharedInbox,omitempty"`
}
