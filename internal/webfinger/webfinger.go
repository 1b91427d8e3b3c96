// Package webfinger looks up the ActivityPub actor behind an
// user@domain address.
package webfinger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/carlmjohnson/requests"
)

type Webfinger struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases,omitempty"`
	Links   Links    `json:"links,omitempty"`
}

// ActivityPub returns the actor URI advertised by this webfinger document.
func (wf *Webfinger) ActivityPub() (string, error) {
	for _, link := range wf.Links {
		if link.Type == "application/activity+json" {
			return link.Href, nil
		}
	}
	return "", fmt.Errorf("no ActivityPub link found")
}

type Link struct {
	Rel      string `json:"rel"`
	Type     string `json:"type,omitempty"`
	Href     string `json:"href,omitempty"`
	Template string `json:"template,omitempty"`
}

// Links is a one-or-many list of Link values. Some servers emit a single
// object for a lone link; serialization always writes the array.
type Links []Link

func (l *Links) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var many []Link
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*l = many
		return nil
	}
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var one Link
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = Links{one}
	return nil
}

type Acct struct {
	User string
	Host string
}

func (a *Acct) String() string {
	return "acct:" + a.User + "@" + a.Host
}

// Webfinger returns the URL of the webfinger resource for this Acct.
func (a *Acct) Webfinger() string {
	return "https://" + a.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(a.String())
}

// ID returns the actor URI for this Acct.
func (a *Acct) ID() string {
	return "https://" + a.Host + "/users/" + a.User
}

// Followers returns the URL of the followers collection for this Acct.
func (a *Acct) Followers() string {
	return a.ID() + "/followers"
}

// Following returns the URL of the following collection for this Acct.
func (a *Acct) Following() string {
	return a.ID() + "/following"
}

// Inbox returns the URL of the inbox for this Acct.
func (a *Acct) Inbox() string {
	return a.ID() + "/inbox"
}

// Outbox returns the URL of the outbox for this Acct.
func (a *Acct) Outbox() string {
	return a.ID() + "/outbox"
}

// SharedInbox returns the URL of the instance wide inbox for this Acct's
// host.
func (a *Acct) SharedInbox() string {
	return "https://" + a.Host + "/inbox"
}

// Fetch resolves the Acct against its host's webfinger endpoint.
func (a *Acct) Fetch(ctx context.Context) (*Webfinger, error) {
	var webfinger Webfinger
	err := requests.URL(a.Webfinger()).ToJSON(&webfinger).Fetch(ctx)
	return &webfinger, err
}

// Parse parses an user@domain address, tolerating an acct: scheme, a
// leading @ and URL encoding.
func Parse(query string) (*Acct, error) {
	query = strings.TrimPrefix(query, "acct:")
	query = strings.TrimPrefix(query, "@")
	query, err := url.QueryUnescape(query)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(query, "@", 2)
	switch len(parts) {
	case 1:
		return &Acct{
			User: parts[0],
		}, nil
	case 2:
		return &Acct{
			User: parts[0],
			Host: parts[1],
		}, nil
	default:
		return nil, fmt.Errorf("invalid acct: %q", query)
	}
}
