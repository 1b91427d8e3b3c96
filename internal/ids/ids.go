// Package ids generates the 26 character, lexicographically sortable
// identifiers used as primary keys and pagination cursors throughout toki.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// An ID is a 26 character ULID. Ordering IDs lexicographically orders the
// records they identify by creation time.
type ID string

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new ID for the current time.
func New() ID {
	return FromTime(time.Now())
}

// FromTime returns a new ID whose timestamp component is taken from ts.
func FromTime(ts time.Time) ID {
	mu.Lock()
	defer mu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(ts), entropy).String())
}

// Parse validates that s is a well formed ID.
func Parse(s string) (ID, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return "", err
	}
	return ID(u.String()), nil
}

// Time returns the timestamp encoded in the ID.
func (id ID) Time() time.Time {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

func (id ID) String() string { return string(id) }
