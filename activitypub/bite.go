package activitypub

import (
	"context"
	"errors"

	"github.com/purifetchi/toki/models"
)

// Bite bites the target on behalf of a local user. There is no state to
// keep; the activity is rendered and queued, and what the other side makes
// of it is up to them.
func (s *Service) Bite(ctx context.Context, from, to *models.User) error {
	if to.IsLocal() {
		return errors.New("biting the local instance hurts nobody")
	}
	return s.Deliver(ctx, from, BiteActivity(from, to.URI()), to.Inbox())
}
