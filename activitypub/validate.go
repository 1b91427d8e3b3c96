package activitypub

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/internal/crypto"
	"github.com/purifetchi/toki/internal/httpsig"
	"github.com/purifetchi/toki/models"
	"github.com/purifetchi/toki/streams"
)

var (
	errNoActor       = errors.New("activity has no actor")
	errKeyOwnership  = errors.New("signing key does not belong to the activity's actor")
	errKeyNotInActor = errors.New("actor document does not advertise the signing key")
)

// ValidateInbound checks the HTTP signature of an inbound federated
// request against the key of the actor the activity claims to be from.
// Unknown keys cause the actor to be fetched and imported; a signature by
// a key the claimed actor does not own is rejected regardless of whether
// the signature itself verifies.
func (s *Service) ValidateInbound(ctx context.Context, r *http.Request, activity *streams.Activity) error {
	if activity.Actor == nil || activity.Actor.ID == "" {
		return errNoActor
	}
	actorURI := activity.Actor.ID

	sig, err := httpsig.Parse(r.Header.Get("Signature"))
	if err != nil {
		return err
	}

	keypair, err := models.NewKeypairs(s.db).FindByRemoteID(sig.KeyID)
	switch {
	case err == nil:
		if keypair.User == nil || keypair.User.URI() != actorURI {
			return errKeyOwnership
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if keypair, err = s.importSigningKey(ctx, sig.KeyID, actorURI); err != nil {
			return err
		}
	default:
		return err
	}

	pubKey, err := crypto.ParseRSAPublicKey(keypair.PublicKeyPem)
	if err != nil {
		return err
	}
	return httpsig.VerifySignature(r, sig, pubKey)
}

// importSigningKey resolves the claimed actor and imports it, provided the
// actor's document actually advertises the key the request was signed
// with.
func (s *Service) importSigningKey(ctx context.Context, keyID, actorURI string) (*models.Keypair, error) {
	admin, err := instanceAdmin(s.db)
	if err != nil {
		return nil, err
	}
	resolver, err := s.Resolver(admin)
	if err != nil {
		return nil, err
	}
	actor, err := Resolve[*streams.Actor](ctx, resolver, streams.NewRef(actorURI))
	if err != nil {
		return nil, err
	}
	if actor.PublicKey == nil || actor.PublicKey.ID != keyID {
		return nil, errKeyNotInActor
	}
	user, err := models.NewUsers(s.db).FindOrCreateByRemoteID(actorURI, func(string) (*models.User, error) {
		return UserFromActor(s.db, actor)
	})
	if err != nil {
		return nil, err
	}
	keypair, err := models.NewKeypairs(s.db).FindByUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("imported actor %s has no key: %w", actorURI, err)
	}
	keypair.User = user
	return keypair, nil
}
