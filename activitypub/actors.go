package activitypub

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/purifetchi/toki/internal/httpx"
	"github.com/purifetchi/toki/internal/ids"
	"github.com/purifetchi/toki/internal/sanitize"
	"github.com/purifetchi/toki/internal/to"
	"github.com/purifetchi/toki/models"
	"github.com/purifetchi/toki/streams"
)

// UserFromActor converts a fetched actor document into an unsaved remote
// user row, registering the actor's home instance on the way.
func UserFromActor(db *gorm.DB, actor *streams.Actor) (*models.User, error) {
	u, err := url.Parse(actor.ID)
	if err != nil {
		return nil, err
	}
	instance, err := models.NewRemoteInstances(db).FindOrCreate(u.Host, actor.SharedInbox())
	if err != nil {
		return nil, err
	}
	remoteID := actor.ID
	user := &models.User{
		ID:                     ids.New(),
		RemoteID:               &remoteID,
		Handle:                 actor.PreferredUsername,
		Domain:                 u.Host,
		DisplayName:            actor.Name,
		Bio:                    sanitize.HTML(actor.Summary),
		IsRemote:               true,
		RequiresFollowApproval: actor.ManuallyApprovesFollowers,
		InboxURL:               actor.Inbox,
		RemoteInstanceID:       &instance.ID,
	}
	if actor.Icon != nil {
		user.AvatarURL = actor.Icon.URL
	}
	if actor.Image != nil {
		user.HeaderURL = actor.Image.URL
	}
	if actor.PublicKey != nil {
		keyID := actor.PublicKey.ID
		user.Keypair = &models.Keypair{
			ID:           ids.New(),
			RemoteID:     &keyID,
			PublicKeyPem: []byte(actor.PublicKey.PublicKeyPem),
		}
	}
	return user, nil
}

// FindOrImportUser returns the user for the given actor URI, fetching and
// importing the actor on first sight.
func (s *Service) FindOrImportUser(ctx context.Context, signAs *models.User, uri string) (*models.User, error) {
	return models.NewUsers(s.db).FindOrCreateByRemoteID(uri, func(uri string) (*models.User, error) {
		resolver, err := s.Resolver(signAs)
		if err != nil {
			return nil, err
		}
		actor, err := Resolve[*streams.Actor](ctx, resolver, streams.NewRef(uri))
		if err != nil {
			return nil, err
		}
		return UserFromActor(s.db, actor)
	})
}

// ActorDocument renders a local user as an ActivityPub actor document.
func ActorDocument(user *models.User, typ string) *streams.Actor {
	uri := user.URI()
	actor := &streams.Actor{
		Base: streams.Base{
			Context: streams.NewContext(streams.ActivityStreams, "https://w3id.org/security/v1").
				Set("toot", "http://joinmastodon.org/ns#").
				Set("discoverable", "toot:discoverable"),
			ID:   uri,
			Type: typ,
		},
		PreferredUsername:         user.Handle,
		Name:                      user.DisplayName,
		Summary:                   user.Bio,
		Inbox:                     uri + "/inbox",
		Outbox:                    uri + "/outbox",
		Followers:                 uri + "/followers",
		Following:                 uri + "/following",
		ManuallyApprovesFollowers: user.RequiresFollowApproval,
		Endpoints: &streams.Endpoints{
			SharedInbox: fmt.Sprintf("https://%s/inbox", user.Domain),
		},
		Published: &user.CreatedAt,
	}
	if user.Keypair != nil {
		actor.PublicKey = &streams.PublicKey{
			ID:           user.Keypair.KeyID(user),
			Owner:        uri,
			PublicKeyPem: string(user.Keypair.PublicKeyPem),
		}
	}
	return actor
}

// UsersShow serves GET /users/{name}, the actor document.
func UsersShow(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := models.NewUsers(env.DB).FindByHandle(chi.URLParam(r, "name"), r.Host)
	if err != nil {
		return httpx.Error(http.StatusNotFound, err)
	}
	return to.ActivityJSON(w, ActorDocument(user, "Person"))
}

// InstanceActor serves GET /actor, the application actor other instances
// use for signed fetches.
func InstanceActor(env *Env, w http.ResponseWriter, r *http.Request) error {
	admin, err := instanceAdmin(env.DB)
	if err != nil {
		return httpx.Error(http.StatusNotFound, err)
	}
	return to.ActivityJSON(w, ActorDocument(admin, "Application"))
}
