package activitypub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/purifetchi/toki/internal/httpsig"
	"github.com/purifetchi/toki/internal/httpx"
	"github.com/purifetchi/toki/internal/ids"
	"github.com/purifetchi/toki/internal/sanitize"
	"github.com/purifetchi/toki/models"
	"github.com/purifetchi/toki/streams"
)

// maxPayloadSize bounds inbound activity bodies.
const maxPayloadSize = 1 << 20

// Inbox serves POST /inbox, the shared inbox for the whole instance.
func Inbox(env *Env, w http.ResponseWriter, r *http.Request) error {
	return receive(env, w, r, nil)
}

// UserInbox serves POST /users/{name}/inbox.
func UserInbox(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := models.NewUsers(env.DB).FindByHandle(chi.URLParam(r, "name"), r.Host)
	if err != nil {
		return httpx.Error(http.StatusNotFound, err)
	}
	return receive(env, w, r, &user.ID)
}

// receive validates an inbound activity and parks it on the queue. All
// real processing happens in the dispatcher worker; a peer waiting on our
// response learns only whether the signature held.
func receive(env *Env, w http.ResponseWriter, r *http.Request, subjectID *ids.ID) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize))
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	obj, err := streams.Decode(body)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	activity, ok := obj.(*streams.Activity)
	if !ok {
		return httpx.Error(http.StatusBadRequest, fmt.Errorf("inbox accepts activities, got %s", obj.ObjectType()))
	}
	if digest := r.Header.Get("Digest"); digest != "" && digest != httpsig.Digest(body) {
		return httpx.Error(http.StatusUnauthorized, errors.New("digest does not match body"))
	}
	if err := env.service().ValidateInbound(r.Context(), r, activity); err != nil {
		return httpx.Error(http.StatusUnauthorized, err)
	}
	if err := env.Queue.EnqueueInbox(r.Context(), body, subjectID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

// ProcessActivity dispatches one queued inbound activity. Activity types
// with no handler are logged and dropped; that is a success, not an error,
// so the queue does not retry vocabulary we do not speak.
func (s *Service) ProcessActivity(ctx context.Context, payload []byte, subjectID *ids.ID) error {
	obj, err := streams.Decode(payload)
	if err != nil {
		return err
	}
	activity, ok := obj.(*streams.Activity)
	if !ok {
		return fmt.Errorf("queued payload is not an activity: %s", obj.ObjectType())
	}
	if activity.Actor == nil || activity.Actor.ID == "" {
		return errNoActor
	}
	admin, err := instanceAdmin(s.db)
	if err != nil {
		return err
	}
	actor, err := s.FindOrImportUser(ctx, admin, activity.Actor.ID)
	if err != nil {
		return err
	}

	switch activity.Type {
	case streams.TypeCreate:
		return s.handleCreate(ctx, actor, activity)
	case streams.TypeFollow:
		return s.handleFollow(ctx, actor, activity)
	case streams.TypeAccept:
		return s.handleAccept(ctx, actor, activity)
	case streams.TypeReject:
		return s.handleReject(ctx, actor, activity)
	case streams.TypeUndo:
		return s.handleUndo(ctx, actor, activity)
	case streams.TypeDelete:
		return s.handleDelete(ctx, actor, activity)
	default:
		log.Printf("inbox: ignoring %s %s from %s", activity.Type, activity.ID, activity.Actor.ID)
		return nil
	}
}

// handleCreate imports the created note as a remote post.
func (s *Service) handleCreate(ctx context.Context, actor *models.User, activity *streams.Activity) error {
	if activity.Object == nil {
		return errors.New("create has no object")
	}
	admin, err := instanceAdmin(s.db)
	if err != nil {
		return err
	}
	resolver, err := s.Resolver(admin)
	if err != nil {
		return err
	}
	note, err := Resolve[*streams.Note](ctx, resolver, activity.Object)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// not a note, or gone already; nothing for us
			return nil
		}
		return err
	}
	if note.AttributedTo != nil && note.AttributedTo.ID != actor.URI() {
		return fmt.Errorf("note %s attributed to someone other than the create actor", note.ID)
	}
	posts := models.NewPosts(s.db)
	if _, err := posts.FindByRemoteID(note.ID); err == nil {
		// deliveries are at-least-once, dupes expected
		return nil
	}
	remoteID := note.ID
	post := &models.Post{
		ID:             ids.New(),
		RemoteID:       &remoteID,
		UserID:         actor.ID,
		Content:        sanitize.HTML(note.Content),
		ContentWarning: note.Summary,
		Sensitive:      note.Sensitive,
	}
	if note.Published != nil {
		post.CreatedAt = *note.Published
	}
	if note.InReplyTo != nil {
		if parent, err := posts.FindByRemoteID(note.InReplyTo.ID); err == nil {
			post.InReplyToID = &parent.ID
		}
	}
	return s.db.Create(post).Error
}

// handleDelete removes the referenced post if its author asked for it.
func (s *Service) handleDelete(ctx context.Context, actor *models.User, activity *streams.Activity) error {
	if activity.Object == nil {
		return nil
	}
	post, err := models.NewPosts(s.db).FindByRemoteID(activity.Object.ID)
	if err != nil {
		return nil
	}
	if post.UserID != actor.ID {
		return fmt.Errorf("delete of %s by non-author %s", activity.Object.ID, actor.URI())
	}
	return s.db.Delete(post).Error
}
