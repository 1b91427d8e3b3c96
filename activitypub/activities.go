package activitypub

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/purifetchi/toki/internal/ids"
	"github.com/purifetchi/toki/models"
	"github.com/purifetchi/toki/streams"
)

// activityURI mints an id for a one-shot outbound activity.
func activityURI(domain string) string {
	return fmt.Sprintf("https://%s/activities/%s", domain, uuid.New())
}

// followURI is the id a local follow request is federated under. The
// trailing segment is the request id, so an Accept or Reject referencing it
// can be correlated back to the pending row.
func followURI(domain string, id ids.ID) string {
	return fmt.Sprintf("https://%s/follows/%s", domain, id)
}

func postURI(author *models.User, id ids.ID) string {
	return fmt.Sprintf("%s/posts/%s", author.URI(), id)
}

func newActivity(typ, id, actor string) *streams.Activity {
	now := time.Now().UTC().Round(time.Second)
	return &streams.Activity{
		Base: streams.Base{
			Context: streams.NewContext(streams.ActivityStreams),
			ID:      id,
			Type:    typ,
		},
		Actor:     streams.NewRef(actor),
		Published: &now,
	}
}

// FollowActivity renders a pending local follow request for delivery to the
// target's instance.
func FollowActivity(request *models.FollowRequest, from, to *models.User) *streams.Activity {
	activity := newActivity(streams.TypeFollow, followURI(from.Domain, request.ID), from.URI())
	activity.Object = streams.NewRef(to.URI())
	return activity
}

// AcceptActivity renders the acceptance of a remote follow request. The
// object is the original Follow, echoed back under its own id.
func AcceptActivity(acceptor *models.User, follow *streams.Activity) *streams.Activity {
	activity := newActivity(streams.TypeAccept, activityURI(acceptor.Domain), acceptor.URI())
	activity.Object = streams.RefTo(follow)
	return activity
}

// RejectActivity renders the refusal of a remote follow request.
func RejectActivity(rejector *models.User, follow *streams.Activity) *streams.Activity {
	activity := newActivity(streams.TypeReject, activityURI(rejector.Domain), rejector.URI())
	activity.Object = streams.RefTo(follow)
	return activity
}

// UndoFollowActivity renders the retraction of a previously delivered
// follow.
func UndoFollowActivity(from, to *models.User, follow *streams.Activity) *streams.Activity {
	activity := newActivity(streams.TypeUndo, activityURI(from.Domain), from.URI())
	activity.Object = streams.RefTo(follow)
	return activity
}

// followEcho reconstructs the Follow activity a request was federated as,
// for embedding in Accept, Reject and Undo replies.
func followEcho(request *models.FollowRequest, from, to *models.User) *streams.Activity {
	id := followURI(from.Domain, request.ID)
	if request.RemoteID != nil {
		id = *request.RemoteID
	}
	return &streams.Activity{
		Base:   streams.Base{ID: id, Type: streams.TypeFollow},
		Actor:  streams.NewRef(from.URI()),
		Object: streams.NewRef(to.URI()),
	}
}

// NoteObject renders a post as an ActivityStreams Note. A reply's parent
// post must be preloaded together with its author.
func NoteObject(post *models.Post, author *models.User) *streams.Note {
	note := &streams.Note{
		Base: streams.Base{
			ID:   postURI(author, post.ID),
			Type: "Note",
		},
		Content:      post.Content,
		Summary:      post.ContentWarning,
		AttributedTo: streams.NewRef(author.URI()),
		To:           streams.Refs{streams.NewRef(streams.PublicAudience)},
		CC:           streams.Refs{streams.NewRef(author.URI() + "/followers")},
		Published:    &post.CreatedAt,
		Sensitive:    post.Sensitive,
	}
	if post.InReplyTo != nil {
		note.InReplyTo = streams.NewRef(post.InReplyTo.URI())
	}
	return note
}

// CreateActivity wraps a note in the Create that publishes it.
func CreateActivity(post *models.Post, author *models.User) *streams.Activity {
	note := NoteObject(post, author)
	activity := newActivity(streams.TypeCreate, note.ID+"/activity", author.URI())
	activity.Object = streams.RefTo(note)
	activity.To = note.To
	activity.CC = note.CC
	activity.Published = note.Published
	return activity
}

// AnnounceActivity renders a boost of the given post, addressed to the
// public and the booster's followers.
func AnnounceActivity(booster *models.User, post *models.Post) *streams.Activity {
	activity := newActivity(streams.TypeAnnounce, activityURI(booster.Domain), booster.URI())
	activity.Object = streams.NewRef(post.URI())
	activity.To = streams.Refs{streams.NewRef(streams.PublicAudience)}
	activity.CC = streams.Refs{streams.NewRef(booster.URI() + "/followers")}
	return activity
}

// BiteActivity renders a bite aimed at the given actor. Friendly fire is
// the caller's problem.
func BiteActivity(from *models.User, target string) *streams.Activity {
	activity := newActivity(streams.TypeBite, activityURI(from.Domain), from.URI())
	activity.Base.Context = streams.NewContext(streams.ActivityStreams).
		Set("Bite", "https://ns.mia.jetzt/as#Bite")
	activity.Target = streams.NewRef(target)
	return activity
}
