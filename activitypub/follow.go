package activitypub

import (
	"context"
	"errors"
	"fmt"

	"github.com/purifetchi/toki/internal/ids"
	"github.com/purifetchi/toki/models"
	"github.com/purifetchi/toki/streams"
)

// RequestFollow starts a follow from a local user. When the target is also
// local the state machine runs entirely in the database; for a remote
// target a Follow activity is queued for delivery and the request stays
// pending until the peer answers with an Accept.
func (s *Service) RequestFollow(ctx context.Context, from, to *models.User) error {
	if from.IsRemote {
		return errors.New("follow requests originate from local users only")
	}
	follows := models.NewFollows(s.db)
	if to.IsLocal() && !to.RequiresFollowApproval {
		return follows.Established(from, to)
	}
	request, err := follows.Request(from, to, "")
	if err != nil {
		return err
	}
	if to.IsLocal() {
		return nil
	}
	return s.Deliver(ctx, from, FollowActivity(request, from, to), to.Inbox())
}

// AcceptFollow approves a pending request. If the requester is remote an
// Accept echoing the original Follow is queued so the peer learns the
// follow went through.
func (s *Service) AcceptFollow(ctx context.Context, request *models.FollowRequest) error {
	from, to, err := s.requestEndpoints(request)
	if err != nil {
		return err
	}
	if err := models.NewFollows(s.db).Accept(request); err != nil {
		return err
	}
	if from.IsLocal() {
		return nil
	}
	return s.Deliver(ctx, to, AcceptActivity(to, followEcho(request, from, to)), from.Inbox())
}

// RejectFollow refuses a pending request. Remote requesters are told, so
// their instance does not keep the request pending forever.
func (s *Service) RejectFollow(ctx context.Context, request *models.FollowRequest) error {
	from, to, err := s.requestEndpoints(request)
	if err != nil {
		return err
	}
	if err := models.NewFollows(s.db).Reject(request); err != nil {
		return err
	}
	if from.IsLocal() {
		return nil
	}
	return s.Deliver(ctx, to, RejectActivity(to, followEcho(request, from, to)), from.Inbox())
}

// Unfollow retracts an established or pending follow of a remote user and
// delivers the Undo.
func (s *Service) Unfollow(ctx context.Context, from, to *models.User) error {
	follows := models.NewFollows(s.db)
	request := &models.FollowRequest{FromID: from.ID, ToID: to.ID}
	if pending, err := follows.FindRequestBetween(from.ID, to.ID); err == nil {
		request = pending
		if err := follows.Reject(pending); err != nil {
			return err
		}
	}
	if err := follows.Unfollow(from.ID, to.ID); err != nil {
		return err
	}
	if to.IsLocal() {
		return nil
	}
	return s.Deliver(ctx, from, UndoFollowActivity(from, to, followEcho(request, from, to)), to.Inbox())
}

func (s *Service) requestEndpoints(request *models.FollowRequest) (from, to *models.User, err error) {
	users := models.NewUsers(s.db)
	if from = request.From; from == nil {
		if from, err = users.Find(request.FromID); err != nil {
			return nil, nil, err
		}
	}
	if to = request.To; to == nil {
		if to, err = users.Find(request.ToID); err != nil {
			return nil, nil, err
		}
	}
	return from, to, nil
}

// handleFollow processes an inbound Follow aimed at a local user. Unless
// the target gates follows behind approval the relation is established and
// an Accept queued immediately.
func (s *Service) handleFollow(ctx context.Context, actor *models.User, activity *streams.Activity) error {
	if activity.Object == nil {
		return errors.New("follow has no object")
	}
	target, err := localUserByURI(s.db, activity.Object.ID)
	if err != nil {
		return fmt.Errorf("follow of unknown user %s: %w", activity.Object.ID, err)
	}
	follows := models.NewFollows(s.db)
	request, err := follows.Request(actor, target, activity.ID)
	if err != nil {
		return err
	}
	if target.RequiresFollowApproval {
		// left pending for the user to decide
		return nil
	}
	return s.AcceptFollow(ctx, request)
}

// handleAccept processes a peer's approval of a follow we delivered. The
// accepted Follow's id carries our request id in its trailing segment;
// anything that does not correlate to a pending request is ignored.
func (s *Service) handleAccept(ctx context.Context, actor *models.User, activity *streams.Activity) error {
	request, ok := s.correlateReply(actor, activity)
	if !ok {
		return nil
	}
	return models.NewFollows(s.db).Accept(request)
}

// handleReject is the mirror of handleAccept: the pending request is
// discarded.
func (s *Service) handleReject(ctx context.Context, actor *models.User, activity *streams.Activity) error {
	request, ok := s.correlateReply(actor, activity)
	if !ok {
		return nil
	}
	return models.NewFollows(s.db).Reject(request)
}

// correlateReply maps an Accept or Reject back to the pending follow
// request it answers, and checks the reply actually comes from the user
// the follow was aimed at.
func (s *Service) correlateReply(actor *models.User, activity *streams.Activity) (*models.FollowRequest, bool) {
	if activity.Object == nil {
		return nil, false
	}
	id, err := ids.Parse(trailingSegment(activity.Object.ID))
	if err != nil {
		return nil, false
	}
	request, err := models.NewFollows(s.db).FindRequest(id)
	if err != nil {
		return nil, false
	}
	if request.ToID != actor.ID {
		return nil, false
	}
	return request, true
}

// handleUndo retracts whatever the undone activity established. Only
// Follow undos are meaningful to us.
func (s *Service) handleUndo(ctx context.Context, actor *models.User, activity *streams.Activity) error {
	if activity.Object == nil || !activity.Object.Resolved() {
		return nil
	}
	inner, ok := activity.Object.Object.(*streams.Activity)
	if !ok || inner.Type != streams.TypeFollow {
		return nil
	}
	if inner.Object == nil {
		return nil
	}
	target, err := localUserByURI(s.db, inner.Object.ID)
	if err != nil {
		return nil
	}
	follows := models.NewFollows(s.db)
	if pending, err := follows.FindRequestBetween(actor.ID, target.ID); err == nil {
		if err := follows.Reject(pending); err != nil {
			return err
		}
	}
	return follows.Unfollow(actor.ID, target.ID)
}
