package activitypub

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"gorm.io/gorm"

	"github.com/purifetchi/toki/internal/algorithms"
	"github.com/purifetchi/toki/internal/ids"
	"github.com/purifetchi/toki/models"
	"github.com/purifetchi/toki/streams"
)

// MaxDeliveryAttempts is the retry ceiling. A task that still has failing
// inboxes after this many passes is dropped.
const MaxDeliveryAttempts = 10

// Queue hands work to the durable task queue. Enqueue calls return as soon
// as the work is recorded; a worker picks it up later.
type Queue interface {
	EnqueueDelivery(ctx context.Context, activityJSON []byte, inboxes []string, actorID ids.ID) error
	EnqueueInbox(ctx context.Context, payload []byte, subjectID *ids.ID) error
}

// GormQueue is the Queue implementation backed by the task tables.
type GormQueue struct {
	DB *gorm.DB
}

func (q *GormQueue) EnqueueDelivery(_ context.Context, activityJSON []byte, inboxes []string, actorID ids.ID) error {
	return models.NewDeliveries(q.DB).Enqueue(activityJSON, inboxes, actorID)
}

func (q *GormQueue) EnqueueInbox(_ context.Context, payload []byte, subjectID *ids.ID) error {
	return models.NewInboxActivities(q.DB).Enqueue(payload, subjectID)
}

// RetryDelay returns the backoff before the given attempt: 5 seconds ahead
// of the first retry, growing 2.5x with each subsequent one.
func RetryDelay(retry int) time.Duration {
	var seconds float64
	for i := 0; i < retry; i++ {
		seconds += 5 * math.Pow(2.5, float64(i))
	}
	return time.Duration(seconds * float64(time.Second))
}

// Deliver serializes an activity and queues its delivery to the given
// inboxes, signed by actor.
func (s *Service) Deliver(ctx context.Context, actor *models.User, activity *streams.Activity, inboxes ...string) error {
	data, err := streams.Encode(activity)
	if err != nil {
		return err
	}
	inboxes = algorithms.Uniq(algorithms.Filter(inboxes, func(inbox string) bool {
		return inbox != ""
	}))
	return s.queue.EnqueueDelivery(ctx, data, inboxes, actor.ID)
}

// DeliverToFollowers fans an activity out to every follower's inbox.
// Followers on the same instance coalesce onto its shared inbox.
func (s *Service) DeliverToFollowers(ctx context.Context, actor *models.User, activity *streams.Activity) error {
	followers, err := models.NewFollows(s.db).Followers(actor.ID)
	if err != nil {
		return err
	}
	inboxes := algorithms.Map(followers, func(follower *models.User) string {
		if follower.IsLocal() {
			return ""
		}
		return follower.Inbox()
	})
	return s.Deliver(ctx, actor, activity, inboxes...)
}

// Attempt tries each inbox of a delivery task once, returning the inboxes
// that failed and should be retried. An inbox answering 410 Gone is
// treated as permanently defunct and not retried.
func Attempt(ctx context.Context, client *Client, task *models.DeliveryTask) (failed []string, lastErr error) {
	for _, inbox := range task.Inboxes {
		err := client.Post(ctx, inbox, task.ActivityJSON)
		switch {
		case err == nil:
		case requests.HasStatusErr(err, http.StatusGone):
			// the inbox is gone for good, drop it
		default:
			failed = append(failed, inbox)
			lastErr = err
		}
	}
	return failed, lastErr
}
