package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/activitypub"
	"github.com/purifetchi/toki/internal/ids"
	"github.com/purifetchi/toki/models"
)

// NewDeliveryProcessor drains the outbound delivery queue: each due task is
// attempted once against every remaining inbox, and the failures are
// rescheduled as a new task with backoff.
func NewDeliveryProcessor(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log.Println("DeliveryProcessor started")
		defer log.Println("DeliveryProcessor stopped")

		d := &deliverer{clients: make(map[ids.ID]*activitypub.Client)}
		return run(ctx, db, func(db *gorm.DB) error {
			return process(db, deliveryScope, d.deliver)
		})
	}
}

func deliveryScope(db *gorm.DB) *gorm.DB {
	return db.Preload("Actor").Preload("Actor.Keypair").Where("not_before <= ?", time.Now())
}

type deliverer struct {
	// clients are cached per signing actor
	clients map[ids.ID]*activitypub.Client
}

func (d *deliverer) clientFor(actor *models.User) (*activitypub.Client, error) {
	if client, ok := d.clients[actor.ID]; ok {
		return client, nil
	}
	client, err := activitypub.NewClient(actor)
	if err != nil {
		return nil, err
	}
	d.clients[actor.ID] = client
	return client, nil
}

func (d *deliverer) deliver(db *gorm.DB, task *models.DeliveryTask) error {
	if task.Actor == nil {
		return fmt.Errorf("delivery %s has no actor", task.ID)
	}
	client, err := d.clientFor(task.Actor)
	if err != nil {
		return err
	}
	failed, lastErr := activitypub.Attempt(db.Statement.Context, client, task)
	if len(failed) == 0 {
		return nil
	}
	next := task.Attempts + 1
	if next >= activitypub.MaxDeliveryAttempts {
		log.Printf("delivery %s gave up after %d attempts, %d inboxes unreached: %v", task.ID, next, len(failed), lastErr)
		return nil
	}
	return models.NewDeliveries(db).Reschedule(task, failed, activitypub.RetryDelay(next), lastErr.Error())
}
