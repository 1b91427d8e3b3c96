package workers

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/activitypub"
	"github.com/purifetchi/toki/models"
)

// NewInboxProcessor dispatches queued inbound activities to their
// handlers. Payloads that keep failing stay parked with their last error
// rather than wedging the queue.
func NewInboxProcessor(db *gorm.DB, queue activitypub.Queue) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log.Println("InboxProcessor started")
		defer log.Println("InboxProcessor stopped")

		return run(ctx, db, func(db *gorm.DB) error {
			return process(db, inboxScope, func(db *gorm.DB, task *models.InboxActivity) error {
				service := activitypub.NewService(db, queue)
				return service.ProcessActivity(db.Statement.Context, task.Payload, task.SubjectID)
			})
		})
	}
}

func inboxScope(db *gorm.DB) *gorm.DB {
	return db.Where("attempts < 3")
}
