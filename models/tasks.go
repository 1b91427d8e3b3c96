package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/internal/ids"
)

// A DeliveryTask is one queued outbound federation delivery: a serialized
// activity and the inbox URLs it still needs to reach. Failed targets are
// rescheduled as a new pass over the task with only the failed subset.
type DeliveryTask struct {
	ID        ids.ID `gorm:"primarykey;size:26"`
	CreatedAt time.Time

	ActivityJSON []byte   `gorm:"not null"`
	Inboxes      []string `gorm:"serializer:json;not null"`

	// ActorID is the local user whose key signs the deliveries.
	ActorID ids.ID `gorm:"size:26;not null"`
	Actor   *User  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`

	Attempts    int       `gorm:"not null;default:0"`
	NotBefore   time.Time `gorm:"index"`
	LastAttempt time.Time
	LastResult  string
}

// An InboxActivity is a signed, accepted but not yet processed inbound
// payload. The HTTP handler stores it and returns; a worker dispatches it.
type InboxActivity struct {
	ID         ids.ID `gorm:"primarykey;size:26"`
	ReceivedAt time.Time `gorm:"autoCreateTime"`

	Payload []byte `gorm:"not null"`

	// SubjectID is the local user whose inbox received the activity; nil
	// for the shared inbox.
	SubjectID *ids.ID `gorm:"size:26"`
	Subject   *User   `gorm:"constraint:OnDelete:CASCADE;<-:false;"`

	Attempts    int `gorm:"not null;default:0"`
	LastAttempt time.Time
	LastResult  string
}

type Deliveries struct {
	db *gorm.DB
}

func NewDeliveries(db *gorm.DB) *Deliveries {
	return &Deliveries{db: db}
}

// Enqueue schedules a delivery for immediate attempt.
func (d *Deliveries) Enqueue(activityJSON []byte, inboxes []string, actorID ids.ID) error {
	if len(inboxes) == 0 {
		return nil
	}
	return d.db.Create(&DeliveryTask{
		ID:           ids.New(),
		ActivityJSON: activityJSON,
		Inboxes:      inboxes,
		ActorID:      actorID,
		NotBefore:    time.Now(),
	}).Error
}

// Reschedule queues a follow-up pass carrying only the failed inboxes,
// delayed by the backoff for the next attempt.
func (d *Deliveries) Reschedule(task *DeliveryTask, failed []string, delay time.Duration, result string) error {
	return d.db.Create(&DeliveryTask{
		ID:           ids.New(),
		ActivityJSON: task.ActivityJSON,
		Inboxes:      failed,
		ActorID:      task.ActorID,
		Attempts:     task.Attempts + 1,
		NotBefore:    time.Now().Add(delay),
		LastResult:   result,
	}).Error
}

type InboxActivities struct {
	db *gorm.DB
}

func NewInboxActivities(db *gorm.DB) *InboxActivities {
	return &InboxActivities{db: db}
}

// Enqueue stores an accepted inbound payload for asynchronous processing.
func (i *InboxActivities) Enqueue(payload []byte, subjectID *ids.ID) error {
	return i.db.Create(&InboxActivity{
		ID:        ids.New(),
		Payload:   payload,
		SubjectID: subjectID,
	}).Error
}
