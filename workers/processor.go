// Package workers contains the background loops that drain the task
// queues: outbound delivery and inbound dispatch.
package workers

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// pollInterval is how long a drained worker sleeps before looking for new
// work.
const pollInterval = 5 * time.Second

// run calls pass repeatedly until the context is cancelled, sleeping
// between passes.
func run(ctx context.Context, db *gorm.DB, pass func(db *gorm.DB) error) error {
	db = db.WithContext(ctx)
	for {
		if err := pass(db); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(pollInterval):
			// continue
		}
	}
}

// process makes one pass over the rows matching the scope, calling fn for
// each one. A row whose fn returns nil is deleted; one whose fn errors is
// annotated with the failure and left for the next pass.
func process[T any](db *gorm.DB, scope func(*gorm.DB) *gorm.DB, fn func(*gorm.DB, T) error) error {
	var tasks []T
	return db.Scopes(scope).FindInBatches(&tasks, 100, func(db *gorm.DB, batch int) error {
		return forEach(tasks, func(task T) error {
			start := time.Now()
			if err := fn(db, task); err != nil {
				return db.Model(task).UpdateColumns(map[string]interface{}{
					"attempts":     gorm.Expr("attempts + 1"),
					"last_attempt": start,
					"last_result":  err.Error(),
				}).Error
			}
			return db.Delete(task).Error
		})
	}).Error
}

func forEach[T any](a []T, fn func(T) error) error {
	for _, v := range a {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
