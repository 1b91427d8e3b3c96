// Package models contains the persisted entities and their repositories.
package models

import (
	"gorm.io/gorm"
)

// AllTables returns a slice of all the tables in the database, in an order
// suitable for migration.
func AllTables() []interface{} {
	return []interface{}{
		&Instance{},
		&RemoteInstance{},
		&User{},
		&Keypair{},
		&Post{},
		&FollowRequest{},
		&FollowerRelation{},
		&DeliveryTask{},
		&InboxActivity{},
	}
}

// forEach runs fn in order, stopping at the first error.
func forEach(tx *gorm.DB, fns ...func(tx *gorm.DB) error) error {
	for _, fn := range fns {
		if err := fn(tx); err != nil {
			return err
		}
	}
	return nil
}

// remoteID wraps a federated URI for storage in a unique-when-present
// column. Nulls do not collide under the unique index; empty strings would.
func remoteID(uri string) *string {
	if uri == "" {
		return nil
	}
	return &uri
}
