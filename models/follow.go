package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/purifetchi/toki/internal/ids"
)

// A FollowRequest is the pending edge of a follow that has been asked for
// but not yet accepted. Acceptance atomically replaces it with a
// FollowerRelation; rejection simply deletes it. The two rows never exist
// for the same pair at the same time.
type FollowRequest struct {
	ID        ids.ID `gorm:"primarykey;size:26"`
	CreatedAt time.Time

	// RemoteID is the URI of the Follow activity this request was
	// federated as, used to correlate the eventual Accept.
	RemoteID *string `gorm:"uniqueIndex;size:512"`

	FromID ids.ID `gorm:"size:26;uniqueIndex:idx_follow_requests_from_to;not null"`
	From   *User  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	ToID   ids.ID `gorm:"size:26;uniqueIndex:idx_follow_requests_from_to;not null"`
	To     *User  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
}

// A FollowerRelation is the materialized edge of an established follow.
// There is no composite uniqueness constraint at the database level;
// exactly one relation per pair is an invariant the accept path preserves.
type FollowerRelation struct {
	ID        ids.ID `gorm:"primarykey;size:26"`
	CreatedAt time.Time

	FromID ids.ID `gorm:"size:26;index;not null"`
	From   *User  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	ToID   ids.ID `gorm:"size:26;index;not null"`
	To     *User  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
}

type Follows struct {
	db *gorm.DB
}

func NewFollows(db *gorm.DB) *Follows {
	return &Follows{db: db}
}

// Request records a pending follow from one user to another. remoteID is
// the Follow activity URI when propagating a remote request, empty when the
// request originates here. A repeated request for the same pair updates the
// existing row instead of erroring.
func (f *Follows) Request(from, to *User, remoteURI string) (*FollowRequest, error) {
	request := FollowRequest{
		ID:       ids.New(),
		RemoteID: remoteID(remoteURI),
		FromID:   from.ID,
		ToID:     to.ID,
	}
	err := f.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_id"}, {Name: "to_id"}},
		DoNothing: true,
	}).Create(&request).Error
	if err != nil {
		return nil, err
	}
	// Take into a zero value: gorm folds a populated primary key on the
	// destination into the WHERE clause, which would miss the existing row
	// whenever the insert above was skipped by the conflict clause.
	var existing FollowRequest
	return &existing, f.db.Where("from_id = ? AND to_id = ?", from.ID, to.ID).Take(&existing).Error
}

// FindRequest returns a pending request by id.
func (f *Follows) FindRequest(id ids.ID) (*FollowRequest, error) {
	var request FollowRequest
	return &request, f.db.Preload("From").Preload("To").Take(&request, "id = ?", id).Error
}

// FindRequestBetween returns the pending request between two users.
func (f *Follows) FindRequestBetween(fromID, toID ids.ID) (*FollowRequest, error) {
	var request FollowRequest
	return &request, f.db.Preload("From").Preload("To").Where("from_id = ? AND to_id = ?", fromID, toID).Take(&request).Error
}

// Accept establishes the follow: in one transaction the request is deleted,
// the relation inserted and the denormalized counters bumped. Accepting a
// request that is already gone is a no-op, so concurrent accepts of the
// same request cannot double count. Accepting a request for a pair that is
// already following deletes the request but leaves the relation and the
// counters alone.
func (f *Follows) Accept(request *FollowRequest) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", request.ID).Delete(&FollowRequest{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// someone else accepted or rejected it first
			return nil
		}
		var count int64
		if err := tx.Model(&FollowerRelation{}).Where("from_id = ? AND to_id = ?", request.FromID, request.ToID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			// a redelivered Follow re-created the request after the pair was
			// already established; drop the request and keep the one relation
			return nil
		}
		relation := FollowerRelation{
			ID:     ids.New(),
			FromID: request.FromID,
			ToID:   request.ToID,
		}
		if err := tx.Create(&relation).Error; err != nil {
			return err
		}
		return forEach(tx,
			func(tx *gorm.DB) error {
				return tx.Model(&User{ID: request.ToID}).UpdateColumn("follower_count", gorm.Expr("follower_count + 1")).Error
			},
			func(tx *gorm.DB) error {
				return tx.Model(&User{ID: request.FromID}).UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error
			},
		)
	})
}

// Reject deletes the pending request without establishing a relation.
func (f *Follows) Reject(request *FollowRequest) error {
	return f.db.Where("id = ?", request.ID).Delete(&FollowRequest{}).Error
}

// Established creates the relation directly, bypassing the request stage.
// Used when the followee does not gate follows behind approval. Idempotent
// for the same pair.
func (f *Follows) Established(from, to *User) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&FollowerRelation{}).Where("from_id = ? AND to_id = ?", from.ID, to.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			// exactly one relation per pair
			return nil
		}
		relation := FollowerRelation{
			ID:     ids.New(),
			FromID: from.ID,
			ToID:   to.ID,
		}
		if err := tx.Create(&relation).Error; err != nil {
			return err
		}
		return forEach(tx,
			func(tx *gorm.DB) error {
				return tx.Model(&User{ID: to.ID}).UpdateColumn("follower_count", gorm.Expr("follower_count + 1")).Error
			},
			func(tx *gorm.DB) error {
				return tx.Model(&User{ID: from.ID}).UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error
			},
		)
	})
}

// Unfollow removes an established relation, decrementing counters. Removing
// a relation that does not exist is a no-op.
func (f *Follows) Unfollow(fromID, toID ids.ID) error {
	return f.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("from_id = ? AND to_id = ?", fromID, toID).Delete(&FollowerRelation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return forEach(tx,
			func(tx *gorm.DB) error {
				return tx.Model(&User{ID: toID}).UpdateColumn("follower_count", gorm.Expr("follower_count - 1")).Error
			},
			func(tx *gorm.DB) error {
				return tx.Model(&User{ID: fromID}).UpdateColumn("following_count", gorm.Expr("following_count - 1")).Error
			},
		)
	})
}

// IsFollowing reports whether from has an established follow of to.
func (f *Follows) IsFollowing(fromID, toID ids.ID) (bool, error) {
	var count int64
	err := f.db.Model(&FollowerRelation{}).Where("from_id = ? AND to_id = ?", fromID, toID).Count(&count).Error
	return count > 0, err
}

// Followers returns the users following the given user.
func (f *Follows) Followers(userID ids.ID) ([]*User, error) {
	var relations []*FollowerRelation
	if err := f.db.Preload("From").Preload("From.RemoteInstance").Where("to_id = ?", userID).Find(&relations).Error; err != nil {
		return nil, err
	}
	followers := make([]*User, 0, len(relations))
	for _, rel := range relations {
		followers = append(followers, rel.From)
	}
	return followers, nil
}

// Following returns the users the given user follows.
func (f *Follows) Following(userID ids.ID) ([]*User, error) {
	var relations []*FollowerRelation
	if err := f.db.Preload("To").Preload("To.RemoteInstance").Where("from_id = ?", userID).Find(&relations).Error; err != nil {
		return nil, err
	}
	following := make([]*User, 0, len(relations))
	for _, rel := range relations {
		following = append(following, rel.To)
	}
	return following, nil
}
