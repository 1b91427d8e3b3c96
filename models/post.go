package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/internal/ids"
)

// A Post is a piece of content attributed to a user. Remote posts arrive
// through the inbox; local posts are federated out.
type Post struct {
	ID        ids.ID `gorm:"primarykey;size:26"`
	CreatedAt time.Time
	// ReceivedAt is when this server first saw the post. For remote posts
	// CreatedAt carries the origin's published time instead.
	ReceivedAt time.Time `gorm:"autoCreateTime"`

	// RemoteID is the canonical federated URI of the post, unique when
	// present.
	RemoteID *string `gorm:"uniqueIndex;size:512"`

	UserID ids.ID `gorm:"size:26;not null;index"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`

	// Content is sanitized HTML.
	Content        string
	ContentWarning string `gorm:"size:128"`
	Sensitive      bool   `gorm:"not null;default:false"`

	InReplyToID *ids.ID `gorm:"size:26"`
	InReplyTo   *Post   `gorm:"<-:false;"`
}

// URI returns the canonical ActivityPub id of the post. Local posts derive
// it from their author, which must be preloaded.
func (p *Post) URI() string {
	if p.RemoteID != nil {
		return *p.RemoteID
	}
	return fmt.Sprintf("https://%s/users/%s/posts/%s", p.User.Domain, p.User.Handle, p.ID)
}

// AfterCreate maintains the author's denormalized post count.
func (p *Post) AfterCreate(tx *gorm.DB) error {
	return tx.Model(&User{ID: p.UserID}).UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
}

// AfterDelete is the inverse of AfterCreate.
func (p *Post) AfterDelete(tx *gorm.DB) error {
	return tx.Model(&User{ID: p.UserID}).UpdateColumn("post_count", gorm.Expr("post_count - 1")).Error
}

type Posts struct {
	db *gorm.DB
}

func NewPosts(db *gorm.DB) *Posts {
	return &Posts{db: db}
}

// Find returns a post by id.
func (p *Posts) Find(id ids.ID) (*Post, error) {
	var post Post
	return &post, p.db.Preload("User").Take(&post, "id = ?", id).Error
}

// FindByRemoteID returns a post by its canonical federated URI.
func (p *Posts) FindByRemoteID(uri string) (*Post, error) {
	var post Post
	return &post, p.db.Preload("User").Where("remote_id = ?", uri).Take(&post).Error
}

// ByUser returns up to limit of the user's posts, newest first. The cursor
// is a post id; ids sort by creation time.
func (p *Posts) ByUser(userID ids.ID, maxID ids.ID, limit int) ([]*Post, error) {
	query := p.db.Preload("InReplyTo").Preload("InReplyTo.User").Where("user_id = ?", userID)
	if maxID != "" {
		query = query.Where("id < ?", maxID)
	}
	var posts []*Post
	return posts, query.Order("id desc").Limit(limit).Find(&posts).Error
}

// CountByUser returns the number of posts the user has made.
func (p *Posts) CountByUser(userID ids.ID) (int64, error) {
	var count int64
	return count, p.db.Model(&Post{}).Where("user_id = ?", userID).Count(&count).Error
}
