package activitypub

import (
	"context"

	"github.com/purifetchi/toki/internal/ids"
	"github.com/purifetchi/toki/models"
)

// CreatePost stores a post by a local user and queues the Create activity
// for delivery to their followers.
func (s *Service) CreatePost(ctx context.Context, author *models.User, content, warning string, sensitive bool, inReplyTo *models.Post) (*models.Post, error) {
	post := &models.Post{
		ID:             ids.New(),
		UserID:         author.ID,
		Content:        content,
		ContentWarning: warning,
		Sensitive:      sensitive,
	}
	if inReplyTo != nil {
		post.InReplyToID = &inReplyTo.ID
		post.InReplyTo = inReplyTo
	}
	if err := s.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, s.DeliverToFollowers(ctx, author, CreateActivity(post, author))
}

// Boost announces an existing post to the booster's followers. No state is
// kept locally beyond the delivery.
func (s *Service) Boost(ctx context.Context, booster *models.User, post *models.Post) error {
	return s.DeliverToFollowers(ctx, booster, AnnounceActivity(booster, post))
}
