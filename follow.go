package main

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/activitypub"
	"github.com/purifetchi/toki/internal/webfinger"
	"github.com/purifetchi/toki/models"
)

type FollowCmd struct {
	Account string `required:"" help:"local account to follow with, e.g. kio@toki.example"`
	Target  string `required:"" help:"account to follow, e.g. mia@fed.example"`
}

func (f *FollowCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	from, err := localUser(db, f.Account)
	if err != nil {
		return err
	}

	acct, err := webfinger.Parse(f.Target)
	if err != nil {
		return err
	}
	finger, err := acct.Fetch(context.Background())
	if err != nil {
		return fmt.Errorf("webfinger %s: %w", f.Target, err)
	}
	uri, err := finger.ActivityPub()
	if err != nil {
		return err
	}

	service := activitypub.NewService(db, &activitypub.GormQueue{DB: db})
	to, err := service.FindOrImportUser(context.Background(), from, uri)
	if err != nil {
		return err
	}
	return service.RequestFollow(context.Background(), from, to)
}

type BoostCmd struct {
	Account string `required:"" help:"local account boosting"`
	Post    string `required:"" help:"uri of the post to boost"`
}

func (b *BoostCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	booster, err := localUser(db, b.Account)
	if err != nil {
		return err
	}
	post, err := models.NewPosts(db).FindByRemoteID(b.Post)
	if err != nil {
		return fmt.Errorf("post %s is not known here: %w", b.Post, err)
	}
	service := activitypub.NewService(db, &activitypub.GormQueue{DB: db})
	return service.Boost(context.Background(), booster, post)
}

type BiteCmd struct {
	Account string `required:"" help:"local account biting, e.g. kio@toki.example"`
	Target  string `required:"" help:"account to bite, e.g. mia@fed.example"`
}

func (b *BiteCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	from, err := localUser(db, b.Account)
	if err != nil {
		return err
	}
	acct, err := webfinger.Parse(b.Target)
	if err != nil {
		return err
	}
	finger, err := acct.Fetch(context.Background())
	if err != nil {
		return fmt.Errorf("webfinger %s: %w", b.Target, err)
	}
	uri, err := finger.ActivityPub()
	if err != nil {
		return err
	}
	service := activitypub.NewService(db, &activitypub.GormQueue{DB: db})
	to, err := service.FindOrImportUser(context.Background(), from, uri)
	if err != nil {
		return err
	}
	return service.Bite(context.Background(), from, to)
}

type PostCmd struct {
	Account        string `required:"" help:"local account to post as"`
	Content        string `required:"" help:"content of the post"`
	ContentWarning string `help:"content warning to place on the post"`
	Sensitive      bool   `help:"mark the post as sensitive"`
}

func (p *PostCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	author, err := localUser(db, p.Account)
	if err != nil {
		return err
	}
	service := activitypub.NewService(db, &activitypub.GormQueue{DB: db})
	post, err := service.CreatePost(context.Background(), author, p.Content, p.ContentWarning, p.Sensitive, nil)
	if err != nil {
		return err
	}
	fmt.Println("created post", post.ID)
	return nil
}

// localUser resolves a handle@domain to a local user.
func localUser(db *gorm.DB, account string) (*models.User, error) {
	parts := strings.SplitN(strings.TrimPrefix(account, "@"), "@", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid account: %q", account)
	}
	return models.NewUsers(db).FindByHandle(parts[0], parts[1])
}
