package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-json-experiment/json"
	"gorm.io/gorm"

	"github.com/purifetchi/toki/activitypub"
	"github.com/purifetchi/toki/streams"
)

type FetchActorCmd struct {
	Account string `required:"" help:"local account to sign the request with"`
	Actor   string `required:"" help:"uri of the actor to fetch"`
	Import  bool   `help:"import the actor after fetching"`
}

func (f *FetchActorCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	signAs, err := localUser(db, f.Account)
	if err != nil {
		return fmt.Errorf("failed to find account: %w", err)
	}

	service := activitypub.NewService(db, &activitypub.GormQueue{DB: db})
	if f.Import {
		user, err := service.FindOrImportUser(context.Background(), signAs, f.Actor)
		if err != nil {
			return err
		}
		fmt.Println("imported", user.Acct(), "as", user.ID)
		return nil
	}

	resolver, err := service.Resolver(signAs)
	if err != nil {
		return err
	}
	actor, err := activitypub.Resolve[*streams.Actor](context.Background(), resolver, streams.NewRef(f.Actor))
	if err != nil {
		return err
	}
	return json.MarshalOptions{}.MarshalFull(json.EncodeOptions{Indent: "  "}, os.Stdout, actor)
}
