package main

import (
	"github.com/alecthomas/kong"
	"gorm.io/gorm"
)

type Context struct {
	Debug bool

	gorm.Dialector
	gorm.Config
}

var cli struct {
	Debug bool   `help:"Enable debug mode."`
	DSN   string `required:"" help:"Data source name."`

	Serve          ServeCmd          `cmd:"" help:"Serve the instance."`
	AutoMigrate    AutoMigrateCmd    `cmd:"" help:"Automigrate the database."`
	CreateInstance CreateInstanceCmd `cmd:"" help:"Create an instance."`
	CreateAccount  CreateAccountCmd  `cmd:"" help:"Create an account."`
	DeleteAccount  DeleteAccountCmd  `cmd:"" help:"Delete an account."`
	Follow         FollowCmd         `cmd:"" help:"Follow a remote account."`
	Bite           BiteCmd           `cmd:"" help:"Bite a remote account."`
	Post           PostCmd           `cmd:"" help:"Post as a local account."`
	Boost          BoostCmd          `cmd:"" help:"Boost a post."`
	FetchActor     FetchActorCmd     `cmd:"" help:"Fetch an actor document."`
	Housekeeping   HousekeepingCmd   `cmd:"" help:"Tidy up the database."`
}

func main() {
	ctx := kong.Parse(&cli)
	err := ctx.Run(&Context{
		Debug:     cli.Debug,
		Dialector: newDialector(cli.DSN),
	})
	ctx.FatalIfErrorf(err)
}
