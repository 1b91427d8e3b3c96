package main

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/purifetchi/toki/models"
)

type CreateAccountCmd struct {
	Email    string `required:"" help:"email address of the user to create"`
	Password string `required:"" help:"password of the user to create"`
	Locked   bool   `help:"require approval for new followers"`
}

func (c *CreateAccountCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	parts := strings.Split(c.Email, "@")
	if len(parts) != 2 {
		return errors.New("invalid email address")
	}
	handle, domain := parts[0], parts[1]

	if _, err := models.NewInstances(db).FindByDomain(domain); err != nil {
		return err
	}

	passwd, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user, err := models.NewUsers(db).CreateLocal(domain, handle, c.Email, passwd)
	if err != nil {
		return err
	}
	if c.Locked {
		return db.Model(user).UpdateColumn("requires_follow_approval", true).Error
	}
	return nil
}

type DeleteAccountCmd struct {
	Email string `required:"" help:"email address of the user to delete"`
}

func (d *DeleteAccountCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}

	parts := strings.Split(d.Email, "@")
	if len(parts) != 2 {
		return errors.New("invalid email address")
	}
	user, err := models.NewUsers(db).FindByHandle(parts[0], parts[1])
	if err != nil {
		return err
	}
	return db.Delete(user).Error
}
