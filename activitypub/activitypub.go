// Package activitypub implements the federation side of the server: actor
// documents, inbox and outbox endpoints, signature validation, the follow
// state machine and queued signed delivery to other instances.
package activitypub

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/models"
)

// Env is the request environment shared by the federation HTTP handlers.
type Env struct {
	DB    *gorm.DB
	Queue Queue
}

func (e *Env) service() *Service {
	return NewService(e.DB, e.Queue)
}

// Service wires the federation pipeline together: resolving remote actors,
// validating inbound activities, running the follow state machine and
// fanning deliveries out to followers.
type Service struct {
	db    *gorm.DB
	queue Queue

	// resolver overrides remote fetching in tests
	resolver *Resolver
}

func NewService(db *gorm.DB, queue Queue) *Service {
	return &Service{db: db, queue: queue}
}

// Resolver returns the resolver used for remote lookups, signing as the
// given local user.
func (s *Service) Resolver(signAs *models.User) (*Resolver, error) {
	if s.resolver != nil {
		return s.resolver, nil
	}
	client, err := NewClient(signAs)
	if err != nil {
		return nil, err
	}
	return NewResolver(client), nil
}

// instanceAdmin returns the admin user of this instance, which signs
// fetches performed on the instance's own behalf.
func instanceAdmin(db *gorm.DB) (*models.User, error) {
	var instance models.Instance
	if err := db.Joins("Admin").Preload("Admin.Keypair").Take(&instance, "admin_id is not null").Error; err != nil {
		return nil, err
	}
	if instance.Admin == nil {
		return nil, errors.New("instance has no admin user")
	}
	return instance.Admin, nil
}

// localUserByURI resolves an actor URI of the form https://host/users/name
// to the local user it names.
func localUserByURI(db *gorm.DB, uri string) (*models.User, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	handle, ok := strings.CutPrefix(u.Path, "/users/")
	if !ok || handle == "" || strings.Contains(handle, "/") {
		return nil, fmt.Errorf("not a local actor uri: %s", uri)
	}
	return models.NewUsers(db).FindByHandle(handle, u.Host)
}

// trailingSegment returns the last path segment of a URI, used to correlate
// Accept and Reject replies with the follow request they answer.
func trailingSegment(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	path := strings.TrimSuffix(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i != -1 {
		return path[i+1:]
	}
	return path
}
