package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/internal/crypto"
	"github.com/purifetchi/toki/internal/ids"
)

// A User is an actor known to this instance, local or remote. Local users
// hold a private key and may log in; remote users are cached copies of
// actors discovered through federation.
type User struct {
	ID         ids.ID `gorm:"primarykey;size:26"`
	CreatedAt  time.Time
	ReceivedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time

	// RemoteID is the canonical federated URI of the actor, unique when
	// present. Local users derive their URI from handle and domain instead.
	RemoteID *string `gorm:"uniqueIndex;size:512"`

	Handle      string `gorm:"size:64;uniqueIndex:idx_users_handle_domain;not null"`
	Domain      string `gorm:"size:64;uniqueIndex:idx_users_handle_domain;not null"`
	DisplayName string `gorm:"size:128"`
	Bio         string

	IsRemote               bool `gorm:"not null;default:false"`
	RequiresFollowApproval bool `gorm:"not null;default:false"`

	Email             string `gorm:"size:128"`
	EncryptedPassword []byte

	AvatarURL string
	HeaderURL string

	// InboxURL is set for remote users only.
	InboxURL         string
	RemoteInstanceID *ids.ID         `gorm:"size:26"`
	RemoteInstance   *RemoteInstance `gorm:"<-:false;"`

	FollowerCount  int32 `gorm:"not null;default:0"`
	FollowingCount int32 `gorm:"not null;default:0"`
	PostCount      int32 `gorm:"not null;default:0"`

	Keypair *Keypair `gorm:"constraint:OnDelete:CASCADE;"`
}

// IsLocal indicates whether the user lives on this instance.
func (u *User) IsLocal() bool {
	return !u.IsRemote
}

// URI returns the canonical ActivityPub id of the user.
func (u *User) URI() string {
	if u.RemoteID != nil {
		return *u.RemoteID
	}
	return fmt.Sprintf("https://%s/users/%s", u.Domain, u.Handle)
}

// Acct returns the short account form, bare for local users.
func (u *User) Acct() string {
	if u.IsLocal() {
		return u.Handle
	}
	return fmt.Sprintf("%s@%s", u.Handle, u.Domain)
}

// Inbox returns the user's delivery inbox, preferring the home instance's
// shared inbox when it exposes one.
func (u *User) Inbox() string {
	if u.RemoteInstance != nil && u.RemoteInstance.SharedInboxURL != "" {
		return u.RemoteInstance.SharedInboxURL
	}
	return u.InboxURL
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// Find returns a user by id.
func (u *Users) Find(id ids.ID) (*User, error) {
	var user User
	return &user, u.db.Preload("Keypair").Preload("RemoteInstance").Take(&user, "id = ?", id).Error
}

// FindByHandle returns a local user by handle.
func (u *Users) FindByHandle(handle, domain string) (*User, error) {
	var user User
	return &user, u.db.Preload("Keypair").Where("handle = ? AND domain = ? AND is_remote = false", handle, domain).Take(&user).Error
}

// FindByRemoteID returns a user by their canonical federated URI.
func (u *Users) FindByRemoteID(uri string) (*User, error) {
	var user User
	return &user, u.db.Preload("Keypair").Preload("RemoteInstance").Where("remote_id = ?", uri).Take(&user).Error
}

// FindOrCreateByRemoteID returns the user with the given URI, importing it
// with fetch on first sight.
func (u *Users) FindOrCreateByRemoteID(uri string, fetch func(uri string) (*User, error)) (*User, error) {
	user, err := u.FindByRemoteID(uri)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	user, err = fetch(uri)
	if err != nil {
		return nil, err
	}
	if err := u.db.Create(user).Error; err != nil {
		// a concurrent import may have won the race on remote_id;
		// whoever inserted it, the row is there now
		if imported, findErr := u.FindByRemoteID(uri); findErr == nil {
			return imported, nil
		}
		return nil, err
	}
	return user, nil
}

// CreateLocal creates a local user with a fresh keypair. password is the
// bcrypt hash, or nil for role accounts that cannot log in.
func (u *Users) CreateLocal(domain, handle, email string, password []byte) (*User, error) {
	kp, err := crypto.GenerateRSAKeypair()
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:                ids.New(),
		Handle:            handle,
		Domain:            domain,
		DisplayName:       handle,
		Email:             email,
		EncryptedPassword: password,
		Keypair: &Keypair{
			ID:            ids.New(),
			PublicKeyPem:  kp.PublicKey,
			PrivateKeyPem: kp.PrivateKey,
		},
	}
	return user, u.db.Create(user).Error
}
