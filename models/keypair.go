package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/internal/ids"
)

// A Keypair is a user's signing key material, generated once at creation
// and immutable afterwards apart from the housekeeping PEM re-encode. The
// private half is present for local users only.
type Keypair struct {
	ID        ids.ID `gorm:"primarykey;size:26"`
	CreatedAt time.Time

	// one keypair per user, enforced by the index
	UserID ids.ID `gorm:"size:26;uniqueIndex;not null"`
	User   *User  `gorm:"constraint:OnDelete:CASCADE;<-:false;"`

	// RemoteID is the federated key id, e.g. https://host/users/x#main-key.
	RemoteID *string `gorm:"uniqueIndex;size:512"`

	PublicKeyPem  []byte `gorm:"not null"`
	PrivateKeyPem []byte
}

// KeyID returns the federated id of the key.
func (k *Keypair) KeyID(owner *User) string {
	if k.RemoteID != nil {
		return *k.RemoteID
	}
	return fmt.Sprintf("%s#main-key", owner.URI())
}

type Keypairs struct {
	db *gorm.DB
}

func NewKeypairs(db *gorm.DB) *Keypairs {
	return &Keypairs{db: db}
}

// FindByRemoteID returns a keypair by its federated key id, with its owner.
func (k *Keypairs) FindByRemoteID(keyID string) (*Keypair, error) {
	var keypair Keypair
	return &keypair, k.db.Preload("User").Where("remote_id = ?", keyID).Take(&keypair).Error
}

// FindByUser returns the keypair belonging to the given user.
func (k *Keypairs) FindByUser(userID ids.ID) (*Keypair, error) {
	var keypair Keypair
	return &keypair, k.db.Where("user_id = ?", userID).Take(&keypair).Error
}
