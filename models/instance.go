package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/purifetchi/toki/internal/ids"
)

// An Instance is this server's own configuration row. There is one per
// served domain.
type Instance struct {
	ID          ids.ID `gorm:"primarykey;size:26"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Domain      string `gorm:"size:64;uniqueIndex;not null"`
	Title       string `gorm:"size:64"`
	Description string
	AdminID     *ids.ID `gorm:"size:26"`
	Admin       *User   `gorm:"constraint:OnDelete:SET NULL;<-:false;"`
}

// A RemoteInstance is a peer server we have federated with. The shared
// inbox, when the peer advertises one, coalesces deliveries to its users.
type RemoteInstance struct {
	ID             ids.ID `gorm:"primarykey;size:26"`
	CreatedAt      time.Time
	Domain         string `gorm:"size:64;uniqueIndex;not null"`
	SharedInboxURL string
	Software       string `gorm:"size:64"`
}

type Instances struct {
	db *gorm.DB
}

func NewInstances(db *gorm.DB) *Instances {
	return &Instances{db: db}
}

// Create creates a new instance row together with its admin user.
func (i *Instances) Create(domain, title, description, adminEmail string) (*Instance, error) {
	var instance Instance
	err := i.db.Transaction(func(tx *gorm.DB) error {
		admin, err := NewUsers(tx).CreateLocal(domain, "admin", adminEmail, nil)
		if err != nil {
			return err
		}
		instance = Instance{
			ID:          ids.New(),
			Domain:      domain,
			Title:       title,
			Description: description,
			AdminID:     &admin.ID,
		}
		return tx.Create(&instance).Error
	})
	return &instance, err
}

// FindByDomain returns the instance serving the given domain.
func (i *Instances) FindByDomain(domain string) (*Instance, error) {
	var instance Instance
	return &instance, i.db.Preload("Admin").Preload("Admin.Keypair").Where("domain = ?", domain).Take(&instance).Error
}

type RemoteInstances struct {
	db *gorm.DB
}

func NewRemoteInstances(db *gorm.DB) *RemoteInstances {
	return &RemoteInstances{db: db}
}

// FindOrCreate returns the peer row for domain, creating it on first
// contact. A concurrent first contact is resolved by the unique index on
// domain rather than application locking.
func (r *RemoteInstances) FindOrCreate(domain, sharedInbox string) (*RemoteInstance, error) {
	instance := RemoteInstance{
		ID:             ids.New(),
		Domain:         domain,
		SharedInboxURL: sharedInbox,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain"}},
		DoNothing: true,
	}).Create(&instance).Error
	if err != nil {
		return nil, err
	}
	return &instance, r.db.Where("domain = ?", domain).Take(&instance).Error
}
