package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/purifetchi/toki/internal/crypto"
	"github.com/purifetchi/toki/models"
)

type HousekeepingCmd struct {
}

func (c *HousekeepingCmd) Run(ctx *Context) error {
	db, err := gorm.Open(ctx.Dialector, &ctx.Config)
	if err != nil {
		return err
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		// delete keypairs whose user is gone
		res := tx.Exec(`
			DELETE FROM keypairs
			WHERE user_id NOT IN (SELECT id FROM users)
		`)
		if res.Error != nil {
			return res.Error
		}
		fmt.Println("deleted", res.RowsAffected, "orphaned keypairs")

		// delete remote users with no posts and no follow edges in
		// either direction
		res = tx.Exec(`
			DELETE FROM users
			WHERE is_remote = true
			AND id NOT IN (SELECT user_id FROM posts)
			AND id NOT IN (SELECT from_id FROM follower_relations)
			AND id NOT IN (SELECT to_id FROM follower_relations)
			AND id NOT IN (SELECT from_id FROM follow_requests)
			AND id NOT IN (SELECT to_id FROM follow_requests)
		`)
		if res.Error != nil {
			return res.Error
		}
		fmt.Println("deleted", res.RowsAffected, "idle remote users")
		return nil
	}); err != nil {
		return err
	}
	return reencodeKeypairs(db)
}

// reencodeKeypairs rewrites stored local key material into canonical PEM
// encoding. Keys imported from older versions may carry odd whitespace.
func reencodeKeypairs(db *gorm.DB) error {
	var keypairs []*models.Keypair
	if err := db.Where("private_key_pem IS NOT NULL").Find(&keypairs).Error; err != nil {
		return err
	}
	var fixed int
	for _, kp := range keypairs {
		reencoded, err := crypto.ReencodeKeypair(kp.PrivateKeyPem)
		if err != nil {
			return fmt.Errorf("keypair %s: %w", kp.ID, err)
		}
		if string(reencoded.PrivateKey) == string(kp.PrivateKeyPem) &&
			string(reencoded.PublicKey) == string(kp.PublicKeyPem) {
			continue
		}
		err = db.Model(kp).UpdateColumns(map[string]interface{}{
			"private_key_pem": reencoded.PrivateKey,
			"public_key_pem":  reencoded.PublicKey,
		}).Error
		if err != nil {
			return err
		}
		fixed++
	}
	fmt.Println("re-encoded", fixed, "keypairs")
	return nil
}
