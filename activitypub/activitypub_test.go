package activitypub

import (
	"context"
	"crypto/rsa"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/purifetchi/toki/internal/crypto"
	"github.com/purifetchi/toki/internal/ids"
	"github.com/purifetchi/toki/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	require.NoError(err)

	err = db.AutoMigrate(models.AllTables()...)
	require.NoError(err)

	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}

// mockInstance creates the instance row, admin account included.
func mockInstance(t *testing.T, tx *gorm.DB, domain string) *models.Instance {
	t.Helper()
	instance, err := models.NewInstances(tx).Create(domain, "Test", "a test instance", "admin@"+domain)
	require.NoError(t, err)
	return instance
}

// mockLocalUser creates a local user with a full keypair.
func mockLocalUser(t *testing.T, tx *gorm.DB, handle, domain string) *models.User {
	t.Helper()
	user, err := models.NewUsers(tx).CreateLocal(domain, handle, handle+"@"+domain, nil)
	require.NoError(t, err)
	return user
}

// mockRemoteUser creates a remote user as the inbox dispatcher would have
// imported it, and hands back the private half of its key so tests can
// sign requests on its behalf.
func mockRemoteUser(t *testing.T, tx *gorm.DB, handle, domain string) (*models.User, *rsa.PrivateKey) {
	t.Helper()
	require := require.New(t)

	kp, err := crypto.GenerateRSAKeypair()
	require.NoError(err)
	_, priv, err := crypto.ParseRSAPrivateKey(kp.PrivateKey)
	require.NoError(err)

	uri := fmt.Sprintf("https://%s/users/%s", domain, handle)
	keyID := uri + "#main-key"
	user := &models.User{
		ID:          ids.New(),
		RemoteID:    &uri,
		Handle:      handle,
		Domain:      domain,
		DisplayName: handle,
		IsRemote:    true,
		InboxURL:    uri + "/inbox",
		Keypair: &models.Keypair{
			ID:           ids.New(),
			RemoteID:     &keyID,
			PublicKeyPem: kp.PublicKey,
		},
	}
	require.NoError(tx.Create(user).Error)
	return user, priv
}

type queuedDelivery struct {
	activityJSON []byte
	inboxes      []string
	actorID      ids.ID
}

// captureQueue records enqueued work instead of persisting it.
type captureQueue struct {
	deliveries []queuedDelivery
	inbox      [][]byte
}

func (q *captureQueue) EnqueueDelivery(_ context.Context, activityJSON []byte, inboxes []string, actorID ids.ID) error {
	if len(inboxes) == 0 {
		return nil
	}
	q.deliveries = append(q.deliveries, queuedDelivery{activityJSON, inboxes, actorID})
	return nil
}

func (q *captureQueue) EnqueueInbox(_ context.Context, payload []byte, _ *ids.ID) error {
	q.inbox = append(q.inbox, payload)
	return nil
}
