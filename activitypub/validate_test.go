package activitypub

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/purifetchi/toki/internal/crypto"
	"github.com/purifetchi/toki/internal/httpsig"
	"github.com/purifetchi/toki/models"
	"github.com/purifetchi/toki/streams"
)

func followPayload(actor string) []byte {
	return []byte(fmt.Sprintf(`{
		"@context": "https://www.w3.org/ns/activitystreams",
		"id": "%s/activities/1",
		"type": "Follow",
		"actor": %q,
		"object": "https://toki.example/users/kio"
	}`, actor, actor))
}

func signedRequest(t *testing.T, keyID string, key interface{}, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest("POST", "https://toki.example/inbox", bytes.NewReader(body))
	require.NoError(t, httpsig.SignRequest(req, keyID, key, body))
	return req
}

func TestValidateInboundKnownKey(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	mockInstance(t, tx, "toki.example")
	mia, miaKey := mockRemoteUser(t, tx, "mia", "fed.example")

	service := NewService(tx, &captureQueue{})

	body := followPayload(mia.URI())
	obj, err := streams.Decode(body)
	require.NoError(err)
	activity := obj.(*streams.Activity)

	req := signedRequest(t, *mia.Keypair.RemoteID, miaKey, body)
	require.NoError(service.ValidateInbound(context.Background(), req, activity))
}

func TestValidateInboundRejectsKeySubstitution(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	mockInstance(t, tx, "toki.example")
	mia, _ := mockRemoteUser(t, tx, "mia", "fed.example")
	mallory, malloryKey := mockRemoteUser(t, tx, "mallory", "evil.example")

	service := NewService(tx, &captureQueue{})

	// mallory signs with her own perfectly valid key, but the activity
	// claims to come from mia
	body := followPayload(mia.URI())
	obj, err := streams.Decode(body)
	require.NoError(err)
	activity := obj.(*streams.Activity)

	req := signedRequest(t, *mallory.Keypair.RemoteID, malloryKey, body)
	err = service.ValidateInbound(context.Background(), req, activity)
	require.ErrorIs(err, errKeyOwnership)
}

func TestValidateInboundRejectsTamperedHeader(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	mockInstance(t, tx, "toki.example")
	mia, miaKey := mockRemoteUser(t, tx, "mia", "fed.example")

	service := NewService(tx, &captureQueue{})

	body := followPayload(mia.URI())
	obj, err := streams.Decode(body)
	require.NoError(err)
	activity := obj.(*streams.Activity)

	req := signedRequest(t, *mia.Keypair.RemoteID, miaKey, body)
	req.Header.Set("Date", "Sun, 06 Nov 1994 08:49:37 GMT")
	require.Error(service.ValidateInbound(context.Background(), req, activity))
}

func TestValidateInboundImportsUnknownActor(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	mockInstance(t, tx, "toki.example")

	kp, err := crypto.GenerateRSAKeypair()
	require.NoError(err)
	_, zoeKey, err := crypto.ParseRSAPrivateKey(kp.PrivateKey)
	require.NoError(err)

	var zoeURI, zoeKeyID string
	mux := http.NewServeMux()
	mux.HandleFunc("/users/zoe", func(w http.ResponseWriter, r *http.Request) {
		doc, err := streams.Encode(&streams.Actor{
			Base: streams.Base{
				Context: streams.NewContext(streams.ActivityStreams),
				ID:      zoeURI,
				Type:    "Person",
			},
			PreferredUsername: "zoe",
			Inbox:             zoeURI + "/inbox",
			PublicKey: &streams.PublicKey{
				ID:           zoeKeyID,
				Owner:        zoeURI,
				PublicKeyPem: string(kp.PublicKey),
			},
		})
		require.NoError(err)
		w.Header().Set("Content-Type", "application/activity+json")
		w.Write(doc)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	zoeURI = server.URL + "/users/zoe"
	zoeKeyID = zoeURI + "#main-key"

	admin, err := models.NewUsers(tx).FindByHandle("admin", "toki.example")
	require.NoError(err)
	client, err := NewClient(admin)
	require.NoError(err)

	service := NewService(tx, &captureQueue{})
	service.resolver = NewResolver(client)

	body := followPayload(zoeURI)
	obj, err := streams.Decode(body)
	require.NoError(err)
	activity := obj.(*streams.Activity)

	req := signedRequest(t, zoeKeyID, zoeKey, body)
	require.NoError(service.ValidateInbound(context.Background(), req, activity))

	// the actor is now cached locally with its key
	host := requireHost(t, server.URL)
	zoe, err := models.NewUsers(tx).FindByRemoteID(zoeURI)
	require.NoError(err)
	require.Equal("zoe", zoe.Handle)
	require.Equal(host, zoe.Domain)
	require.True(zoe.IsRemote)
	require.NotNil(zoe.Keypair)
	require.Equal(zoeKeyID, *zoe.Keypair.RemoteID)
}

func TestValidateInboundUnadvertisedKey(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	mockInstance(t, tx, "toki.example")

	kp, err := crypto.GenerateRSAKeypair()
	require.NoError(err)
	_, key, err := crypto.ParseRSAPrivateKey(kp.PrivateKey)
	require.NoError(err)

	var uri string
	mux := http.NewServeMux()
	mux.HandleFunc("/users/eva", func(w http.ResponseWriter, r *http.Request) {
		doc, err := streams.Encode(&streams.Actor{
			Base:              streams.Base{Context: streams.NewContext(streams.ActivityStreams), ID: uri, Type: "Person"},
			PreferredUsername: "eva",
			Inbox:             uri + "/inbox",
			PublicKey: &streams.PublicKey{
				ID:           uri + "#other-key",
				Owner:        uri,
				PublicKeyPem: string(kp.PublicKey),
			},
		})
		require.NoError(err)
		w.Header().Set("Content-Type", "application/activity+json")
		w.Write(doc)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	uri = server.URL + "/users/eva"

	admin, err := models.NewUsers(tx).FindByHandle("admin", "toki.example")
	require.NoError(err)
	client, err := NewClient(admin)
	require.NoError(err)

	service := NewService(tx, &captureQueue{})
	service.resolver = NewResolver(client)

	body := followPayload(uri)
	obj, err := streams.Decode(body)
	require.NoError(err)
	activity := obj.(*streams.Activity)

	req := signedRequest(t, uri+"#main-key", key, body)
	err = service.ValidateInbound(context.Background(), req, activity)
	require.ErrorIs(err, errKeyNotInActor)
}

func requireHost(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Host
}
