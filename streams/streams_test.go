package streams

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeBareStringIsUnresolvedLink(t *testing.T) {
	require := require.New(t)

	ref, err := DecodeRef([]byte(`"https://remote.example/users/bob"`))
	require.NoError(err)
	require.Equal("https://remote.example/users/bob", ref.ID)
	require.False(ref.Resolved())

	// an unresolved reference always encodes back to its bare id
	out, err := json.Marshal(ref)
	require.NoError(err)
	require.JSONEq(`"https://remote.example/users/bob"`, string(out))
}

func TestDecodeTypedObjectIsResolved(t *testing.T) {
	require := require.New(t)

	ref, err := DecodeRef([]byte(`{
		"id": "https://remote.example/notes/1",
		"type": "Note",
		"content": "<p>hello</p>",
		"attributedTo": "https://remote.example/users/bob"
	}`))
	require.NoError(err)
	require.True(ref.Resolved())
	require.Equal("https://remote.example/notes/1", ref.ID)

	note, ok := ref.Object.(*Note)
	require.True(ok)
	require.Equal("<p>hello</p>", note.Content)
	require.False(note.AttributedTo.Resolved())
	require.Equal("https://remote.example/users/bob", note.AttributedTo.ID)
}

func TestDecodeMissingTypeFails(t *testing.T) {
	require := require.New(t)

	_, err := Decode([]byte(`{"id": "https://remote.example/notes/1"}`))
	require.ErrorIs(err, ErrMissingType)
}

func TestDecodeUnknownTypeDegrades(t *testing.T) {
	require := require.New(t)

	obj, err := Decode([]byte(`{"id": "https://remote.example/things/1", "type": "Arrive", "location": "somewhere"}`))
	require.NoError(err)

	base, ok := obj.(*Base)
	require.True(ok, "unknown types decode to the generic base value")
	require.Equal("Arrive", base.ObjectType())
	require.Empty(base.ObjectID())

	// re-encoding must not fail
	out, err := Encode(obj)
	require.NoError(err)
	require.JSONEq(`{"type": "Arrive"}`, string(out))
}

func TestDecodeActivityDispatchTable(t *testing.T) {
	require := require.New(t)

	for _, typ := range []string{"Create", "Follow", "Accept", "Reject", "Like", "Announce", "Undo", "Update", "Delete", "Add", "Remove", "Bite"} {
		obj, err := Decode([]byte(`{"id": "https://a.example/x/1", "type": "` + typ + `", "actor": "https://a.example/u/bob"}`))
		require.NoError(err, typ)
		activity, ok := obj.(*Activity)
		require.True(ok, typ)
		require.Equal(typ, activity.ObjectType())
		require.Equal("https://a.example/u/bob", activity.Actor.ID)
	}

	for _, typ := range []string{"Person", "Service", "Organization", "Group", "Application"} {
		obj, err := Decode([]byte(`{"id": "https://a.example/u/bob", "type": "` + typ + `"}`))
		require.NoError(err, typ)
		_, ok := obj.(*Actor)
		require.True(ok, typ)
	}

	for _, typ := range []string{"Collection", "OrderedCollection", "CollectionPage", "OrderedCollectionPage"} {
		obj, err := Decode([]byte(`{"id": "https://a.example/c/1", "type": "` + typ + `"}`))
		require.NoError(err, typ)
		_, ok := obj.(*Collection)
		require.True(ok, typ)
	}
}

func TestRecipientsOneOrMany(t *testing.T) {
	require := require.New(t)

	single, err := Decode([]byte(`{"type": "Note", "to": "https://a.example/u/bob"}`))
	require.NoError(err)
	many, err := Decode([]byte(`{"type": "Note", "to": ["https://a.example/u/bob"]}`))
	require.NoError(err)

	require.Equal([]string{"https://a.example/u/bob"}, single.(*Note).To.IDs())
	require.Equal(single.(*Note).To.IDs(), many.(*Note).To.IDs())

	// encoding always produces the array form
	out, err := Encode(single)
	require.NoError(err)
	require.Contains(string(out), `"to":["https://a.example/u/bob"]`)
}

func TestActorDocument(t *testing.T) {
	require := require.New(t)

	obj, err := Decode([]byte(`{
		"id": "https://remote.example/users/bob",
		"type": "Person",
		"preferredUsername": "bob",
		"name": "Bob",
		"inbox": "https://remote.example/users/bob/inbox",
		"endpoints": {"sharedInbox": "https://remote.example/inbox"},
		"manuallyApprovesFollowers": true,
		"publicKey": {
			"id": "https://remote.example/users/bob#main-key",
			"owner": "https://remote.example/users/bob",
			"publicKeyPem": "-----BEGIN PUBLIC KEY-----"
		},
		"icon": {"type": "Image", "url": "https://remote.example/avatar.png"}
	}`))
	require.NoError(err)

	actor, ok := obj.(*Actor)
	require.True(ok)
	require.Equal("bob", actor.PreferredUsername)
	require.True(actor.ManuallyApprovesFollowers)
	require.Equal("https://remote.example/users/bob#main-key", actor.PublicKey.ID)
	require.Equal("https://remote.example/inbox", actor.SharedInbox())
	require.Equal("https://remote.example/inbox", actor.DeliveryInbox())
	require.Equal("https://remote.example/avatar.png", actor.Icon.URL)

	actor.Endpoints = nil
	require.Equal("https://remote.example/users/bob/inbox", actor.DeliveryInbox())
}

func TestNestedActivityObject(t *testing.T) {
	require := require.New(t)

	obj, err := Decode([]byte(`{
		"id": "https://remote.example/activities/1",
		"type": "Undo",
		"actor": "https://remote.example/users/bob",
		"object": {
			"id": "https://remote.example/activities/0",
			"type": "Follow",
			"actor": "https://remote.example/users/bob",
			"object": "https://toki.example/users/alice"
		}
	}`))
	require.NoError(err)

	undo := obj.(*Activity)
	require.True(undo.Object.Resolved())
	follow := undo.Object.Object.(*Activity)
	require.Equal(TypeFollow, follow.ObjectType())
	require.Equal("https://toki.example/users/alice", follow.Object.ID)
}
