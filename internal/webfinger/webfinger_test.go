package webfinger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcctParse(t *testing.T) {
	tc := []struct {
		in     string
		expect Acct
	}{
		{"acct:foo@bar.com", Acct{User: "foo", Host: "bar.com"}},
	}
	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			req := require.New(t)
			got, err := Parse(tt.in)
			req.NoError(err)
			req.Equal(tt.expect, *got)
			req.Equal(tt.in, got.String())
		})
	}
}

func TestLinksOneOrMany(t *testing.T) {
	require := require.New(t)

	// some servers collapse a lone link to a single object
	var single Webfinger
	require.NoError(json.Unmarshal([]byte(`{
		"subject": "acct:foo@bar.com",
		"links": {"rel": "self", "type": "application/activity+json", "href": "https://bar.com/users/foo"}
	}`), &single))
	require.Len(single.Links, 1)
	actor, err := single.ActivityPub()
	require.NoError(err)
	require.Equal("https://bar.com/users/foo", actor)

	var many Webfinger
	require.NoError(json.Unmarshal([]byte(`{
		"subject": "acct:foo@bar.com",
		"links": [
			{"rel": "http://webfinger.net/rel/profile-page", "type": "text/html", "href": "https://bar.com/@foo"},
			{"rel": "self", "type": "application/activity+json", "href": "https://bar.com/users/foo"}
		]
	}`), &many))
	require.Len(many.Links, 2)
	actor, err = many.ActivityPub()
	require.NoError(err)
	require.Equal("https://bar.com/users/foo", actor)
}
