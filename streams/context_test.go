package streams

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextString(t *testing.T) {
	require := require.New(t)

	var ctx Context
	require.NoError(json.Unmarshal([]byte(`"https://www.w3.org/ns/activitystreams"`), &ctx))
	require.Equal([]string{ActivityStreams}, ctx.Remote)
	require.Empty(ctx.Local)
}

func TestContextNull(t *testing.T) {
	require := require.New(t)

	var ctx Context
	require.NoError(json.Unmarshal([]byte(`null`), &ctx))
	require.Empty(ctx.Remote)
	require.Empty(ctx.Local)
}

func TestContextMixedArray(t *testing.T) {
	require := require.New(t)

	var ctx Context
	require.NoError(json.Unmarshal([]byte(`[
		"https://www.w3.org/ns/activitystreams",
		"https://w3id.org/security/v1",
		{
			"toot": "http://joinmastodon.org/ns#",
			"sensitive": "as:sensitive",
			"focalPoint": {"@container": "@list", "@id": "toot:focalPoint"}
		}
	]`), &ctx))

	require.Equal([]string{
		"https://www.w3.org/ns/activitystreams",
		"https://w3id.org/security/v1",
	}, ctx.Remote)
	require.Len(ctx.Local, 3)
	require.Equal("toot", ctx.Local[0].Key)
	require.Equal("http://joinmastodon.org/ns#", ctx.Local[0].Value)
	require.Equal("focalPoint", ctx.Local[2].Key)
	require.Equal(map[string]any{"@container": "@list", "@id": "toot:focalPoint"}, ctx.Local[2].Value)
}

func TestContextNullLocalsDropped(t *testing.T) {
	require := require.New(t)

	var ctx Context
	require.NoError(json.Unmarshal([]byte(`[
		"https://www.w3.org/ns/activitystreams",
		{"kept": "as:kept", "dropped": null, "nested": {"inner": null, "id": "toot:x"}}
	]`), &ctx))

	require.Len(ctx.Local, 2)
	require.Equal("kept", ctx.Local[0].Key)
	require.Equal("nested", ctx.Local[1].Key)
	require.Equal(map[string]any{"id": "toot:x"}, ctx.Local[1].Value)
}

func TestContextWriteNormalization(t *testing.T) {
	require := require.New(t)

	// whatever shape the context was read from, it writes as
	// [remote..., {local...}]
	for _, in := range []string{
		`"https://www.w3.org/ns/activitystreams"`,
		`["https://www.w3.org/ns/activitystreams"]`,
		`["https://www.w3.org/ns/activitystreams", {}]`,
	} {
		var ctx Context
		require.NoError(json.Unmarshal([]byte(in), &ctx))
		out, err := json.Marshal(&ctx)
		require.NoError(err)
		require.JSONEq(`["https://www.w3.org/ns/activitystreams", {}]`, string(out), in)
	}

	var ctx Context
	require.NoError(json.Unmarshal([]byte(`["https://www.w3.org/ns/activitystreams", {"toot": "http://joinmastodon.org/ns#"}]`), &ctx))
	out, err := json.Marshal(&ctx)
	require.NoError(err)
	require.Equal(`["https://www.w3.org/ns/activitystreams",{"toot":"http://joinmastodon.org/ns#"}]`, string(out))
}

func TestContextBuilder(t *testing.T) {
	require := require.New(t)

	ctx := NewContext(ActivityStreams, "https://w3id.org/security/v1").Set("Bite", "https://ns.mia.jetzt/as#Bite")
	out, err := json.Marshal(ctx)
	require.NoError(err)
	require.Equal(`["https://www.w3.org/ns/activitystreams","https://w3id.org/security/v1",{"Bite":"https://ns.mia.jetzt/as#Bite"}]`, string(out))
}

func TestContextRoundTripOnDocument(t *testing.T) {
	require := require.New(t)

	obj, err := Decode([]byte(`{
		"@context": ["https://www.w3.org/ns/activitystreams", {"sensitive": "as:sensitive"}],
		"id": "https://a.example/notes/1",
		"type": "Note",
		"content": "hi"
	}`))
	require.NoError(err)

	note := obj.(*Note)
	require.Equal([]string{ActivityStreams}, note.Base.Context.Remote)

	out, err := Encode(note)
	require.NoError(err)
	require.Contains(string(out), `"@context":["https://www.w3.org/ns/activitystreams",{"sensitive":"as:sensitive"}]`)
}
