package ids

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIDsSortByCreationTime(t *testing.T) {
	require := require.New(t)

	base := time.Now()
	var got []string
	for i := 0; i < 100; i++ {
		got = append(got, string(FromTime(base.Add(time.Duration(i)*time.Millisecond))))
	}
	require.True(sort.StringsAreSorted(got), "ids must sort in creation order")
}

func TestIDLength(t *testing.T) {
	require := require.New(t)
	id := New()
	require.Len(string(id), 26)

	parsed, err := Parse(string(id))
	require.NoError(err)
	require.Equal(id, parsed)
}

func TestParseRejectsGarbage(t *testing.T) {
	require := require.New(t)
	_, err := Parse("not-an-id")
	require.Error(err)
	_, err = Parse("")
	require.Error(err)
}

func TestIDTimeRoundTrip(t *testing.T) {
	require := require.New(t)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	id := FromTime(ts)
	require.WithinDuration(ts, id.Time(), time.Millisecond)
}
