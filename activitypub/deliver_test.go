package activitypub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/purifetchi/toki/models"
)

func TestRetryDelay(t *testing.T) {
	require := require.New(t)

	require.Equal(time.Duration(0), RetryDelay(0))
	require.Equal(5*time.Second, RetryDelay(1))
	require.Equal(17500*time.Millisecond, RetryDelay(2))

	// strictly increasing all the way to the ceiling
	for retry := 1; retry < MaxDeliveryAttempts; retry++ {
		require.Greater(RetryDelay(retry+1), RetryDelay(retry))
	}
}

func TestAttempt(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	mockInstance(t, tx, "toki.example")
	kio := mockLocalUser(t, tx, "kio", "toki.example")

	var delivered atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := NewClient(kio)
	require.NoError(err)

	task := &models.DeliveryTask{
		ActivityJSON: []byte(`{"type": "Follow"}`),
		Inboxes:      []string{server.URL + "/ok", server.URL + "/gone", server.URL + "/flaky"},
	}

	failed, lastErr := Attempt(context.Background(), client, task)

	// only the server error is worth retrying; 410 means the inbox is
	// dead and retrying it would be noise
	require.Equal([]string{server.URL + "/flaky"}, failed)
	require.Error(lastErr)
	require.Equal(int32(1), delivered.Load())
}

func TestAttemptSignsDeliveries(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	mockInstance(t, tx, "toki.example")
	kio := mockLocalUser(t, tx, "kio", "toki.example")

	var signature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get("Signature")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(kio)
	require.NoError(err)

	task := &models.DeliveryTask{
		ActivityJSON: []byte(`{"type": "Follow"}`),
		Inboxes:      []string{server.URL + "/inbox"},
	}
	failed, lastErr := Attempt(context.Background(), client, task)
	require.Empty(failed)
	require.NoError(lastErr)
	require.Contains(signature, kio.Keypair.KeyID(kio))
	require.Contains(signature, "(request-target)")
	require.Contains(signature, "digest")
}

func TestDeliverToFollowersCoalescesInboxes(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	mockInstance(t, tx, "toki.example")
	kio := mockLocalUser(t, tx, "kio", "toki.example")
	local := mockLocalUser(t, tx, "neighbour", "toki.example")
	mia, _ := mockRemoteUser(t, tx, "mia", "fed.example")
	rem, _ := mockRemoteUser(t, tx, "rem", "fed2.example")

	follows := models.NewFollows(tx)
	for _, follower := range []*models.User{local, mia, rem} {
		request, err := follows.Request(follower, kio, "")
		require.NoError(err)
		require.NoError(follows.Accept(request))
	}

	queue := &captureQueue{}
	service := NewService(tx, queue)

	post, err := service.CreatePost(context.Background(), kio, "<p>hi</p>", "", false, nil)
	require.NoError(err)
	require.NotNil(post)

	require.Len(queue.deliveries, 1)
	// the local follower contributes no inbox; the remote ones each get
	// their own
	require.ElementsMatch([]string{mia.InboxURL, rem.InboxURL}, queue.deliveries[0].inboxes)
}
