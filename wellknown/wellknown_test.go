package wellknown

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/purifetchi/toki/activitypub"
	"github.com/purifetchi/toki/internal/httpx"
	"github.com/purifetchi/toki/internal/webfinger"
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
	require.NoError(db.AutoMigrate(models.AllTables()...))
	return db
}

func wellknownHandler(tx *gorm.DB) http.HandlerFunc {
	envFn := func(r *http.Request) *activitypub.Env {
		return &activitypub.Env{DB: tx, Queue: &activitypub.GormQueue{DB: tx}}
	}
	mux := chi.NewRouter()
	mux.Get("/.well-known/webfinger", httpx.HandlerFunc(envFn, WebfingerShow))
	mux.Get("/.well-known/nodeinfo", httpx.HandlerFunc(envFn, NodeInfoIndex))
	mux.Get("/nodeinfo/{version}", httpx.HandlerFunc(envFn, NodeInfoShow))
	return mux.ServeHTTP
}

func TestWebfinger(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	_, err := models.NewInstances(tx).Create("toki.example", "Test", "a test instance", "admin@toki.example")
	require.NoError(err)
	_, err = models.NewUsers(tx).CreateLocal("toki.example", "kio", "kio@toki.example", nil)
	require.NoError(err)

	handler := wellknownHandler(tx)

	req := httptest.NewRequest("GET", "https://toki.example/.well-known/webfinger?resource=acct:kio@toki.example", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(http.StatusOK, rec.Code)
	require.Equal("application/jrd+json", rec.Header().Get("Content-Type"))

	var finger webfinger.Webfinger
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &finger))
	require.Equal("acct:kio@toki.example", finger.Subject)
	uri, err := finger.ActivityPub()
	require.NoError(err)
	require.Equal("https://toki.example/users/kio", uri)
}

func TestWebfingerUnknownUser(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	handler := wellknownHandler(tx)

	req := httptest.NewRequest("GET", "https://toki.example/.well-known/webfinger?resource=acct:nobody@toki.example", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	require.Equal(http.StatusNotFound, rec.Code)

	// a missing resource parameter is the caller's fault
	req = httptest.NewRequest("GET", "https://toki.example/.well-known/webfinger", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	require.Equal(http.StatusBadRequest, rec.Code)
}

func TestNodeInfo(t *testing.T) {
	require := require.New(t)
	tx := setupTestDB(t).Begin()
	defer tx.Rollback()

	_, err := models.NewInstances(tx).Create("toki.example", "Test", "a test instance", "admin@toki.example")
	require.NoError(err)

	handler := wellknownHandler(tx)

	req := httptest.NewRequest("GET", "https://toki.example/.well-known/nodeinfo", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), "https://toki.example/nodeinfo/2.1")

	for _, version := range []string{"2.0", "2.1"} {
		req = httptest.NewRequest("GET", "https://toki.example/nodeinfo/"+version, nil)
		rec = httptest.NewRecorder()
		handler(rec, req)
		require.Equal(http.StatusOK, rec.Code)

		var doc struct {
			Version  string `json:"version"`
			Software struct {
				Name string `json:"name"`
			} `json:"software"`
			Protocols []string       `json:"protocols"`
			Metadata  map[string]any `json:"metadata"`
		}
		require.NoError(json.Unmarshal(rec.Body.Bytes(), &doc))
		require.Equal(version, doc.Version)
		require.Equal("toki", doc.Software.Name)
		require.Equal([]string{"activitypub"}, doc.Protocols)
		require.Equal("Test", doc.Metadata["nodeName"])
	}

	req = httptest.NewRequest("GET", "https://toki.example/nodeinfo/1.0", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	require.Equal(http.StatusNotFound, rec.Code)
}
