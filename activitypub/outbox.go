package activitypub

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/purifetchi/toki/internal/algorithms"
	"github.com/purifetchi/toki/internal/httpx"
	"github.com/purifetchi/toki/internal/ids"
	"github.com/purifetchi/toki/internal/to"
	"github.com/purifetchi/toki/models"
	"github.com/purifetchi/toki/streams"
)

const outboxPageSize = 20

// Outbox serves GET /users/{name}/outbox: the index document without the
// page parameter, a page of Create activities with it.
func Outbox(env *Env, w http.ResponseWriter, r *http.Request) error {
	user, err := models.NewUsers(env.DB).FindByHandle(chi.URLParam(r, "name"), r.Host)
	if err != nil {
		return httpx.Error(http.StatusNotFound, err)
	}
	if r.URL.Query().Get("page") != "true" {
		return outboxIndex(env, w, r, user)
	}
	return outboxPage(env, w, r, user)
}

func outboxIndex(env *Env, w http.ResponseWriter, r *http.Request, user *models.User) error {
	count, err := models.NewPosts(env.DB).CountByUser(user.ID)
	if err != nil {
		return err
	}
	self := fmt.Sprintf("https://%s%s", r.Host, r.URL.Path)
	return to.ActivityJSON(w, &streams.Collection{
		Base: streams.Base{
			Context: streams.NewContext(streams.ActivityStreams),
			ID:      self,
			Type:    "OrderedCollection",
		},
		TotalItems: int(count),
		First:      streams.NewRef(self + "?page=true"),
	})
}

func outboxPage(env *Env, w http.ResponseWriter, r *http.Request, user *models.User) error {
	var maxID ids.ID
	if s := r.URL.Query().Get("max_id"); s != "" {
		var err error
		if maxID, err = ids.Parse(s); err != nil {
			return httpx.Error(http.StatusBadRequest, err)
		}
	}
	posts, err := models.NewPosts(env.DB).ByUser(user.ID, maxID, outboxPageSize)
	if err != nil {
		return err
	}
	self := fmt.Sprintf("https://%s%s", r.Host, r.URL.Path)
	page := &streams.Collection{
		Base: streams.Base{
			Context: streams.NewContext(streams.ActivityStreams),
			ID:      fmt.Sprintf("https://%s%s?%s", r.Host, r.URL.Path, r.URL.RawQuery),
			Type:    "OrderedCollectionPage",
		},
		PartOf: streams.NewRef(self),
		OrderedItems: algorithms.Map(posts, func(post *models.Post) *streams.Ref {
			return streams.RefTo(CreateActivity(post, user))
		}),
	}
	if len(posts) == outboxPageSize {
		last := posts[len(posts)-1]
		page.Next = streams.NewRef(fmt.Sprintf("%s?page=true&max_id=%s", self, url.QueryEscape(last.ID.String())))
	}
	return to.ActivityJSON(w, page)
}

// Followers serves GET /users/{name}/followers.
func Followers(env *Env, w http.ResponseWriter, r *http.Request) error {
	return followCollection(env, w, r, models.NewFollows(env.DB).Followers)
}

// Following serves GET /users/{name}/following.
func Following(env *Env, w http.ResponseWriter, r *http.Request) error {
	return followCollection(env, w, r, models.NewFollows(env.DB).Following)
}

func followCollection(env *Env, w http.ResponseWriter, r *http.Request, edge func(ids.ID) ([]*models.User, error)) error {
	user, err := models.NewUsers(env.DB).FindByHandle(chi.URLParam(r, "name"), r.Host)
	if err != nil {
		return httpx.Error(http.StatusNotFound, err)
	}
	users, err := edge(user.ID)
	if err != nil {
		return err
	}
	return to.ActivityJSON(w, &streams.Collection{
		Base: streams.Base{
			Context: streams.NewContext(streams.ActivityStreams),
			ID:      fmt.Sprintf("https://%s%s", r.Host, r.URL.Path),
			Type:    "OrderedCollection",
		},
		TotalItems: len(users),
		OrderedItems: algorithms.Map(users, func(u *models.User) *streams.Ref {
			return streams.NewRef(u.URI())
		}),
	})
}
