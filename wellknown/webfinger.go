package wellknown

import (
	"fmt"
	"net/http"

	"github.com/purifetchi/toki/activitypub"
	"github.com/purifetchi/toki/internal/httpx"
	"github.com/purifetchi/toki/internal/webfinger"
	"github.com/purifetchi/toki/models"
)

// WebfingerShow serves GET /.well-known/webfinger, resolving an acct:
// resource to the local user's actor document.
func WebfingerShow(env *activitypub.Env, rw http.ResponseWriter, r *http.Request) error {
	var params struct {
		Resource string `schema:"resource,required"`
	}
	if err := httpx.Params(r, &params); err != nil {
		return err
	}
	acct, err := webfinger.Parse(params.Resource)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}

	// use the host of the request, not the resource; we answer only for
	// ourselves
	user, err := models.NewUsers(env.DB).FindByHandle(acct.User, r.Host)
	if err != nil {
		return httpx.Error(http.StatusNotFound, err)
	}

	self := fmt.Sprintf("https://%s/users/%s", r.Host, user.Handle)
	rw.Header().Set("Content-Type", "application/jrd+json")
	return marshalJSON(rw, webfinger.Webfinger{
		Subject: fmt.Sprintf("acct:%s@%s", user.Handle, r.Host),
		Aliases: []string{
			fmt.Sprintf("https://%s/@%s", r.Host, user.Handle),
			self,
		},
		Links: webfinger.Links{
			{
				Rel:  "http://webfinger.net/rel/profile-page",
				Type: "text/html",
				Href: fmt.Sprintf("https://%s/@%s", r.Host, user.Handle),
			},
			{
				Rel:  "self",
				Type: "application/activity+json",
				Href: self,
			},
			{
				Rel:      "http://ostatus.org/schema/1.0/subscribe",
				Template: fmt.Sprintf("https://%s/authorize_interaction?uri={uri}", r.Host),
			},
		},
	})
}
