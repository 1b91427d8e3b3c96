package wellknown

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/purifetchi/toki/activitypub"
	"github.com/purifetchi/toki/internal/httpx"
	"github.com/purifetchi/toki/internal/to"
	"github.com/purifetchi/toki/models"
)

const softwareVersion = "0.0.0-devel"

func NodeInfoIndex(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("cache-control", "max-age=259200, public")
	return to.JSON(w, map[string]any{
		"links": []any{
			map[string]any{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.0",
				"href": fmt.Sprintf("https://%s/nodeinfo/2.0", r.Host),
			},
			map[string]any{
				"rel":  "http://nodeinfo.diaspora.software/ns/schema/2.1",
				"href": fmt.Sprintf("https://%s/nodeinfo/2.1", r.Host),
			},
		},
	})
}

func NodeInfoShow(env *activitypub.Env, w http.ResponseWriter, r *http.Request) error {
	var instance models.Instance
	if err := env.DB.Where("domain = ?", r.Host).First(&instance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}
	switch chi.URLParam(r, "version") {
	case "2.0":
		// https://github.com/jhass/nodeinfo/blob/main/schemas/2.0/schema.json
		w.Header().Set("cache-control", "max-age=259200, public")
		return to.JSON(w, map[string]any{
			"version": "2.0",
			"software": map[string]any{
				"name":    "toki",
				"version": softwareVersion,
			},
			"protocols":         protocols(),
			"services":          services(),
			"usage":             usage(env.DB),
			"openRegistrations": false,
			"metadata":          metadata(&instance),
		})
	case "2.1":
		w.Header().Set("cache-control", "max-age=259200, public")
		return to.JSON(w, map[string]any{
			"version": "2.1",
			"software": map[string]any{
				"name":       "toki",
				"version":    softwareVersion,
				"repository": "https://github.com/purifetchi/toki",
			},
			"protocols":         protocols(),
			"services":          services(),
			"usage":             usage(env.DB),
			"openRegistrations": false,
			"metadata":          metadata(&instance),
		})
	default:
		return httpx.Error(http.StatusNotFound, errors.New("unsupported version: "+chi.URLParam(r, "version")))
	}
}

func metadata(instance *models.Instance) map[string]any {
	return map[string]any{
		"nodeName":        instance.Title,
		"nodeDescription": instance.Description,
	}
}

func protocols() []any {
	return []any{
		"activitypub",
	}
}

func services() map[string]any {
	return map[string]any{
		"inbound":  []any{},
		"outbound": []any{},
	}
}

func usage(db *gorm.DB) map[string]any {
	var users, posts int64
	db.Model(&models.User{}).Where("is_remote = false").Count(&users)
	db.Model(&models.Post{}).Joins("JOIN users ON users.id = posts.user_id AND users.is_remote = false").Count(&posts)
	return map[string]any{
		"users": map[string]any{
			"total": users,
		},
		"localPosts": posts,
	}
}
