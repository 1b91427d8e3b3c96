// Package wellknown serves the discovery endpoints other instances use to
// find us: webfinger, nodeinfo and host-meta.
package wellknown

import (
	"net/http"

	"github.com/go-json-experiment/json"
)

func marshalJSON(w http.ResponseWriter, obj interface{}) error {
	return json.MarshalFull(w, obj)
}
