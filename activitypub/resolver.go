package activitypub

import (
	"context"
	"errors"
	"fmt"

	"github.com/purifetchi/toki/streams"
)

// ErrNotFound is returned when a remote object cannot be resolved: the peer
// answered with a non-success status, or the document was not of the
// requested type.
var ErrNotFound = errors.New("activitypub: not found")

// A Resolver dereferences ActivityStreams references into full objects.
type Resolver struct {
	client *Client
}

func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

func (r *Resolver) fetch(ctx context.Context, uri string) (streams.Object, error) {
	body, err := r.client.Fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, uri, err)
	}
	obj, err := streams.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, uri, err)
	}
	return obj, nil
}

// Resolve dereferences ref into a value of the requested type. A reference
// already carrying a suitable object is returned without any network
// traffic; otherwise the reference's id is fetched and, on success, the
// reference is updated in place so later resolutions are free.
func Resolve[T streams.Object](ctx context.Context, r *Resolver, ref *streams.Ref) (T, error) {
	var zero T
	if ref == nil {
		return zero, ErrNotFound
	}
	if ref.Resolved() {
		if obj, ok := ref.Object.(T); ok {
			return obj, nil
		}
	}
	uri := ref.ID
	if uri == "" && ref.Resolved() {
		uri = ref.Object.ObjectID()
	}
	obj, err := r.fetch(ctx, uri)
	if err != nil {
		return zero, err
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s resolved to %s", ErrNotFound, uri, obj.ObjectType())
	}
	ref.ID = obj.ObjectID()
	ref.Object = obj
	return typed, nil
}
