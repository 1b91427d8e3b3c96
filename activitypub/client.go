package activitypub

import (
	"bytes"
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"

	"github.com/purifetchi/toki/internal/crypto"
	"github.com/purifetchi/toki/internal/httpsig"
	"github.com/purifetchi/toki/models"
)

// userAgent identifies us to peers. Some instances reject requests
// without one.
const userAgent = "toki (+https://github.com/purifetchi/toki)"

// deliveryTimeout bounds a single delivery attempt; a slow peer must not
// stall the rest of the queue.
const deliveryTimeout = 30 * time.Second

// Client performs signed HTTP requests against other ActivityPub servers.
// Every request carries an HTTP signature made with the key of the local
// user the client was created for.
type Client struct {
	keyID      string
	privateKey *rsa.PrivateKey

	// base is the underlying client; swapped out in tests
	base *http.Client
}

// NewClient returns a client signing as the given local user.
func NewClient(signAs *models.User) (*Client, error) {
	if signAs.Keypair == nil || signAs.Keypair.PrivateKeyPem == nil {
		return nil, errors.New("activitypub: user has no private key")
	}
	_, priv, err := crypto.ParseRSAPrivateKey(signAs.Keypair.PrivateKeyPem)
	if err != nil {
		return nil, err
	}
	return &Client{
		keyID:      signAs.Keypair.KeyID(signAs),
		privateKey: priv,
		base:       &http.Client{Timeout: deliveryTimeout},
	}, nil
}

// RoundTrip signs the outgoing request and hands it to the underlying
// transport.
func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	req.Header.Set("User-Agent", userAgent)
	if req.Method == "POST" {
		// dated slightly ahead so peers with lagging clocks accept it
		req.Header.Set("Date", time.Now().Add(5*time.Second).UTC().Format(http.TimeFormat))
	}
	if err := httpsig.SignRequest(req, c.keyID, c.privateKey, body); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	transport := c.base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return transport.RoundTrip(req)
}

// Fetch retrieves the ActivityPub resource at the given URL as raw bytes.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	var buf bytes.Buffer
	err := requests.URL(uri).
		Accept(`application/ld+json; profile="https://www.w3.org/ns/activitystreams"`).
		Transport(c).
		Client(c.base).
		CheckContentType("application/ld+json", "application/activity+json", "application/json").
		CheckStatus(http.StatusOK).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	return buf.Bytes(), err
}

// Post delivers the given serialized activity to an inbox.
func (c *Client) Post(ctx context.Context, inbox string, body []byte) error {
	return requests.URL(inbox).
		Header("Content-Type", `application/ld+json; profile="https://www.w3.org/ns/activitystreams"`).
		BodyBytes(body).
		Transport(c).
		Client(c.base).
		CheckStatus(http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent).
		Fetch(ctx)
}
