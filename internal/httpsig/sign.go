package httpsig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Sign constructs a Signature header value for the given request target and
// header set. The signed header list is implicitly prefixed with
// (request-target); callers list only the real headers to sign, whose values
// are taken from headers as they will be sent.
func Sign(method, path string, headers http.Header, signed []string, keyID string, privateKey *rsa.PrivateKey) (*Signature, error) {
	names := append([]string{RequestTarget}, signed...)
	msg := signingString(method, path, names, headers.Get)
	digest := sha256.Sum256([]byte(msg))
	raw, err := rsa.SignPKCS1v15(rand.Reader, privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("httpsig: sign: %w", err)
	}
	return &Signature{
		KeyID:     keyID,
		Algorithm: Algorithm,
		Headers:   lowered(names),
		Signature: raw,
	}, nil
}

func lowered(names []string) []string {
	r := make([]string, len(names))
	for i, n := range names {
		r[i] = strings.ToLower(n)
	}
	return r
}

// Digest returns the value of the Digest header for the given body.
func Digest(body []byte) string {
	digest := sha256.Sum256(body)
	return fmt.Sprintf("SHA-256=%s", base64.StdEncoding.EncodeToString(digest[:]))
}

// SignRequest signs req in place using the given keyID and privateKey.
// GET requests sign host, date and accept; POST requests additionally carry
// and sign a Digest header over the body.
func SignRequest(req *http.Request, keyID string, privateKey crypto.PrivateKey, body []byte) error {
	key, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("httpsig: expected *rsa.PrivateKey, got %T", privateKey)
	}
	if req.Header.Get("Date") == "" {
		req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	// the Host header lives on req.Host, but the signing string reads headers
	req.Header.Set("Host", req.Host)

	var signed []string
	switch req.Method {
	case "POST":
		req.Header.Set("Digest", Digest(body))
		signed = []string{"host", "date", "digest"}
	default:
		signed = []string{"host", "date", "accept"}
	}

	sig, err := Sign(req.Method, requestPath(req), req.Header, signed, keyID, key)
	if err != nil {
		return err
	}
	req.Header.Set("Signature", sig.String())
	return nil
}

func requestPath(req *http.Request) string {
	path := req.URL.Path
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}
	return path
}
