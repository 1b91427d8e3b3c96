package httpsig

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"net/http"
)

// Verify verifies the signature of the request, resolving the signer's
// public key through keyFn.
func Verify(req *http.Request, keyFn func(keyID string) (crypto.PublicKey, error)) error {
	sig, err := Parse(req.Header.Get("Signature"))
	if err != nil {
		return err
	}
	pubKey, err := keyFn(sig.KeyID)
	if err != nil {
		return err
	}
	return VerifySignature(req, sig, pubKey)
}

// VerifySignature checks a parsed signature against the request as observed
// by the receiver. Every header named in the signature must be present on
// the request.
func VerifySignature(req *http.Request, sig *Signature, pubKey crypto.PublicKey) error {
	if sig.Algorithm != Algorithm {
		return fmt.Errorf("httpsig: unknown algorithm: %q", sig.Algorithm)
	}
	key, ok := pubKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("httpsig: expected *rsa.PublicKey, got %T", pubKey)
	}

	var missing error
	msg := signingString(req.Method, requestPath(req), sig.Headers, func(name string) string {
		v, ok := headerValue(req, name)
		if !ok && missing == nil {
			missing = fmt.Errorf("httpsig: signed header %q absent from request", name)
		}
		return v
	})
	if missing != nil {
		return missing
	}

	digest := sha256.Sum256([]byte(msg))
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig.Signature); err != nil {
		return fmt.Errorf("httpsig: verify: %w", err)
	}
	return nil
}

// headerValue looks up a header on the inbound request, reporting whether
// the header is present at all. A header carried with an empty value is
// present and signs as the empty string. Go surfaces the Host header as
// req.Host rather than through the header map.
func headerValue(req *http.Request, name string) (string, bool) {
	if http.CanonicalHeaderKey(name) == "Host" {
		return req.Host, req.Host != ""
	}
	if vs := req.Header.Values(name); len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}
