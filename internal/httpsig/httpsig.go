// Package httpsig implements the HTTP Signature scheme as defined in draft-cavage-http-signatures-10.
package httpsig

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// RequestTarget is the pseudo-header used to sign the request target.
	RequestTarget = "(request-target)"

	// Algorithm is the only signature algorithm toki produces or accepts.
	Algorithm = "rsa-sha256"
)

// A Signature is the parsed form of a Signature header.
type Signature struct {
	KeyID     string
	Algorithm string
	Headers   []string
	Signature []byte
}

// String renders the Signature header value.
func (s *Signature) String() string {
	return fmt.Sprintf(`keyId="%s",algorithm="%s",headers="%s",signature="%s"`,
		s.KeyID, s.Algorithm, strings.Join(s.Headers, " "), base64.StdEncoding.EncodeToString(s.Signature))
}

// Parse parses a Signature header value into its key="value" attributes.
// Attribute values are split on the first = only; the base64 signature value
// may itself contain = padding.
func Parse(header string) (*Signature, error) {
	if header == "" {
		return nil, fmt.Errorf("httpsig: missing Signature header")
	}
	var sig Signature
	for _, part := range splitAttributes(header) {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("httpsig: malformed signature part: %q", part)
		}
		v = strings.Trim(v, "\"")
		switch k {
		case "keyId":
			sig.KeyID = v
		case "algorithm":
			sig.Algorithm = v
		case "headers":
			sig.Headers = strings.Split(v, " ")
		case "signature":
			raw, err := base64.StdEncoding.DecodeString(v)
			if err != nil {
				return nil, fmt.Errorf("httpsig: decode signature: %w", err)
			}
			sig.Signature = raw
		default:
			return nil, fmt.Errorf("httpsig: unknown signature part: %q", part)
		}
	}
	if sig.KeyID == "" || len(sig.Signature) == 0 {
		return nil, fmt.Errorf("httpsig: signature header missing keyId or signature")
	}
	if len(sig.Headers) == 0 {
		// headers defaults to the date header alone, per the draft
		sig.Headers = []string{"date"}
	}
	return &sig, nil
}

// splitAttributes splits a Signature header on the commas separating its
// attributes, ignoring commas inside quoted values.
func splitAttributes(header string) []string {
	var parts []string
	var sb strings.Builder
	quoted := false
	for _, r := range header {
		switch {
		case r == '"':
			quoted = !quoted
			sb.WriteRune(r)
		case r == ',' && !quoted:
			parts = append(parts, strings.TrimSpace(sb.String()))
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if sb.Len() > 0 {
		parts = append(parts, strings.TrimSpace(sb.String()))
	}
	return parts
}

// signingString constructs the canonical string to be signed. The method and
// path describe the request target; lookup returns the value of a named
// header as observed on the request, or the empty string if absent.
func signingString(method, path string, headers []string, lookup func(string) string) string {
	var sb strings.Builder
	for i, header := range headers {
		if i > 0 {
			sb.WriteString("\n")
		}
		name := strings.ToLower(header)
		if name == RequestTarget {
			sb.WriteString(RequestTarget)
			sb.WriteString(": ")
			sb.WriteString(strings.ToLower(method))
			sb.WriteString(" ")
			sb.WriteString(path)
			continue
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(lookup(header))
	}
	return sb.String()
}
