package streams

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// A Context is the JSON-LD @context header of a document: an ordered list of
// remote vocabulary imports (bare URI strings) and an ordered list of local
// extension terms. Whatever shape it was read from, it always serializes as
// [remote..., {local...}]. This is deliberate normalization, not a lossless
// round trip.
type Context struct {
	Remote []string
	Local  []Term
}

// A Term is a single local @context entry: a key mapped to a string or a
// nested term object.
type Term struct {
	Key   string
	Value any
}

// NewContext returns a context importing the given remote vocabularies.
func NewContext(remote ...string) *Context {
	return &Context{Remote: remote}
}

// Set appends a local term.
func (c *Context) Set(key string, value any) *Context {
	c.Local = append(c.Local, Term{Key: key, Value: value})
	return c
}

func (c *Context) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("streams: context: %w", err)
	}
	switch tok := tok.(type) {
	case nil:
		return nil
	case string:
		c.Remote = append(c.Remote, tok)
		return nil
	case json.Delim:
		switch tok {
		case '{':
			return c.readTerms(dec)
		case '[':
			for dec.More() {
				var raw json.RawMessage
				if err := dec.Decode(&raw); err != nil {
					return fmt.Errorf("streams: context element: %w", err)
				}
				if err := c.readElement(raw); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return fmt.Errorf("streams: context: unexpected token %v", tok)
}

func (c *Context) readElement(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		c.Remote = append(c.Remote, s)
		return nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(raw))
		if _, err := dec.Token(); err != nil { // consume '{'
			return err
		}
		return c.readTerms(dec)
	default:
		return fmt.Errorf("streams: context: unexpected element %s", raw)
	}
}

// readTerms reads key/value pairs until the closing brace, preserving
// document order. Terms whose value is JSON null are dropped.
func (c *Context) readTerms(dec *json.Decoder) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("streams: context: expected key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if string(raw) == "null" {
			continue
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
		c.Local = append(c.Local, Term{Key: key, Value: dropNulls(value)})
	}
	_, err := dec.Token() // consume '}'
	return err
}

// dropNulls removes null valued keys from nested term objects.
func dropNulls(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, nested := range m {
		if nested == nil {
			delete(m, k)
			continue
		}
		m[k] = dropNulls(nested)
	}
	return m
}

func (c *Context) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for _, remote := range c.Remote {
		raw, err := json.Marshal(remote)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
		buf.WriteByte(',')
	}
	buf.WriteByte('{')
	for i, term := range c.Local {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(term.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(term.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteString("}]")
	return buf.Bytes(), nil
}
