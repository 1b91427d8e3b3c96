package streams

import "encoding/json"

// Link types. Unrecognised types are preserved as-is rather than dropped.
const (
	LinkImage         = "Image"
	LinkDocument      = "Document"
	LinkMention       = "Mention"
	LinkPropertyValue = "PropertyValue"
	LinkHashtag       = "Hashtag"
	LinkEmoji         = "Emoji"
)

// A Link is a lightweight, type-discriminated leaf value: images, documents,
// mentions, profile fields, hashtags, custom emoji. Links never recursively
// contain full objects and are never collapsed to bare strings on the wire.
type Link struct {
	Type      string `json:"type,omitempty"`
	Href      string `json:"href,omitempty"`
	URL       string `json:"url,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Name      string `json:"name,omitempty"`
	// Value is the content of a PropertyValue profile field.
	Value string `json:"value,omitempty"`
}

// Links is a one-or-many list of Link values. The wire form may be a single
// object or an array; serialization always writes the array.
type Links []*Link

func (l *Links) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var many []*Link
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*l = many
		return nil
	}
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var one Link
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = Links{&one}
	return nil
}

// OfType returns the links whose type matches t.
func (l Links) OfType(t string) Links {
	var r Links
	for _, link := range l {
		if link.Type == t {
			r = append(r, link)
		}
	}
	return r
}

// A LastLink is a link position that must hold exactly one value. When the
// wire form is an array the final element wins; remote servers order
// enclosures lowest to highest quality.
type LastLink struct {
	Link
}

func (l *LastLink) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		var many []Link
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		if len(many) > 0 {
			l.Link = many[len(many)-1]
		}
		return nil
	}
	return json.Unmarshal(data, &l.Link)
}
