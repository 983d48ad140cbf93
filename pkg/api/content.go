package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ContentPartTypeText is the type tag of a plain text content part.
const ContentPartTypeText = "text"

// ContentPart is one element of array-encoded message content.
type ContentPart struct {
	Type     string    `json:"-"`
	Text     string    `json:"-"`
	ImageURL *ImageURL `json:"-"`
}

// ImageURL references an image input. It is passed through untouched.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentPartTypeText, Text: text}
}

// MarshalJSON always emits "text" for text parts, even when it is empty,
// and omits it for other part types that carry no text.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type     string    `json:"type"`
		Text     *string   `json:"text,omitempty"`
		ImageURL *ImageURL `json:"image_url,omitempty"`
	}
	w := wire{Type: p.Type, ImageURL: p.ImageURL}
	if w.Type == "" {
		w.Type = ContentPartTypeText
	}
	if w.Type == ContentPartTypeText || p.Text != "" {
		text := p.Text
		w.Text = &text
	}
	return json.Marshal(w)
}

// UnmarshalJSON deserializes a content part.
func (p *ContentPart) UnmarshalJSON(data []byte) error {
	type wire struct {
		Type     string    `json:"type"`
		Text     string    `json:"text"`
		ImageURL *ImageURL `json:"image_url"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Type = w.Type
	p.Text = w.Text
	p.ImageURL = w.ImageURL
	return nil
}

// Content is message content in either of its two wire encodings: a single
// string, or an ordered array of typed parts. A non-nil Parts slice selects
// the array encoding, otherwise Text is used.
//
// Messages hold content as *Content so that an absent or null value stays
// distinguishable from an empty string.
type Content struct {
	Text  string
	Parts []ContentPart
}

// NewTextContent returns string-encoded content.
func NewTextContent(text string) *Content {
	return &Content{Text: text}
}

// NewPartsContent returns array-encoded content. The result always uses the
// array encoding, even when no parts are given.
func NewPartsContent(parts ...ContentPart) *Content {
	if parts == nil {
		parts = []ContentPart{}
	}
	return &Content{Parts: parts}
}

// IsArray reports whether the content uses the array encoding.
func (c *Content) IsArray() bool {
	return c != nil && c.Parts != nil
}

// String renders the content as plain text.
func (c *Content) String() string {
	return Render(Normalize(c))
}

// MarshalJSON emits a JSON string or a JSON array depending on the encoding.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// UnmarshalJSON accepts a JSON string or an array of content parts. A JSON
// null leaves the value unchanged; on a *Content field the decoder sets the
// pointer to nil before this is reached.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("content: empty value")
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		c.Text = s
		c.Parts = nil
		return nil
	case '[':
		parts := []ContentPart{}
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return fmt.Errorf("content: %w", err)
		}
		c.Text = ""
		c.Parts = parts
		return nil
	default:
		return fmt.Errorf("content must be a string or an array of content parts")
	}
}

// Normalize returns the content as an ordered list of parts. A string becomes
// a single text part and an array is returned unchanged. Nil content yields
// nil.
func Normalize(c *Content) []ContentPart {
	if c == nil {
		return nil
	}
	if c.Parts != nil {
		return c.Parts
	}
	return []ContentPart{TextPart(c.Text)}
}

// Render concatenates the text of all parts without a separator.
func Render(parts []ContentPart) string {
	return Join(parts, "")
}

// Join concatenates the text of all parts with sep between them. It is used
// where a protocol flattens multi-part content with an explicit separator.
func Join(parts []ContentPart, sep string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0].Text
	}

	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// IsEmpty reports whether the content carries no text: nil content, an empty
// string, or an array whose parts are all blank after trimming whitespace.
// Non-text parts such as images count as non-empty.
func IsEmpty(c *Content) bool {
	if c == nil {
		return true
	}
	if c.Parts == nil {
		return c.Text == ""
	}
	for _, p := range c.Parts {
		if p.Type != "" && p.Type != ContentPartTypeText {
			return false
		}
		if strings.TrimSpace(p.Text) != "" {
			return false
		}
	}
	return true
}
