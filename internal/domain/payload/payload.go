// Package payload defines the {html, css, js} triple exchanged between the
// normalizer, the preview renderer, exports and persistence.
package payload

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/bytedance/sonic"
)

// CodePayload is one UI component's source. Values are never mutated in
// place; the With* helpers return copies.
type CodePayload struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js"`
}

// New builds a payload from its three parts.
func New(html, css, js string) CodePayload {
	return CodePayload{HTML: html, CSS: css, JS: js}
}

// WithHTML returns a copy with the html field replaced.
func (p CodePayload) WithHTML(html string) CodePayload {
	p.HTML = html
	return p
}

// WithCSS returns a copy with the css field replaced.
func (p CodePayload) WithCSS(css string) CodePayload {
	p.CSS = css
	return p
}

// WithJS returns a copy with the js field replaced.
func (p CodePayload) WithJS(js string) CodePayload {
	p.JS = js
	return p
}

// IsEmpty reports whether all three fields are empty.
func (p CodePayload) IsEmpty() bool {
	return p.HTML == "" && p.CSS == "" && p.JS == ""
}

// Hash returns a stable content hash. Fields are length-prefixed so that
// moving text between fields changes the hash.
func (p CodePayload) Hash() string {
	h := sha256.New()
	var size [8]byte
	for _, field := range []string{p.HTML, p.CSS, p.JS} {
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		h.Write(size[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Size returns the combined byte length of the three fields.
func (p CodePayload) Size() int {
	return len(p.HTML) + len(p.CSS) + len(p.JS)
}

// Encode serializes the payload as flat JSON.
func (p CodePayload) Encode() ([]byte, error) {
	return sonic.ConfigStd.Marshal(p)
}

// Decode reconstructs a payload from persisted JSON. Missing, null or
// non-string fields become "".
func Decode(data []byte) (CodePayload, error) {
	var raw map[string]interface{}
	if err := sonic.ConfigStd.Unmarshal(data, &raw); err != nil {
		return CodePayload{}, fmt.Errorf("decode payload: %w", err)
	}
	if raw == nil {
		return CodePayload{}, fmt.Errorf("decode payload: not an object")
	}
	return FromMap(raw), nil
}

// FromMap converts a generic object into a payload using the same field
// defaulting rules as Decode.
func FromMap(m map[string]interface{}) CodePayload {
	return CodePayload{
		HTML: StringField(m, "html"),
		CSS:  StringField(m, "css"),
		JS:   StringField(m, "js"),
	}
}

// StringField returns m[key] when it is a string, otherwise "".
func StringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
