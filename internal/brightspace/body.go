package brightspace

import (
	"encoding/base64"
	"encoding/json"
)

// BodyKind tags the variant held by a Body.
type BodyKind int

const (
	BodyNone BodyKind = iota
	BodyStructured
	BodyText
	BodyBinary
)

func (k BodyKind) String() string {
	switch k {
	case BodyStructured:
		return "structured"
	case BodyText:
		return "text"
	case BodyBinary:
		return "binary"
	default:
		return "empty"
	}
}

// Body is a response body classified by content type: decoded JSON, text, or
// opaque bytes. The raw bytes are always retained.
type Body struct {
	kind  BodyKind
	value interface{}
	text  string
	raw   []byte
}

// StructuredBody wraps a decoded JSON value.
func StructuredBody(value interface{}, raw []byte) Body {
	return Body{kind: BodyStructured, value: value, raw: raw}
}

// TextBody wraps a textual payload.
func TextBody(text string) Body {
	return Body{kind: BodyText, text: text, raw: []byte(text)}
}

// BinaryBody wraps an opaque payload.
func BinaryBody(raw []byte) Body {
	return Body{kind: BodyBinary, raw: raw}
}

// Kind returns the variant tag.
func (b Body) Kind() BodyKind {
	return b.kind
}

// Structured returns the decoded JSON value if b is structured.
func (b Body) Structured() (interface{}, bool) {
	if b.kind != BodyStructured {
		return nil, false
	}
	return b.value, true
}

// Object returns the decoded JSON object if b is a structured object.
func (b Body) Object() (map[string]interface{}, bool) {
	obj, ok := b.value.(map[string]interface{})
	return obj, ok && b.kind == BodyStructured
}

// Text returns the payload if b is textual.
func (b Body) Text() (string, bool) {
	return b.text, b.kind == BodyText
}

// Value returns what MarshalJSON would encode: the decoded value, the text,
// or the base64 of binary data.
func (b Body) Value() interface{} {
	switch b.kind {
	case BodyStructured:
		return b.value
	case BodyText:
		return b.text
	case BodyBinary:
		return b.Base64()
	default:
		return nil
	}
}

// Raw returns the undecoded response bytes.
func (b Body) Raw() []byte {
	return b.raw
}

// Base64 returns the raw bytes in standard base64.
func (b Body) Base64() string {
	return base64.StdEncoding.EncodeToString(b.raw)
}

// String renders the body for diagnostics.
func (b Body) String() string {
	switch b.kind {
	case BodyStructured:
		data, err := json.Marshal(b.value)
		if err != nil {
			return string(b.raw)
		}
		return string(data)
	case BodyText:
		return b.text
	case BodyBinary:
		return b.Base64()
	default:
		return ""
	}
}

// MarshalJSON emits the decoded value, the text, or base64 of binary data so that
// every variant can cross a JSON-only boundary.
func (b Body) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Value())
}
