package imageref

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ProbeShape is one of the accepted JSON response shapes of an image
// endpoint: InlineShape, LinkShape or UnknownShape.
type ProbeShape interface {
	probeShape()
}

// InlineShape carries base64 image data that already decoded to a valid image.
type InlineShape struct {
	Field string
	Data  []byte
}

// LinkShape names one or more secondary image URLs, in field priority order.
type LinkShape struct {
	Links []FieldValue
}

// UnknownShape is a JSON object with none of the recognised fields.
type UnknownShape struct {
	Keys []string
}

// FieldValue is a JSON field name paired with its string value.
type FieldValue struct {
	Field string
	Value string
}

func (InlineShape) probeShape()  {}
func (LinkShape) probeShape()    {}
func (UnknownShape) probeShape() {}

// Field names probed for inline base64 image data, in priority order.
var inlineFields = []string{"image_data", "data", "base64", "content", "image", "file_data", "blob"}

// Field names probed for a secondary image URL, in priority order.
var linkFields = []string{"url", "image_url", "file_url", "download_url", "src", "href"}

// minInlineLength is the shortest base64 string considered as image data.
const minInlineLength = 100

// DecodeProbeResponse classifies a JSON body. Inline data takes precedence
// over links. Non-object bodies are an error.
func DecodeProbeResponse(body []byte) (ProbeShape, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode probe json: %w", err)
	}
	if len(obj) == 0 {
		return UnknownShape{}, nil
	}

	for _, field := range inlineFields {
		s, ok := stringField(obj, field)
		if !ok || len(s) <= minInlineLength {
			continue
		}
		data, err := decodeBase64Image(s)
		if err != nil {
			continue
		}
		return InlineShape{Field: field, Data: data}, nil
	}

	var links []FieldValue
	for _, field := range linkFields {
		if s, ok := stringField(obj, field); ok {
			links = append(links, FieldValue{Field: field, Value: s})
		}
	}
	if len(links) > 0 {
		return LinkShape{Links: links}, nil
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return UnknownShape{Keys: keys}, nil
}

// stringField returns a non-empty string value for field. Non-string values
// are ignored.
func stringField(obj map[string]json.RawMessage, field string) (string, bool) {
	raw, ok := obj[field]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
