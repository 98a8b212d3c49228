package weather

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"time"
	"unicode/utf8"
)

const (
	debugPreviewChars  = 100
	debugPreviewFields = 6
)

// Payload is the generic JSON tree returned by the archive API.
type Payload struct {
	Tree   map[string]any
	Hourly map[string]any

	// UTCOffset is utc_offset_seconds, the offset the hourly times are
	// written at. HasUTCOffset is false when the payload omits it.
	UTCOffset    int
	HasUTCOffset bool
}

// Decode parses the response body and checks that the hourly block is present.
// With debug set, a short preview of the payload is logged.
func Decode(raw RawResponse, debug bool) (*Payload, error) {
	if !utf8.Valid(raw.Body) {
		return nil, schemaErrorf("response body is not valid UTF-8")
	}
	text := string(raw.Body)

	dec := json.NewDecoder(bytes.NewReader(raw.Body))
	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, schemaErrorf("response is not a JSON object: %v", err)
	}

	if debug {
		logPreview(tree, text)
	}

	node, ok := tree["hourly"]
	if !ok {
		return nil, schemaErrorf("expected 'hourly' data not found in response")
	}
	hourly, ok := node.(map[string]any)
	if !ok {
		return nil, schemaErrorf("'hourly' is %T, expected an object", node)
	}

	p := &Payload{Tree: tree, Hourly: hourly}
	if node, ok := tree["utc_offset_seconds"]; ok {
		offset, ok := node.(float64)
		if !ok || offset != math.Trunc(offset) {
			return nil, schemaErrorf("utc_offset_seconds is %v, expected whole seconds", node)
		}
		p.UTCOffset, p.HasUTCOffset = int(offset), true
	}
	return p, nil
}

// Table builds the weather table from the hourly block, presenting times in loc.
func (p *Payload) Table(loc *time.Location) (*Table, error) {
	if p.HasUTCOffset {
		return BuildTableAtOffset(p.Hourly, loc, p.UTCOffset)
	}
	return BuildTable(p.Hourly, loc)
}

// Flatten turns nested objects into dotted keys. Arrays and scalars are leaves.
func Flatten(tree map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, "", tree)
	return out
}

func flattenInto(out map[string]any, prefix string, node map[string]any) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flattenInto(out, key, child)
			continue
		}
		out[key] = v
	}
}

func logPreview(tree map[string]any, text string) {
	flat := Flatten(tree)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, 2*debugPreviewFields)
	for _, k := range keys {
		if len(attrs) == 2*debugPreviewFields {
			break
		}
		if _, isArray := flat[k].([]any); isArray {
			continue
		}
		attrs = append(attrs, k, flat[k])
	}
	slog.Debug("decoded payload fields", attrs...)

	preview := text
	if utf8.RuneCountInString(preview) > debugPreviewChars {
		preview = string([]rune(preview)[:debugPreviewChars])
	}
	slog.Debug("raw payload preview", "json", preview)
}
