package analyses

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var jsonFencePattern = regexp.MustCompile("(?s)^```(?:json|JSON)?\\s*\\n?(.*?)\\n?```$")

var errNotObject = errors.New("key information is not a JSON object")

// KeyInformation is either a JSON object parsed from the model's reply or the
// verbatim reply when it could not be parsed.
type KeyInformation struct {
	data map[string]any
	// doc is the compacted object as the model wrote it; field order and
	// number literals are rendered from it.
	doc        json.RawMessage
	raw        string
	structured bool
}

// Structured wraps key information built in code.
func Structured(data map[string]any) KeyInformation {
	return KeyInformation{data: data, structured: true}
}

// StructuredJSON wraps a JSON object document. Numbers are kept exact and the
// document's field order is preserved.
func StructuredJSON(doc []byte) (KeyInformation, error) {
	data, err := decodeObject(doc)
	if err != nil {
		return KeyInformation{}, err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, doc); err != nil {
		return KeyInformation{}, err
	}
	return KeyInformation{data: data, doc: compact.Bytes(), structured: true}, nil
}

// Unparsed wraps a reply that was not valid structured data.
func Unparsed(text string) KeyInformation {
	return KeyInformation{raw: text}
}

// ParseKeyInformation parses response as a JSON object, unwrapping a single
// fenced code block first. Anything else, including arrays, scalars and null,
// is kept as Unparsed.
func ParseKeyInformation(response string) KeyInformation {
	candidate := strings.TrimSpace(response)
	if m := jsonFencePattern.FindStringSubmatch(candidate); len(m) == 2 {
		candidate = strings.TrimSpace(m[1])
	}
	info, err := StructuredJSON([]byte(candidate))
	if err != nil {
		return Unparsed(response)
	}
	return info
}

func decodeObject(doc []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotObject, err)
	}
	if data == nil {
		return nil, errNotObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", errNotObject)
	}
	return data, nil
}

// IsStructured reports which variant k holds.
func (k KeyInformation) IsStructured() bool {
	return k.structured
}

// Data returns the parsed object and true for structured key information.
// Numbers are json.Number values.
func (k KeyInformation) Data() (map[string]any, bool) {
	return k.data, k.structured
}

// Raw returns the verbatim reply and true for unparsed key information.
func (k KeyInformation) Raw() (string, bool) {
	return k.raw, !k.structured
}

// MarshalJSON renders the object, or {"raw_response": text} when unparsed.
func (k KeyInformation) MarshalJSON() ([]byte, error) {
	if !k.structured {
		return json.Marshal(map[string]string{"raw_response": k.raw})
	}
	if k.doc != nil {
		return k.doc, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(k.data); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
