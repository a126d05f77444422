package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Metadata is an opaque JSON object attached to a memory. It is kept as raw
// bytes so it round-trips through storage exactly as written.
type Metadata []byte

// MetadataOf marshals v into Metadata.
func MetadataOf(v any) (Metadata, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrValidation, err)
	}
	return Metadata(b), nil
}

// Clone returns an independent copy.
func (m Metadata) Clone() Metadata {
	if len(m) == 0 {
		return nil
	}
	return append(Metadata(nil), m...)
}

// Decode unmarshals the document into v.
func (m Metadata) Decode(v any) error {
	return json.Unmarshal(m, v)
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*m = nil
		return nil
	}
	*m = append((*m)[:0], b...)
	return nil
}

func (m Metadata) MarshalYAML() (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(m, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (m *Metadata) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	if v == nil {
		*m = nil
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	*m = b
	return nil
}

const objectSchema = `{"type": "object"}`

// MetadataValidator checks metadata documents against a JSON Schema. Every
// schema is combined with {"type": "object"}, so metadata is always an object.
type MetadataValidator struct {
	schema *gojsonschema.Schema
}

// NewMetadataValidator compiles schemaJSON. An empty schema only requires
// the document to be a JSON object.
func NewMetadataValidator(schemaJSON string) (*MetadataValidator, error) {
	doc := objectSchema
	if strings.TrimSpace(schemaJSON) != "" {
		doc = `{"allOf": [` + objectSchema + `, ` + schemaJSON + `]}`
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compile metadata schema: %w", err)
	}
	return &MetadataValidator{schema: schema}, nil
}

// DefaultMetadataValidator accepts any JSON object.
var DefaultMetadataValidator = mustMetadataValidator("")

func mustMetadataValidator(schemaJSON string) *MetadataValidator {
	v, err := NewMetadataValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate returns an ErrValidation error if m is not acceptable. Absent
// metadata is always valid.
func (v *MetadataValidator) Validate(m Metadata) error {
	if len(m) == 0 {
		return nil
	}
	if !json.Valid(m) {
		return fmt.Errorf("%w: metadata is not valid JSON", ErrValidation)
	}
	res, err := v.schema.Validate(gojsonschema.NewBytesLoader(m))
	if err != nil {
		return fmt.Errorf("%w: metadata: %v", ErrValidation, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: metadata: %s", ErrValidation, strings.Join(msgs, "; "))
	}
	return nil
}
