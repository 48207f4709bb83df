package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// originalValuesSchemaVersion is embedded in the serialized column so the
// blob can evolve without a relational schema change.
const originalValuesSchemaVersion = 1

// TagValue is a single original tag value recorded before replacement.
type TagValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TagValues is an ordered collection of original tag values. Insertion order
// is preserved through serialization so restores replay in recording order.
type TagValues []TagValue

type tagValuesEnvelope struct {
	Version int        `json:"version"`
	Values  []TagValue `json:"values"`
}

// Get returns the recorded value for a tag name.
func (v TagValues) Get(name string) (string, bool) {
	for _, tv := range v {
		if tv.Name == name {
			return tv.Value, true
		}
	}
	return "", false
}

// Set appends a tag value, replacing an earlier entry with the same name.
func (v *TagValues) Set(name, value string) {
	for i, tv := range *v {
		if tv.Name == name {
			(*v)[i].Value = value
			return
		}
	}
	*v = append(*v, TagValue{Name: name, Value: value})
}

// Value serializes the collection into the versioned envelope stored in the
// relational backend's original_values column.
func (v TagValues) Value() (driver.Value, error) {
	data, err := json.Marshal(tagValuesEnvelope{
		Version: originalValuesSchemaVersion,
		Values:  v,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize original values: %w", err)
	}
	return string(data), nil
}

// Scan decodes the versioned envelope written by Value.
func (v *TagValues) Scan(src any) error {
	var data []byte
	switch raw := src.(type) {
	case nil:
		*v = nil
		return nil
	case string:
		data = []byte(raw)
	case []byte:
		data = raw
	default:
		return fmt.Errorf("unsupported original values column type %T", src)
	}

	var envelope tagValuesEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode original values: %w", err)
	}
	if envelope.Version != originalValuesSchemaVersion {
		return fmt.Errorf("unsupported original values schema version %d", envelope.Version)
	}

	*v = envelope.Values
	return nil
}
