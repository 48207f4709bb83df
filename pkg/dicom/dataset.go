package dicom

import (
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Dataset is a minimal in-memory view of a DICOM file: an ordered set of
// tag/value pairs with get and upsert access. Parsing and serialization of
// actual DICOM files happen upstream; the pipeline only rewrites values.
type Dataset struct {
	elements []Element
}

// Element is a single tag/value pair within a Dataset.
type Element struct {
	Tag   tag.Tag
	Value string
}

func NewDataset() *Dataset {
	return &Dataset{}
}

// GetString returns the value stored for the given tag.
func (d *Dataset) GetString(t tag.Tag) (string, bool) {
	for _, e := range d.elements {
		if e.Tag == t {
			return e.Value, true
		}
	}
	return "", false
}

// Upsert replaces the value of an existing element or appends a new one,
// preserving element order.
func (d *Dataset) Upsert(t tag.Tag, value string) {
	for i, e := range d.elements {
		if e.Tag == t {
			d.elements[i].Value = value
			return
		}
	}
	d.elements = append(d.elements, Element{Tag: t, Value: value})
}

// Elements returns the elements in insertion order.
func (d *Dataset) Elements() []Element {
	out := make([]Element, len(d.elements))
	copy(out, d.elements)
	return out
}

func (d *Dataset) Len() int {
	return len(d.elements)
}
