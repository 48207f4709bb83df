package dicom

import (
	"math/big"

	"github.com/google/uuid"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// NoValuePlaceholder replaces text-like identifiers that cannot carry a UID.
const NoValuePlaceholder = "no Value"

// NewUID generates a DICOM UID in the UUID-derived form defined by
// PS3.5 B.2: "2.25." followed by the UUID as a decimal integer.
func NewUID() string {
	u := uuid.New()
	return "2.25." + new(big.Int).SetBytes(u[:]).String()
}

// NewProxyValue returns a synthetic replacement for a value of the given VR.
// UID-bearing representations get a fresh random UID on every call; short
// text representations get a constant placeholder; everything else produces
// no replacement and the second return is false.
func NewProxyValue(vr string) (string, bool) {
	switch vr {
	case "UI", "LO", "LT":
		return NewUID(), true
	case "SH", "AE", "CS", "PN", "ST", "UT":
		return NoValuePlaceholder, true
	default:
		return "", false
	}
}

// NewProxyValueForTag looks up the tag's VR in the dictionary and delegates
// to NewProxyValue. Tags outside the dictionary produce no replacement.
func NewProxyValueForTag(t tag.Tag) (string, bool) {
	info, err := tag.Find(t)
	if err != nil {
		return "", false
	}
	return NewProxyValue(info.VR)
}
