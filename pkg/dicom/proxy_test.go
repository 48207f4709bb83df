package dicom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suyashkumar/dicom/pkg/tag"
)

var allVRCodes = []string{
	"AE", "AS", "AT", "CS", "DA", "DS", "DT", "FL", "FD", "IS",
	"LO", "LT", "OB", "OD", "OF", "OL", "OW", "PN", "SH", "SL",
	"SQ", "SS", "ST", "TM", "UC", "UI", "UL", "UN", "UR", "US", "UT",
}

func TestNewProxyValueCategories(t *testing.T) {
	uidVRs := map[string]bool{"UI": true, "LO": true, "LT": true}
	placeholderVRs := map[string]bool{"SH": true, "AE": true, "CS": true, "PN": true, "ST": true, "UT": true}

	for _, vr := range allVRCodes {
		value, ok := NewProxyValue(vr)

		switch {
		case uidVRs[vr]:
			require.True(t, ok, "expected a replacement for VR %s", vr)
			assert.True(t, strings.HasPrefix(value, "2.25."), "VR %s should produce a UUID-derived UID, got %q", vr, value)
		case placeholderVRs[vr]:
			require.True(t, ok, "expected a replacement for VR %s", vr)
			assert.Equal(t, NoValuePlaceholder, value, "VR %s", vr)
		default:
			assert.False(t, ok, "VR %s must not produce a replacement", vr)
			assert.Empty(t, value)
		}
	}
}

func TestNewProxyValueNeverRepeatsUIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		value, ok := NewProxyValue("UI")
		require.True(t, ok)
		require.False(t, seen[value], "UID %q generated twice", value)
		seen[value] = true
	}
}

func TestNewProxyValueForTag(t *testing.T) {
	// StudyInstanceUID carries VR UI.
	value, ok := NewProxyValueForTag(tag.StudyInstanceUID)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(value, "2.25."))

	// PatientID carries VR LO.
	value, ok = NewProxyValueForTag(tag.PatientID)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(value, "2.25."))

	// Unknown tags have no dictionary VR and produce no replacement.
	_, ok = NewProxyValueForTag(tag.Tag{Group: 0x7777, Element: 0x0001})
	assert.False(t, ok)
}
