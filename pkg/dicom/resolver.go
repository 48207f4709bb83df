package dicom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

var ErrUnknownTag = errors.New("unknown DICOM tag name")

// ResolveTag looks up a tag by its dictionary keyword. Configuration values
// are typed by hand, so a name that misses on the first lookup is retried
// with all whitespace removed ("Patient ID" resolves as "PatientID").
func ResolveTag(name string) (tag.Tag, error) {
	info, err := tag.FindByName(name)
	if err == nil {
		return info.Tag, nil
	}

	stripped := strings.Join(strings.Fields(name), "")
	info, err = tag.FindByName(stripped)
	if err != nil {
		return tag.Tag{}, fmt.Errorf("%w: %q", ErrUnknownTag, name)
	}
	return info.Tag, nil
}

// ResolveTagList resolves a comma-separated list of tag names. Order and
// duplicates are preserved; empty entries are skipped. A single unresolvable
// name fails the whole list.
func ResolveTagList(value string) ([]tag.Tag, error) {
	var tags []tag.Tag
	for _, name := range strings.Split(value, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		t, err := ResolveTag(name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// TagName returns the dictionary keyword for a tag, falling back to the
// "(gggg,eeee)" form for tags outside the dictionary.
func TagName(t tag.Tag) string {
	if info, err := tag.Find(t); err == nil {
		return info.Name
	}
	return t.String()
}
