package task

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// TagsKind says which shape a task's tags arrived in.
type TagsKind int

const (
	TagsAbsent TagsKind = iota
	TagsList
	TagsText
	TagsOther
)

func (k TagsKind) String() string {
	switch k {
	case TagsList:
		return "list"
	case TagsText:
		return "text"
	case TagsOther:
		return "other"
	default:
		return "absent"
	}
}

// Tags is the raw tags field of a task. Feeds send either a list of strings,
// a string holding a JSON array, nothing, or something else entirely; Tags
// keeps which one it was so NormalizeTags can handle each case.
type Tags struct {
	kind TagsKind
	list []string
	text string
}

func NoTags() Tags { return Tags{} }

func OtherTags() Tags { return Tags{kind: TagsOther} }

func TagsFromList(list []string) Tags {
	return Tags{kind: TagsList, list: list}
}

func TagsFromText(text string) Tags {
	return Tags{kind: TagsText, text: text}
}

func (t Tags) Kind() TagsKind { return t.kind }

// Text returns the raw string for TagsText values.
func (t Tags) Text() string { return t.text }

// NormalizeTags turns any Tags value into an ordered list of tag strings.
// It never fails: text that starts with "[" but is not a JSON array of
// strings yields no tags, as does anything that is not a list or text.
// Non-string array elements are dropped.
func NormalizeTags(t Tags) []string {
	switch t.kind {
	case TagsList:
		out := make([]string, len(t.list))
		copy(out, t.list)
		return out
	case TagsText:
		if !strings.HasPrefix(t.text, "[") {
			return []string{}
		}
		return parseTagArray([]byte(t.text))
	default:
		return []string{}
	}
}

func parseTagArray(b []byte) []string {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (t *Tags) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = NoTags()
	case b[0] == '[':
		*t = TagsFromList(parseTagArray(b))
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TagsFromText(s)
	default:
		*t = OtherTags()
	}
	return nil
}

func (t Tags) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case TagsList:
		if t.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(t.list)
	case TagsText:
		return json.Marshal(t.text)
	default:
		return []byte("null"), nil
	}
}

func (t *Tags) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		list := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind == yaml.ScalarNode && item.ShortTag() == "!!str" {
				list = append(list, item.Value)
			}
		}
		*t = TagsFromList(list)
	case yaml.ScalarNode:
		switch value.ShortTag() {
		case "!!null":
			*t = NoTags()
		case "!!str":
			*t = TagsFromText(value.Value)
		default:
			*t = OtherTags()
		}
	default:
		*t = OtherTags()
	}
	return nil
}

func (t Tags) MarshalYAML() (any, error) {
	switch t.kind {
	case TagsList:
		if t.list == nil {
			return []string{}, nil
		}
		return t.list, nil
	case TagsText:
		return t.text, nil
	default:
		return nil, nil
	}
}
