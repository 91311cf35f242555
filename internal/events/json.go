package events

import "encoding/json"

// MarshalJSON renders event with a "type" field in
// snake_case alongside the variant's own camelCase fields at the top
// level. Go's struct tags already give every field the right case; this
// only needs to splice in "type" since no single struct method can add a
// sibling field to its own embedded-field output.
func MarshalJSON(event FmcdEvent) ([]byte, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["type"] = event.EventType()

	return json.Marshal(fields)
}
