package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/pql/internal/event"
)

// marshalEvent returns the canonical JSON body of e and its content id.
// Canonical JSON keeps floats distinguishable from integers (2.0 vs 2),
// so events read back compare equal to the ones written.
func marshalEvent(e event.Event) (body, key string, err error) {
	data, err := event.MarshalCanonical(e)
	if err != nil {
		return "", "", fmt.Errorf("marshal event: %w", err)
	}
	key, err = event.ContentID(e)
	if err != nil {
		return "", "", err
	}
	return string(data), key, nil
}

func unmarshalEvent(body string) (event.Event, error) {
	var e event.Event
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		return event.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return e, nil
}

func marshalContext(ctx map[string]event.Value) (string, error) {
	doc := make(map[string]any, len(ctx))
	for k, v := range ctx {
		doc[k] = v
	}
	data, err := event.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}
	return string(data), nil
}

func unmarshalContext(data string) (map[string]event.Value, error) {
	var e event.Event
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	return e.Attrs(), nil
}

func unmarshalList(data string) (event.List, error) {
	v, err := event.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	list, ok := v.(event.List)
	if !ok {
		return nil, fmt.Errorf("unmarshal list: got %T", v)
	}
	return list, nil
}
