package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidPayload is returned when a payload fails its schema or cannot be decoded.
var ErrInvalidPayload = errors.New("invalid payload")

// Request is one parsed action.
type Request struct {
	Kind    Kind
	Payload map[string]any
}

// ParseRequest accepts either a bare kind string or an object
// {"type": KIND, ...payload}. Objects may be given decoded (map[string]any)
// or as raw JSON ([]byte, json.RawMessage).
//
// Postcondition: on success Payload is non-nil and excludes "type".
func ParseRequest(raw any) (Request, error) {
	switch v := raw.(type) {
	case string:
		k, err := ParseKind(v)
		if err != nil {
			return Request{}, err
		}
		return Request{Kind: k, Payload: map[string]any{}}, nil
	case Kind:
		return ParseRequest(string(v))
	case []byte:
		return parseJSON(v)
	case json.RawMessage:
		return parseJSON(v)
	case map[string]any:
		t, ok := v["type"].(string)
		if !ok {
			return Request{}, fmt.Errorf("missing type: %w", ErrUnknownAction)
		}
		k, err := ParseKind(t)
		if err != nil {
			return Request{}, err
		}
		payload := make(map[string]any, len(v))
		for key, val := range v {
			if key != "type" {
				payload[key] = val
			}
		}
		return Request{Kind: k, Payload: payload}, nil
	default:
		return Request{}, fmt.Errorf("unsupported request %T: %w", raw, ErrUnknownAction)
	}
}

func parseJSON(data []byte) (Request, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Request{}, fmt.Errorf("decoding request: %w", ErrUnknownAction)
	}
	return ParseRequest(v)
}

// Decode converts the payload into a typed struct through its JSON form.
func (r Request) Decode(into any) error {
	data, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", r.Kind, ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("%s: %w: %w", r.Kind, ErrInvalidPayload, err)
	}
	return nil
}
