package stage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Outputs is the JSON object a stage returns. Values stay encoded until a
// caller decodes the path it needs.
type Outputs struct {
	fields map[string]json.RawMessage
}

// NewOutputs encodes every value of v.
func NewOutputs(v map[string]any) (Outputs, error) {
	fields := make(map[string]json.RawMessage, len(v))
	for k, val := range v {
		b, err := json.Marshal(val)
		if err != nil {
			return Outputs{}, fmt.Errorf("encode output %q: %w", k, err)
		}
		fields[k] = b
	}
	return Outputs{fields: fields}, nil
}

// ParseOutputs reads a JSON object.
func ParseOutputs(b []byte) (Outputs, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return Outputs{}, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if fields == nil {
		return Outputs{}, fmt.Errorf("%w: not an object", ErrInvalidOutput)
	}
	return Outputs{fields: fields}, nil
}

// Lookup returns the raw value at a dot separated path such as
// "post_process.valid_generation_results".
func (o Outputs) Lookup(path string) (json.RawMessage, bool, error) {
	parts := strings.Split(path, ".")
	cur := o.fields
	for i, part := range parts {
		raw, ok := cur[part]
		if !ok {
			return nil, false, nil
		}
		if i == len(parts)-1 {
			return raw, true, nil
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, false, nil
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(raw, &next); err != nil {
			return nil, false, fmt.Errorf("%w: %s is not an object", ErrInvalidOutput, strings.Join(parts[:i+1], "."))
		}
		cur = next
	}
	return nil, false, nil
}

// Decode unmarshals the value at path into v. A missing path is an error.
func (o Outputs) Decode(path string, v any) error {
	raw, ok, err := o.Lookup(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingOutput, path)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidOutput, path, err)
	}
	return nil
}

// DecodeOptional is Decode that leaves v untouched when the path is absent.
func (o Outputs) DecodeOptional(path string, v any) error {
	raw, ok, err := o.Lookup(path)
	if err != nil || !ok {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidOutput, path, err)
	}
	return nil
}

func (o Outputs) MarshalJSON() ([]byte, error) {
	if o.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o.fields)
}
