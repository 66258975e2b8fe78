package record

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
)

// UnmarshalJSON decodes a JSON object into r, preserving key order. Numbers
// are kept as json.Number so they re-encode unchanged.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	decoded, err := decodeTopObject(dec)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

// DecodeJSON decodes one JSON object. The named binary fields, when they hold
// a base64 string, are replaced by the decoded bytes; a value that is not
// valid base64 is left as a string.
func DecodeJSON(data []byte, binaryFields ...string) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	r, err := decodeTopObject(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("record: trailing data after object")
	}
	r.DecodeBinary(binaryFields...)
	return r, nil
}

// DecodeJSONBatch decodes either a single JSON object or an array of objects.
func DecodeJSONBatch(data []byte, binaryFields ...string) ([]*Record, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("record: empty input")
	}
	if trimmed[0] == '{' {
		r, err := DecodeJSON(trimmed, binaryFields...)
		if err != nil {
			return nil, err
		}
		return []*Record{r}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	var out []*Record
	for dec.More() {
		r, err := decodeTopObject(dec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(out), err)
		}
		r.DecodeBinary(binaryFields...)
		out = append(out, r)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeBinary base64-decodes the named string fields in place.
func (r *Record) DecodeBinary(fields ...string) {
	for _, f := range fields {
		s, ok := r.values[f].(string)
		if !ok {
			continue
		}
		if b, err := base64.StdEncoding.DecodeString(s); err == nil {
			r.values[f] = b
		}
	}
}

func decodeTopObject(dec *json.Decoder) (*Record, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	return decodeObjectBody(dec)
}

// decodeObjectBody reads key/value pairs up to and including the closing brace.
func decodeObjectBody(dec *json.Decoder) (*Record, error) {
	r := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("record: expected object key, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		r.Set(key, v)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		return decodeObjectBody(dec)
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("record: unexpected delimiter %v", delim)
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("record: expected %q, got %v", want, tok)
	}
	return nil
}
