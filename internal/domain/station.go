package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Station field names as they appear in bulletin body lines.
const (
	FieldStationCode = "Stacode"
	FieldStationName = "Staname"
	FieldStationLat  = "Stalat"
	FieldStationLon  = "Stalon"
	FieldDistance    = "Dist"
	FieldIntensity   = "Int"
	FieldPGAV        = "PGA(V)"
	FieldPGANS       = "PGA(NS)"
	FieldPGAEW       = "PGA(EW)"
	FieldPGVV        = "PGV(V)"
	FieldPGVNS       = "PGV(NS)"
	FieldPGVEW       = "PGV(EW)"

	// FieldCity is attached by EnrichWithCity.
	FieldCity = "City"
)

// Field is one key/value pair of a station observation.
type Field struct {
	Key   string
	Value Value
}

// StationObservation is an ordered, open-ended field bag. Field order follows
// the source line and is preserved through JSON.
type StationObservation []Field

// Get returns the value for key and whether it was present.
func (s StationObservation) Get(key string) (Value, bool) {
	for _, f := range s {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null(), false
}

// Value returns the value for key, or null when absent.
func (s StationObservation) Value(key string) Value {
	v, _ := s.Get(key)
	return v
}

// Set overwrites key in place, or appends it when new.
func (s *StationObservation) Set(key string, v Value) {
	for i := range *s {
		if (*s)[i].Key == key {
			(*s)[i].Value = v
			return
		}
	}
	*s = append(*s, Field{Key: key, Value: v})
}

// Code returns the station code in string form when the field is present.
func (s StationObservation) Code() (string, bool) {
	v, ok := s.Get(FieldStationCode)
	if !ok {
		return "", false
	}
	return v.String(), true
}

func (s StationObservation) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *StationObservation) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("station observation must be a JSON object")
	}

	out := StationObservation{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected station key token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("station field %q: %w", key, err)
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("station field %q: %w", key, err)
		}
		out.Set(key, v)
	}
	*s = out
	return nil
}
