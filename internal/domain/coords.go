package domain

import "github.com/valyala/fastjson"

// Coordinates maps a station code to its [longitude, latitude] pair.
// Later additions for the same code overwrite earlier ones.
type Coordinates map[string][2]Value

// AddRecord records the coordinates of every station in rec that has a
// non-empty code and both Stalon and Stalat present and non-null.
func (c Coordinates) AddRecord(rec EventRecord) {
	for _, station := range rec.Stations {
		c.add(station.Value(FieldStationCode), station.Value(FieldStationLon), station.Value(FieldStationLat))
	}
}

// AddDocument scans a serialized EventRecord without fully decoding it.
// Documents without a stations array contribute nothing.
func (c Coordinates) AddDocument(doc []byte) error {
	var p fastjson.Parser
	v, err := p.ParseBytes(doc)
	if err != nil {
		return &Error{Kind: KindDecodeFailure, Detail: "parse station document", Err: err}
	}
	stations := v.GetArray("stations")
	for _, s := range stations {
		if s.Type() != fastjson.TypeObject {
			continue
		}
		c.add(fastValue(s.Get(FieldStationCode)), fastValue(s.Get(FieldStationLon)), fastValue(s.Get(FieldStationLat)))
	}
	return nil
}

func (c Coordinates) add(code, lon, lat Value) {
	if !code.Truthy() || lon.IsNull() || lat.IsNull() {
		return
	}
	c[code.String()] = [2]Value{lon, lat}
}

// ExtractCoordinates builds a coordinate lookup from parsed records in order.
func ExtractCoordinates(records []EventRecord) Coordinates {
	c := make(Coordinates)
	for _, rec := range records {
		c.AddRecord(rec)
	}
	return c
}

// fastValue converts a fastjson scalar into a Value; missing or composite
// values become null.
func fastValue(v *fastjson.Value) Value {
	if v == nil {
		return Null()
	}
	switch v.Type() {
	case fastjson.TypeString:
		return Text(string(v.GetStringBytes()))
	case fastjson.TypeNumber:
		return parseNumber(v.String())
	case fastjson.TypeTrue, fastjson.TypeFalse:
		return Text(v.String())
	default:
		return Null()
	}
}
