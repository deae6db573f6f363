package domain

import (
	"encoding/json"
	"regexp"

	"github.com/valyala/fastjson"
)

// leadingDigitsRe captures the digit run an encoded regional identifier
// starts with, e.g. "2024040312345652_regional" -> "2024040312345652".
var leadingDigitsRe = regexp.MustCompile(`^\d+`)

// stationDocument is the serialized (possibly city-enriched) EventRecord as
// read back by the unifier. Value fields distinguish missing from typed data.
type stationDocument struct {
	Timestamp Value                `json:"timestamp"`
	Latitude  Value                `json:"latitude"`
	Longitude Value                `json:"longitude"`
	DepthKm   Value                `json:"depth_km"`
	Magnitude Value                `json:"magnitude"`
	Stations  []StationObservation `json:"stations"`
}

type regionalDocument struct {
	EpicenterLat Value              `json:"epicenter_lat"`
	EpicenterLon Value              `json:"epicenter_lon"`
	Magnitude    Value              `json:"magnitude"`
	MaxIntensity Value              `json:"max_intensity"`
	Locations    []regionalLocation `json:"locations"`
}

type regionalLocation struct {
	LocationName Value `json:"location_name"`
	Latitude     Value `json:"latitude"`
	Longitude    Value `json:"longitude"`
	County       Value `json:"county"`
	Intensity    Value `json:"intensity"`
}

// DetectShape classifies a JSON document: a list-valued "stations" field is
// detailed-station data, otherwise a list-valued "locations" field is
// regional data. Anything else is KindUnknownSourceShape.
func DetectShape(doc []byte) (SourceType, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(doc)
	if err != nil {
		return "", &Error{Kind: KindDecodeFailure, Detail: "parse document", Err: err}
	}
	if v.Type() != fastjson.TypeObject {
		return "", newError(KindUnknownSourceShape, "document is a JSON %s", v.Type())
	}
	if s := v.Get("stations"); s != nil && s.Type() == fastjson.TypeArray {
		return SourceDetailedStation, nil
	}
	if l := v.Get("locations"); l != nil && l.Type() == fastjson.TypeArray {
		return SourceRegionalIntensity, nil
	}
	return "", newError(KindUnknownSourceShape, "neither stations nor locations list present")
}

// Unify maps a serialized station or regional document into the unified
// schema. eventID is the source file's base name without extension.
func Unify(eventID string, doc []byte) (UnifiedRecord, error) {
	shape, err := DetectShape(doc)
	if err != nil {
		return UnifiedRecord{}, err
	}

	switch shape {
	case SourceDetailedStation:
		var d stationDocument
		if err := json.Unmarshal(doc, &d); err != nil {
			return UnifiedRecord{}, &Error{Kind: KindDecodeFailure, Detail: "decode station document", Err: err}
		}
		return unifyStations(eventID, d), nil
	default:
		var d regionalDocument
		if err := json.Unmarshal(doc, &d); err != nil {
			return UnifiedRecord{}, &Error{Kind: KindDecodeFailure, Detail: "decode regional document", Err: err}
		}
		return unifyRegional(eventID, d), nil
	}
}

func unifyStations(eventID string, d stationDocument) UnifiedRecord {
	out := UnifiedRecord{
		EventID:            eventID,
		Timestamp:          d.Timestamp,
		EpicenterLatitude:  d.Latitude,
		EpicenterLongitude: d.Longitude,
		DepthKm:            d.DepthKm,
		Magnitude:          d.Magnitude,
		SourceType:         SourceDetailedStation,
		AffectedLocations:  make([]AffectedLocation, 0, len(d.Stations)),
	}

	for _, s := range d.Stations {
		out.AffectedLocations = append(out.AffectedLocations, AffectedLocation{
			LocationName: s.Value(FieldStationName),
			Latitude:     s.Value(FieldStationLat),
			Longitude:    s.Value(FieldStationLon),
			County:       s.Value(FieldCity),
			Intensity:    s.Value(FieldIntensity),
			StationCode:  s.Value(FieldStationCode),
			DistanceKm:   s.Value(FieldDistance),
			PGAV:         s.Value(FieldPGAV),
			PGANS:        s.Value(FieldPGANS),
			PGAEW:        s.Value(FieldPGAEW),
			PGVV:         s.Value(FieldPGVV),
			PGVNS:        s.Value(FieldPGVNS),
			PGVEW:        s.Value(FieldPGVEW),
		})
	}
	out.MaxIntensityObserved = MaxIntensity(d.Stations)
	return out
}

// MaxIntensity returns the largest numeric intensity across stations, or
// null when no station carries a numeric intensity.
func MaxIntensity(stations []StationObservation) Value {
	best := Null()
	bestN := 0.0
	for _, s := range stations {
		v := s.Value(FieldIntensity)
		n, ok := v.Number()
		if !ok {
			continue
		}
		if best.IsNull() || n > bestN {
			best, bestN = v, n
		}
	}
	return best
}

func unifyRegional(eventID string, d regionalDocument) UnifiedRecord {
	out := UnifiedRecord{
		EventID:              eventID,
		Timestamp:            timestampFromID(eventID),
		EpicenterLatitude:    d.EpicenterLat,
		EpicenterLongitude:   d.EpicenterLon,
		DepthKm:              Null(),
		Magnitude:            d.Magnitude,
		MaxIntensityObserved: d.MaxIntensity,
		SourceType:           SourceRegionalIntensity,
		AffectedLocations:    make([]AffectedLocation, 0, len(d.Locations)),
	}

	for _, loc := range d.Locations {
		out.AffectedLocations = append(out.AffectedLocations, AffectedLocation{
			LocationName: loc.LocationName,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			County:       loc.County,
			Intensity:    loc.Intensity,
		})
	}
	return out
}

// timestampFromID slices the leading 14 digits of an encoded identifier into
// "YYYY-MM-DD HH:MM:SS". Shorter digit runs yield null.
func timestampFromID(eventID string) Value {
	digits := leadingDigitsRe.FindString(eventID)
	if len(digits) < 14 {
		return Null()
	}
	return Text(digits[0:4] + "-" + digits[4:6] + "-" + digits[6:8] + " " +
		digits[8:10] + ":" + digits[10:12] + ":" + digits[12:14])
}
