package domain

// EventRecord is a bulletin-sourced earthquake with its station observations.
type EventRecord struct {
	EarthquakeID *string              `json:"earthquake_id"` // second "_" segment of the bulletin filename
	Timestamp    *string              `json:"timestamp"`     // ISO-8601 local time, nil if unparseable
	Latitude     *float64             `json:"latitude"`
	Longitude    *float64             `json:"longitude"`
	DepthKm      *float64             `json:"depth_km"`
	Magnitude    *float64             `json:"magnitude"`
	Stations     []StationObservation `json:"stations"`
}

// MarshalJSON writes the numeric header fields as floats, so a whole-number
// magnitude or depth reads back as a float ("5.0", not "5").
func (r EventRecord) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		EarthquakeID *string              `json:"earthquake_id"`
		Timestamp    *string              `json:"timestamp"`
		Latitude     Value                `json:"latitude"`
		Longitude    Value                `json:"longitude"`
		DepthKm      Value                `json:"depth_km"`
		Magnitude    Value                `json:"magnitude"`
		Stations     []StationObservation `json:"stations"`
	}{
		EarthquakeID: r.EarthquakeID,
		Timestamp:    r.Timestamp,
		Latitude:     FloatPtr(r.Latitude),
		Longitude:    FloatPtr(r.Longitude),
		DepthKm:      FloatPtr(r.DepthKm),
		Magnitude:    FloatPtr(r.Magnitude),
		Stations:     r.Stations,
	})
}

// LocationObservation is one affected location scraped from a detail page.
// Every field is kept verbatim as extracted.
type LocationObservation struct {
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
	County       string `json:"county"`
	Intensity    string `json:"intensity"`
	LocationName string `json:"location_name"`
}

// RegionalRecord is an HTML-sourced earthquake summary.
type RegionalRecord struct {
	ID           string                `json:"-"` // encoded identifier from the detail page URL
	EpicenterLat string                `json:"epicenter_lat"`
	EpicenterLon string                `json:"epicenter_lon"`
	Magnitude    string                `json:"magnitude"`
	MaxIntensity string                `json:"max_intensity"`
	Locations    []LocationObservation `json:"locations"`
}

// SourceType identifies which source shape a unified record came from.
type SourceType string

const (
	SourceDetailedStation   SourceType = "detailed_station"
	SourceRegionalIntensity SourceType = "regional_intensity"
)

// AffectedLocation is the fixed-shape location entry of a unified record.
// Fields a source format cannot supply are null.
type AffectedLocation struct {
	LocationName Value `json:"location_name"`
	Latitude     Value `json:"latitude"`
	Longitude    Value `json:"longitude"`
	County       Value `json:"county"`
	Intensity    Value `json:"intensity"`
	StationCode  Value `json:"station_code"`
	DistanceKm   Value `json:"distance_km"`
	PGAV         Value `json:"pga_v"`
	PGANS        Value `json:"pga_ns"`
	PGAEW        Value `json:"pga_ew"`
	PGVV         Value `json:"pgv_v"`
	PGVNS        Value `json:"pgv_ns"`
	PGVEW        Value `json:"pgv_ew"`
}

// UnifiedRecord is the common output schema for both source shapes.
type UnifiedRecord struct {
	EventID              string             `json:"event_id"`
	Timestamp            Value              `json:"timestamp"`
	EpicenterLatitude    Value              `json:"epicenter_latitude"`
	EpicenterLongitude   Value              `json:"epicenter_longitude"`
	DepthKm              Value              `json:"depth_km"`
	Magnitude            Value              `json:"magnitude"`
	MaxIntensityObserved Value              `json:"max_intensity_observed"`
	SourceType           SourceType         `json:"source_type"`
	AffectedLocations    []AffectedLocation `json:"affected_locations"`
}
