package domain

// EnrichStats counts what EnrichWithCity did to a record's stations.
type EnrichStats struct {
	Kept    int
	Dropped int
	Unknown int // kept with City "Unknown"
}

// EnrichWithCity attaches a City field to every station and restricts the
// station list to the allow-list. Stations whose code is missing from the
// table are kept with City "Unknown"; stations without a Stacode field are
// dropped. The input record is not modified.
func EnrichWithCity(rec EventRecord) (EventRecord, EnrichStats) {
	var stats EnrichStats
	filtered := make([]StationObservation, 0, len(rec.Stations))

	for _, station := range rec.Stations {
		code, ok := station.Code()
		if !ok {
			stats.Dropped++
			continue
		}

		annotated := append(StationObservation(nil), station...)
		city, known := CityForCode(code)
		if !known {
			annotated.Set(FieldCity, Text(UnknownCity))
			filtered = append(filtered, annotated)
			stats.Kept++
			stats.Unknown++
			continue
		}
		if !IsAllowedCity(city) {
			stats.Dropped++
			continue
		}
		annotated.Set(FieldCity, Text(city))
		filtered = append(filtered, annotated)
		stats.Kept++
	}

	rec.Stations = filtered
	return rec, stats
}

// FilterRegions keeps only locations whose county is an allow-listed city.
// It returns the filtered record with the number of locations removed and kept.
func FilterRegions(rec RegionalRecord) (RegionalRecord, int, int) {
	kept := make([]LocationObservation, 0, len(rec.Locations))
	for _, loc := range rec.Locations {
		if IsAllowedCity(loc.County) {
			kept = append(kept, loc)
		}
	}
	removed := len(rec.Locations) - len(kept)
	rec.Locations = kept
	return rec, removed, len(kept)
}
