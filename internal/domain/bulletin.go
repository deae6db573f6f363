package domain

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	headerLines     = 5
	minBulletinRows = headerLines + 1
	stationMarker   = FieldStationCode + "="

	// originTimeLayout accepts the bulletin's "YYYY/MM/DD HH:MM:SS" with or
	// without zero padding.
	originTimeLayout = "2006/1/2 15:4:5"
	isoLayout        = "2006-01-02T15:04:05"
)

// Recognized header keys.
const (
	headerLat        = "Lat"
	headerLon        = "Lon"
	headerDepth      = "Depth"
	headerOriginTime = "Origin Time"
	headerMagnitude  = "Mag"
)

// coordRe pulls the first unsigned decimal out of a header value such as
// "23.77 N" or "121.67E".
var coordRe = regexp.MustCompile(`(\d+\.\d+)`)

// ParseBulletin decodes one bulletin text (already converted from Big5) into
// an EventRecord. name is the source filename, e.g. "2024_113001.txt".
// Unparseable header values are logged and left nil.
func ParseBulletin(name, text string, logger *slog.Logger) (EventRecord, error) {
	lines := splitLines(text)
	if len(lines) < minBulletinRows {
		return EventRecord{}, newError(KindIncomplete, "%s has %d lines", name, len(lines))
	}

	header := parseHeader(lines[:headerLines])
	rec := EventRecord{
		EarthquakeID: bulletinID(name),
		Latitude:     parseCoordinate(header, headerLat),
		Longitude:    parseCoordinate(header, headerLon),
		Stations:     []StationObservation{},
	}

	if v, ok := header[headerOriginTime]; ok {
		if ts, err := time.Parse(originTimeLayout, v); err == nil {
			iso := ts.Format(isoLayout)
			rec.Timestamp = &iso
		} else {
			logger.Warn("could not parse origin time", "file", name, "value", v, "error", err)
		}
	}
	if v, ok := header[headerDepth]; ok {
		rec.DepthKm = parseHeaderFloat(strings.ReplaceAll(v, "km", ""), name, headerDepth, logger)
	}
	if v, ok := header[headerMagnitude]; ok {
		rec.Magnitude = parseHeaderFloat(v, name, headerMagnitude, logger)
	}

	for _, line := range lines[headerLines:] {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, stationMarker) {
			continue
		}
		rec.Stations = append(rec.Stations, parseStationLine(line))
	}

	return rec, nil
}

// parseHeader splits "key: value" lines on the first colon. Lines without a
// colon are ignored.
func parseHeader(lines []string) map[string]string {
	header := make(map[string]string, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		header[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return header
}

func parseCoordinate(header map[string]string, key string) *float64 {
	m := coordRe.FindStringSubmatch(header[key])
	if len(m) != 2 {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseHeaderFloat(raw, name, key string, logger *slog.Logger) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		logger.Warn("could not parse header value", "file", name, "key", key, "value", raw)
		return nil
	}
	return &f
}

// parseStationLine splits "k=v,k=v" tokens; tokens without '=' are dropped.
func parseStationLine(line string) StationObservation {
	station := StationObservation{}
	for _, part := range strings.Split(line, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		station.Set(strings.TrimSpace(key), CoerceValue(strings.TrimSpace(value)))
	}
	return station
}

// bulletinID returns the second underscore-delimited segment of the
// filename without its extension: "2024_113001.txt" -> "113001".
func bulletinID(name string) *string {
	base := filepath.Base(name)
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return nil
	}
	id, _, _ := strings.Cut(parts[1], ".")
	return &id
}

// splitLines splits text into lines, accepting \n, \r\n, and \r endings.
// A trailing newline does not produce an empty final line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
