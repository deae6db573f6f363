package domain

import (
	"regexp"
	"strings"
)

// MinRowColumns is the minimum number of cells a CSV index row must have.
const MinRowColumns = 8

// CSV index column positions.
const (
	colID        = 0
	colTime      = 1
	colMagnitude = 4
)

var (
	// timeStripper removes the separators of "YYYY-MM-DD HH:MM:SS".
	timeStripper = strings.NewReplacer("-", "", " ", "", ":", "")

	// yearRe finds the year of an origin time cell, e.g. "2024-04-03 ..." -> "2024".
	yearRe = regexp.MustCompile(`(\d{4})-`)
)

// IndexRow is one decoded CSV index row.
type IndexRow struct {
	ID        string // trimmed event number
	Time      string // raw origin time cell
	Magnitude string // raw magnitude cell
	Encoded   string // lookup key, see EncodeRow
}

// Numeric reports whether the row's identifier is a bulletin event number.
// Numeric rows are downloaded as bulletins; the rest only have a detail page.
func (r IndexRow) Numeric() bool { return isDigits(r.ID) }

// EncodeRow turns a CSV index row into a fixed-width identifier:
// cleaned time (14 digits) + cleaned magnitude (at least 2 digits), followed
// by the identifier only when it is purely numeric.
func EncodeRow(row []string) (IndexRow, error) {
	if len(row) < MinRowColumns {
		return IndexRow{}, newError(KindMalformedRow, "insufficient columns (%d)", len(row))
	}

	rec := IndexRow{
		ID:        strings.TrimSpace(row[colID]),
		Time:      row[colTime],
		Magnitude: row[colMagnitude],
	}

	cleanedTime := timeStripper.Replace(rec.Time)
	cleanedMag := strings.ReplaceAll(rec.Magnitude, ".", "")
	if len(cleanedMag) == 1 {
		cleanedMag += "0"
	}

	if len(cleanedTime) != 14 || !isDigits(cleanedTime) {
		return IndexRow{}, newError(KindInvalidTime, "invalid time format %q", rec.Time)
	}
	if !isDigits(cleanedMag) {
		return IndexRow{}, newError(KindInvalidMagnitude, "invalid magnitude format %q", rec.Magnitude)
	}

	rec.Encoded = cleanedTime + cleanedMag
	if rec.Numeric() {
		rec.Encoded += rec.ID
	}
	return rec, nil
}

// Year extracts the four-digit year used in bulletin download paths.
func (r IndexRow) Year() (string, bool) {
	m := yearRe.FindStringSubmatch(r.Time)
	if len(m) != 2 {
		return "", false
	}
	return m[1], true
}
