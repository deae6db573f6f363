package cwa

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

var (
	locationListRe = regexp.MustCompile(`(?s)var locationList = \[(.*?)\];`)

	// locationTupleRe matches one ['lat', 'lon', 'county', 'intensity', 'name'] entry.
	// A field never spans a quote, so a short tuple cannot absorb the next one.
	locationTupleRe = regexp.MustCompile(`\[\s*'([^']*)'\s*,\s*'([^']*)'\s*,\s*'([^']*)'\s*,\s*'([^']*)'\s*,\s*'([^']*)'\s*\]`)

	epicenterLatRe = regexp.MustCompile(`var lat = '(.*?)';`)
	epicenterLonRe = regexp.MustCompile(`var lon = '(.*?)';`)
	magnitudeRe    = regexp.MustCompile(`var mag = '(.*?)';`)
	maxIntensityRe = regexp.MustCompile(`var maxIntensity = '(.*?)';`)
)

// ExtractRegional pulls the locationList array and the epicenter scalars out
// of a detail page. Inline scripts are searched first and the whole page
// second. A page without the array is KindPatternNotFound; missing scalars
// are left empty.
func ExtractRegional(id string, page []byte) (domain.RegionalRecord, error) {
	src := scriptSource(page)
	m := locationListRe.FindStringSubmatch(src)
	if m == nil {
		src = string(page)
		m = locationListRe.FindStringSubmatch(src)
	}
	if m == nil {
		return domain.RegionalRecord{}, &domain.Error{Kind: domain.KindPatternNotFound, Detail: "locationList in " + id}
	}

	scalar := func(re *regexp.Regexp) string {
		if v, ok := firstGroup(re, src); ok {
			return v
		}
		v, _ := firstGroup(re, string(page))
		return v
	}

	return domain.RegionalRecord{
		ID:           id,
		EpicenterLat: scalar(epicenterLatRe),
		EpicenterLon: scalar(epicenterLonRe),
		Magnitude:    scalar(magnitudeRe),
		MaxIntensity: scalar(maxIntensityRe),
		Locations:    parseLocations(m[1]),
	}, nil
}

// scriptSource joins the text of every inline <script> element.
func scriptSource(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	var b strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		b.WriteString(s.Text())
		b.WriteByte('\n')
	})
	return b.String()
}

// parseLocations reads consecutive tuples left to right. Anything other than
// commas or whitespace between two tuples ends the list.
func parseLocations(list string) []domain.LocationObservation {
	locations := []domain.LocationObservation{}
	prev := 0
	for _, idx := range locationTupleRe.FindAllStringSubmatchIndex(list, -1) {
		if strings.Trim(list[prev:idx[0]], ", \t\r\n") != "" {
			break
		}
		g := func(n int) string { return list[idx[2*n]:idx[2*n+1]] }
		locations = append(locations, domain.LocationObservation{
			Latitude:     g(1),
			Longitude:    g(2),
			County:       g(3),
			Intensity:    g(4),
			LocationName: g(5),
		})
		prev = idx[1]
	}
	return locations
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	return "", false
}
