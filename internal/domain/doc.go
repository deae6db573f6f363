// Package domain models Central Weather Administration (CWA) earthquake data.
//
// # Data Sources
//
// Earthquake activity is published by the CWA seismological center at
// https://scweb.cwa.gov.tw/. Three shapes of public data are consumed:
//
//   - a CSV activity index (Big5), one event per row;
//   - fixed-format bulletin text files (Big5), one per numbered event;
//   - HTML detail pages for un-numbered (small, local) events.
//
// # CSV Index
//
// Columns by position: 0 = event number, 1 = origin time "YYYY-MM-DD HH:MM:SS",
// 4 = magnitude "5.2". Rows need at least 8 cells. See [EncodeRow].
//
// Numbered events have a bulletin file; events with a non-numeric identifier
// only have a detail page keyed by the encoded string:
//
//	time "2024-04-03 12:34:56", magnitude "5.2", id "123" -> "2024040312345652123"
//	time "2024-04-03 12:34:56", magnitude "5.2", id "A2024001" -> "2024040312345652"
//
// # Bulletin Format
//
// The first five lines are "Key: value" header pairs. Recognized keys:
//
//	Origin Time: 2024/04/03 12:34:56
//	Lat: 23.77 N
//	Lon: 121.67 E
//	Depth: 12.3km
//	Mag: 5.2
//
// Subsequent lines beginning with "Stacode=" are comma separated key=value
// station observations:
//
//	Stacode=TAP,Staname=臺北,Stalon=121.51,Stalat=25.04,Dist=120.5,Int=4,PGA(V)=12.5
//
// Values are coerced per [CoerceValue]: decimals become floats, digit runs
// become integers, everything else stays text. See [ParseBulletin].
//
// # Regional Detail Pages
//
// Detail pages embed a JavaScript array of affected locations and four scalar
// variables (lat, lon, mag, maxIntensity). All extracted values stay strings.
//
// # Allow-List
//
// Output is restricted to four cities: 臺北市, 臺中市, 臺南市, 新竹市.
// Station codes are resolved through a static code-to-city table ([CityForCode]).
//
// # Unified Schema
//
// Both shapes are mapped into [UnifiedRecord]; see [Unify].
package domain
