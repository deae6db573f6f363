// Command validate performs integrity checks over a unified output directory:
// every document has the full unified schema, names itself after its file,
// carries a known source type and agrees with the rules the pipeline applies
// to that source. With -input-dir it also checks that every valid CSV index
// row produced a unified document.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -unified-dir unified_earthquake_data \
//	  -input-dir .
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/filestore"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

var (
	recordKeys = []string{
		"event_id", "timestamp", "epicenter_latitude", "epicenter_longitude", "depth_km",
		"magnitude", "max_intensity_observed", "source_type", "affected_locations",
	}
	locationKeys = []string{
		"location_name", "latitude", "longitude", "county", "intensity", "station_code",
		"distance_km", "pga_v", "pga_ns", "pga_ew", "pgv_v", "pgv_ns", "pgv_ew",
	}
	// Fields a regional page cannot supply.
	regionalNullKeys = []string{
		"station_code", "distance_km", "pga_v", "pga_ns", "pga_ew", "pgv_v", "pgv_ns", "pgv_ew",
	}

	isoTimestampRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}$`)
	regionalTimestampRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// document is one unified file, decoded twice: raw for key presence and typed
// for value checks.
type document struct {
	name string
	raw  *fastjson.Value
	rec  domain.UnifiedRecord
}

func main() {
	unifiedDir := flag.String("unified-dir", "", "directory containing unified JSON documents")
	inputDir := flag.String("input-dir", "", "optional directory of CSV indices to check coverage against")
	flag.Parse()

	if *unifiedDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*unifiedDir, *inputDir); code != 0 {
		os.Exit(code)
	}
}

func run(unifiedDir, inputDir string) int {
	fmt.Println("=== Unified Earthquake Data Validation ===")
	fmt.Println()

	docs, load := loadDocuments(unifiedDir)
	if len(docs) == 0 && load.passed() {
		fmt.Fprintf(os.Stderr, "FATAL: no unified documents in %s\n", unifiedDir)
		return 1
	}

	phases := []*phase{
		load,
		validateSchema(docs),
		validateDetailed(docs),
		validateRegional(docs),
	}
	if inputDir != "" {
		phases = append(phases, validateCoverage(inputDir, docs))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	detailed, regional := countBySource(docs)
	fmt.Println()
	fmt.Printf("Documents: %d (%d detailed_station, %d regional_intensity)\n", len(docs), detailed, regional)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadDocuments(dir string) ([]document, *phase) {
	p := &phase{name: "Phase 1: Decode"}
	files, err := filestore.Glob(dir, "*.json")
	if err != nil {
		p.errorf("list %s: %v", dir, err)
		return nil, p
	}

	docs := make([]document, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			p.errorf("%s: %v", filepath.Base(file), err)
			continue
		}
		raw, err := fastjson.ParseBytes(data)
		if err != nil {
			p.errorf("%s: %v", filepath.Base(file), err)
			continue
		}
		var rec domain.UnifiedRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			p.errorf("%s: %v", filepath.Base(file), err)
			continue
		}
		docs = append(docs, document{name: filepath.Base(file), raw: raw, rec: rec})
	}
	return docs, p
}

func countBySource(docs []document) (detailed, regional int) {
	for _, d := range docs {
		switch d.rec.SourceType {
		case domain.SourceDetailedStation:
			detailed++
		case domain.SourceRegionalIntensity:
			regional++
		}
	}
	return detailed, regional
}

// ── Phase 2: Schema ──

func validateSchema(docs []document) *phase {
	p := &phase{name: "Phase 2: Unified schema"}
	for _, d := range docs {
		for _, k := range recordKeys {
			if !d.raw.Exists(k) {
				p.errorf("%s: missing key %q", d.name, k)
			}
		}
		if want := filestore.Stem(d.name); d.rec.EventID != want {
			p.errorf("%s: event_id %q does not match file name", d.name, d.rec.EventID)
		}
		switch d.rec.SourceType {
		case domain.SourceDetailedStation, domain.SourceRegionalIntensity:
		default:
			p.errorf("%s: unknown source_type %q", d.name, d.rec.SourceType)
		}
		for i, loc := range d.raw.GetArray("affected_locations") {
			for _, k := range locationKeys {
				if !loc.Exists(k) {
					p.errorf("%s: affected_locations[%d] missing key %q", d.name, i, k)
				}
			}
		}
	}
	return p
}

// ── Phase 3: Detailed station records ──

func validateDetailed(docs []document) *phase {
	p := &phase{name: "Phase 3: Detailed station consistency"}
	for _, d := range docs {
		if d.rec.SourceType != domain.SourceDetailedStation {
			continue
		}
		if ts := d.rec.Timestamp; !ts.IsNull() && !isoTimestampRe.MatchString(ts.String()) {
			p.errorf("%s: timestamp %q is not ISO-8601", d.name, ts)
		}
		if want := maxIntensity(d.rec.AffectedLocations); !sameValue(want, d.rec.MaxIntensityObserved) {
			p.errorf("%s: max_intensity_observed %v, locations give %v", d.name, d.rec.MaxIntensityObserved, want)
		}
		for i, loc := range d.rec.AffectedLocations {
			county := loc.County.String()
			if county != domain.UnknownCity && !domain.IsAllowedCity(county) {
				p.errorf("%s: affected_locations[%d] county %q is not allow-listed", d.name, i, county)
			}
			if !loc.StationCode.Truthy() {
				p.errorf("%s: affected_locations[%d] has no station_code", d.name, i)
			}
		}
	}
	return p
}

// maxIntensity is the largest numeric intensity; the first of equal values wins.
func maxIntensity(locs []domain.AffectedLocation) domain.Value {
	best := domain.Null()
	var bestN float64
	for _, loc := range locs {
		n, ok := loc.Intensity.Number()
		if !ok {
			continue
		}
		if best.IsNull() || n > bestN {
			best, bestN = loc.Intensity, n
		}
	}
	return best
}

func sameValue(a, b domain.Value) bool {
	return a.Kind() == b.Kind() && a.String() == b.String()
}

// ── Phase 4: Regional records ──

func validateRegional(docs []document) *phase {
	p := &phase{name: "Phase 4: Regional consistency"}
	for _, d := range docs {
		if d.rec.SourceType != domain.SourceRegionalIntensity {
			continue
		}
		if ts := d.rec.Timestamp; !ts.IsNull() && !regionalTimestampRe.MatchString(ts.String()) {
			p.errorf("%s: timestamp %q is not derived from the event id", d.name, ts)
		}
		if !d.rec.DepthKm.IsNull() {
			p.errorf("%s: depth_km must be null, got %v", d.name, d.rec.DepthKm)
		}
		for i, loc := range d.raw.GetArray("affected_locations") {
			for _, k := range regionalNullKeys {
				if v := loc.Get(k); v != nil && v.Type() != fastjson.TypeNull {
					p.errorf("%s: affected_locations[%d] %s must be null", d.name, i, k)
				}
			}
		}
		for i, loc := range d.rec.AffectedLocations {
			if county := loc.County.String(); !domain.IsAllowedCity(county) {
				p.errorf("%s: affected_locations[%d] county %q is not allow-listed", d.name, i, county)
			}
		}
	}
	return p
}

// ── Phase 5: Index coverage ──

func validateCoverage(inputDir string, docs []document) *phase {
	p := &phase{name: "Phase 5: CSV index coverage"}
	have := make(map[string]bool, len(docs))
	for _, d := range docs {
		have[d.name] = true
	}

	files, err := filestore.Glob(inputDir, "*.csv")
	if err != nil {
		p.errorf("list %s: %v", inputDir, err)
		return p
	}
	for _, file := range files {
		rows, err := filestore.ReadCSV(file)
		if err != nil {
			p.errorf("%s: %v", filepath.Base(file), err)
			continue
		}
		for _, row := range rows {
			idx, err := domain.EncodeRow(row.Cells)
			if err != nil {
				continue
			}
			want, ok := expectedFile(idx)
			if ok && !have[want] {
				p.errorf("%s:%d: no unified document %s", filepath.Base(file), row.Line, want)
			}
		}
	}
	return p
}

// expectedFile is the unified file name a valid index row leads to.
func expectedFile(idx domain.IndexRow) (string, bool) {
	if !idx.Numeric() {
		return idx.Encoded + "_regional.json", true
	}
	year, ok := idx.Year()
	if !ok {
		return "", false
	}
	return strings.Join([]string{year, idx.ID}, "_") + ".json", true
}
