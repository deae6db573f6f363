// Command genmock writes a deterministic mock corpus laid out like the etl
// defaults: a Big5 CSV index, Big5 bulletins for numeric events, regional
// detail pages and the regional JSON extracted from them. Running etl with
// INPUT_DIR and the *_DIR settings pointed at the output never touches the
// network, since every download target already exists.
//
// Usage:
//
//	go run ./cmd/genmock -out testdata/mock -events 40
package main

import (
	"flag"
	"fmt"
	"html"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/cwa"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/filestore"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

var baseDate = time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC)

const indexHeader = "地震編號,地震時間,經度,緯度,規模,深度,位置,備註"

// stationDef is a station the generator can place in a bulletin.
type stationDef struct {
	code, name string
	lon, lat   float64
}

// Codes cover allow-listed cities, a known non-allow-listed city and one
// code missing from the city table.
var stations = []stationDef{
	{"TAP", "臺北", 121.51, 25.04},
	{"NHY", "內湖", 121.59, 25.08},
	{"TCU", "臺中", 120.68, 24.15},
	{"TAI", "臺南", 120.20, 22.99},
	{"HSN1", "新竹", 120.97, 24.80},
	{"HWA", "花蓮", 121.61, 23.98},
	{"MOCK", "測站", 121.00, 24.00},
}

// counties feed the regional location lists; the last two are filtered out.
var counties = []struct{ county, town string }{
	{domain.CityTaipei, "信義區"},
	{domain.CityTaichung, "西屯區"},
	{domain.CityTainan, "安平區"},
	{domain.CityHsinchu, "東區"},
	{"花蓮縣", "花蓮市"},
	{"宜蘭縣", "宜蘭市"},
}

var intensities = []string{"1", "2", "3", "4", "5弱", "5強", "6弱", "7"}

// event is one generated CSV index row plus what the generator knows about it.
type event struct {
	id        string
	origin    time.Time
	lon, lat  float64
	magnitude float64
	depth     float64
}

func (e event) row() []string {
	return []string{
		e.id,
		e.origin.Format("2006-01-02 15:04:05"),
		fmt.Sprintf("%.2f", e.lon),
		fmt.Sprintf("%.2f", e.lat),
		fmt.Sprintf("%.1f", e.magnitude),
		fmt.Sprintf("%.1f", e.depth),
		"臺灣東部海域",
		"",
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "root directory for the generated corpus")
	events := flag.Int("events", 20, "number of index rows (every third is non-numeric)")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" || *events <= 0 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -events")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	evs := generateEvents(rng, *events)
	if err := writeIndex(filepath.Join(*out, "GDMScatalog.csv"), evs); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}

	var st stats
	for _, e := range evs {
		idx, err := domain.EncodeRow(e.row())
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.id, err)
		}
		if idx.Numeric() {
			if err := writeBulletin(*out, idx, e, rng, logger, &st); err != nil {
				return fmt.Errorf("bulletin %s: %w", e.id, err)
			}
			continue
		}
		if err := writeRegional(*out, idx, e, rng, &st); err != nil {
			return fmt.Errorf("regional %s: %w", e.id, err)
		}
	}

	log.Printf("wrote %d index rows to %s", len(evs), *out)
	st.print()
	return nil
}

func generateEvents(rng *rand.Rand, n int) []event {
	evs := make([]event, 0, n)
	for i := range n {
		id := fmt.Sprintf("%d", 113001+i)
		if i%3 == 2 {
			id = fmt.Sprintf("A%d%03d", baseDate.Year(), i)
		}
		evs = append(evs, event{
			id:        id,
			origin:    baseDate.Add(time.Duration(i)*97*time.Minute + time.Duration(rng.IntN(60))*time.Second),
			lon:       120.0 + rng.Float64()*2,
			lat:       22.0 + rng.Float64()*3,
			magnitude: 3.0 + float64(rng.IntN(40))/10,
			depth:     5 + float64(rng.IntN(300))/10,
		})
	}
	return evs
}

func writeIndex(path string, evs []event) error {
	lines := []string{indexHeader}
	for _, e := range evs {
		lines = append(lines, strings.Join(e.row(), ","))
	}
	raw, err := filestore.EncodeBig5(strings.Join(lines, "\n") + "\n")
	if err != nil {
		return err
	}
	return filestore.WriteFile(path, raw)
}

func writeBulletin(root string, idx domain.IndexRow, e event, rng *rand.Rand, logger *slog.Logger, st *stats) error {
	year, _ := idx.Year()
	var b strings.Builder
	fmt.Fprintf(&b, "Origin Time: %s\n", e.origin.Format("2006/01/02 15:04:05"))
	fmt.Fprintf(&b, "Lat: %.2f N\n", e.lat)
	fmt.Fprintf(&b, "Lon: %.2f E\n", e.lon)
	fmt.Fprintf(&b, "Depth: %.1fkm\n", e.depth)
	fmt.Fprintf(&b, "Mag: %.1f\n", e.magnitude)
	for _, s := range pick(rng, stations, 2+rng.IntN(len(stations)-1)) {
		fmt.Fprintf(&b, "Stacode=%s,Staname=%s,Stalon=%.2f,Stalat=%.2f,Dist=%.1f,Int=%d,PGA(V)=%.1f,PGA(NS)=%.1f,PGA(EW)=%.1f\n",
			s.code, s.name, s.lon, s.lat, rng.Float64()*150, rng.IntN(7),
			rng.Float64()*80, rng.Float64()*80, rng.Float64()*80)
	}

	name := year + "_" + idx.ID + ".txt"
	raw, err := filestore.EncodeBig5(b.String())
	if err != nil {
		return err
	}
	if err := filestore.WriteFile(filepath.Join(root, "earthquake_data", name), raw); err != nil {
		return err
	}

	// Parse and enrich with the real domain code so the printed counts match
	// what the pipeline will produce.
	rec, err := domain.ParseBulletin(name, b.String(), logger)
	if err != nil {
		return err
	}
	_, es := domain.EnrichWithCity(rec)
	st.bulletins++
	st.stations += len(rec.Stations)
	st.stationsKept += es.Kept
	st.stationsUnknown += es.Unknown
	return nil
}

func writeRegional(root string, idx domain.IndexRow, e event, rng *rand.Rand, st *stats) error {
	var tuples []string
	for _, c := range pick(rng, counties, 1+rng.IntN(len(counties))) {
		tuples = append(tuples, fmt.Sprintf("['%.2f', '%.2f', '%s', '%s', '%s']",
			e.lat+rng.Float64()-0.5, e.lon+rng.Float64()-0.5, c.county,
			intensities[rng.IntN(len(intensities))], c.town))
	}
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<script type="text/javascript">
    var lat = '%.2f';
    var lon = '%.2f';
    var mag = '%.1f';
    var maxIntensity = '%s';
    var locationList = [
        %s
    ];
</script>
</body>
</html>
`, html.EscapeString(idx.Encoded), e.lat, e.lon, e.magnitude,
		intensities[rng.IntN(len(intensities))], strings.Join(tuples, ",\n        "))

	if err := filestore.WriteFile(filepath.Join(root, "pages", idx.Encoded+".html"), []byte(page)); err != nil {
		return err
	}

	rec, err := cwa.ExtractRegional(idx.Encoded, []byte(page))
	if err != nil {
		return err
	}
	if err := filestore.WriteJSON(cwa.RegionalPath(filepath.Join(root, "earthquake_regional_data"), idx.Encoded), rec, filestore.IndentStage); err != nil {
		return err
	}
	_, removed, kept := domain.FilterRegions(rec)
	st.regional++
	st.locations += removed + kept
	st.locationsKept += kept
	return nil
}

// pick returns n distinct elements of items in a random order.
func pick[T any](rng *rand.Rand, items []T, n int) []T {
	perm := rng.Perm(len(items))[:min(n, len(items))]
	sort.Ints(perm)
	out := make([]T, 0, len(perm))
	for _, i := range perm {
		out = append(out, items[i])
	}
	return out
}

// stats holds aggregated counts for updating test assertions.
type stats struct {
	bulletins, stations, stationsKept, stationsUnknown int
	regional, locations, locationsKept                 int
}

func (s stats) print() {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Bulletins: %d (stations=%d, kept after enrich=%d, unknown city=%d)\n",
		s.bulletins, s.stations, s.stationsKept, s.stationsUnknown)
	fmt.Printf("Regional: %d (locations=%d, kept after filter=%d)\n",
		s.regional, s.locations, s.locationsKept)
	fmt.Printf("Unified records expected: %d\n", s.bulletins+s.regional)
}
