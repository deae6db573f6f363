package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/filestore"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
)

// --- mocks ---

type mockFetcher struct {
	mu        sync.Mutex
	bulletins map[string]string                // "{year}_{id}" -> bulletin text
	pages     map[string]domain.RegionalRecord // encoded id -> record
	requests  []string
}

func (m *mockFetcher) DetailURL(encoded string) string {
	return "http://cwa.test/details/" + encoded
}

func (m *mockFetcher) DownloadBulletin(_ context.Context, year, id, dir string) (string, error) {
	out := filepath.Join(dir, year+"_"+id+".txt")
	if filestore.Exists(out) {
		return out, &domain.Error{Kind: domain.KindAlreadyExists, Detail: out}
	}
	m.mu.Lock()
	m.requests = append(m.requests, year+"_"+id)
	m.mu.Unlock()

	text, ok := m.bulletins[year+"_"+id]
	if !ok {
		return "", &domain.Error{Kind: domain.KindTransportFailure, Detail: "status 404"}
	}
	raw, err := filestore.EncodeBig5(text)
	if err != nil {
		return "", err
	}
	return out, filestore.WriteFile(out, raw)
}

func (m *mockFetcher) FetchRegional(_ context.Context, pageURL, dir string) (domain.RegionalRecord, error) {
	id := path.Base(pageURL)
	out := filepath.Join(dir, id+"_regional.json")
	if filestore.Exists(out) {
		return domain.RegionalRecord{}, &domain.Error{Kind: domain.KindAlreadyExists, Detail: out}
	}
	m.mu.Lock()
	m.requests = append(m.requests, id)
	m.mu.Unlock()

	rec, ok := m.pages[id]
	if !ok {
		return domain.RegionalRecord{}, &domain.Error{Kind: domain.KindPatternNotFound, Detail: id}
	}
	return rec, filestore.WriteJSON(out, rec, filestore.IndentStage)
}

type mockPublisher struct {
	published []domain.UnifiedRecord
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, records []domain.UnifiedRecord) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, records...)
	return nil
}

// --- fixtures ---

var testStart = time.Date(2024, time.April, 3, 13, 0, 0, 0, time.UTC)

const testBulletin = "Origin Time: 2024/04/03 12:34:56\n" +
	"Lat: 23.77 N\n" +
	"Lon: 121.67 E\n" +
	"Depth: 12.3km\n" +
	"Mag: 5.2\n" +
	"Stacode=TAP,Staname=臺北,Stalon=121.51,Stalat=25.04,Int=4,PGA(V)=12.5\n" +
	"Stacode=HWA,Staname=花蓮,Stalon=121.61,Stalat=23.98,Int=6,PGA(V)=120.0\n" +
	"Stacode=ZZZZ,Staname=測試,Int=1\n"

const testIndex = "編號,時間,經度,緯度,規模,深度,位置,備註\n" +
	"113001,2024-04-03 12:34:56,121.67,23.77,5.2,12.3,花蓮縣,\n" +
	"A2024001,2024-04-03 12:34:56,121.1,23.1,5.2,10,臺北市,小區域\n" +
	"short,row\n"

func testRegional() domain.RegionalRecord {
	return domain.RegionalRecord{
		EpicenterLat: "23.77",
		EpicenterLon: "121.67",
		Magnitude:    "5.2",
		MaxIntensity: "4級",
		Locations: []domain.LocationObservation{
			{Latitude: "25.03", Longitude: "121.56", County: "臺北市", Intensity: "4", LocationName: "信義區"},
			{Latitude: "23.99", Longitude: "121.60", County: "花蓮縣", Intensity: "6強", LocationName: "花蓮市"},
		},
	}
}

type harness struct {
	dirs      pipeline.Dirs
	fetcher   *mockFetcher
	publisher *mockPublisher
	clock     *clockwork.FakeClock
	p         *pipeline.Pipeline
}

func newHarness(t *testing.T, pause time.Duration) *harness {
	t.Helper()
	root := t.TempDir()
	h := &harness{
		dirs: pipeline.Dirs{
			Input:    filepath.Join(root, "input"),
			Bulletin: filepath.Join(root, "earthquake_data"),
			Parsed:   filepath.Join(root, "earthquake_data", "json"),
			Enriched: filepath.Join(root, "earthquake_data", "json_with_city"),
			Regional: filepath.Join(root, "earthquake_regional_data"),
			Unified:  filepath.Join(root, "unified_earthquake_data"),
		},
		fetcher: &mockFetcher{
			bulletins: map[string]string{"2024_113001": testBulletin},
			pages:     map[string]domain.RegionalRecord{"2024040312345652": testRegional()},
		},
		publisher: &mockPublisher{},
		clock:     clockwork.NewFakeClockAt(testStart),
	}
	writeBig5(t, filepath.Join(h.dirs.Input, "index.csv"), testIndex)
	h.p = pipeline.New(h.dirs, pause, h.fetcher, h.publisher, h.clock, testLogger(), observability.NewMetricsForTesting())
	return h
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeBig5(t *testing.T, file, text string) {
	t.Helper()
	raw, err := filestore.EncodeBig5(text)
	require.NoError(t, err)
	require.NoError(t, filestore.WriteFile(file, raw))
}

func readUnified(t *testing.T, file string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func stageByName(t *testing.T, rep pipeline.Report, name string) pipeline.Summary {
	t.Helper()
	for _, s := range rep.Stages {
		if s.Stage == name {
			return s
		}
	}
	t.Fatalf("stage %q missing from report", name)
	return pipeline.Summary{}
}

// --- tests ---

func TestPipeline_Run_EndToEnd(t *testing.T) {
	h := newHarness(t, 0)

	require.Error(t, h.p.CheckReadiness(context.Background()))

	rep, err := h.p.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, h.p.CheckReadiness(context.Background()))

	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, testStart, rep.StartedAt)
	require.Len(t, rep.Stages, 5)
	for _, s := range rep.Stages {
		assert.Equal(t, rep.RunID, s.RunID)
	}

	download := stageByName(t, rep, pipeline.StageDownload)
	assert.Equal(t, 2, download.Processed)
	assert.Equal(t, 1, download.Failed)
	assert.Equal(t, 1, download.ByKind[domain.KindMalformedRow])
	assert.ElementsMatch(t, []string{"2024_113001", "2024040312345652"}, h.fetcher.requests)

	assert.Equal(t, 1, stageByName(t, rep, pipeline.StageParse).Processed)
	assert.Equal(t, 1, stageByName(t, rep, pipeline.StageEnrich).Processed)
	assert.Equal(t, 1, stageByName(t, rep, pipeline.StageFilterRegions).Processed)
	unify := stageByName(t, rep, pipeline.StageUnify)
	assert.Equal(t, 2, unify.Processed)
	assert.Equal(t, 2, unify.Published)

	// detailed: HWA dropped, ZZZZ kept as Unknown, max intensity from kept stations
	detailed := readUnified(t, filepath.Join(h.dirs.Unified, "2024_113001.json"))
	assert.Equal(t, "2024_113001", detailed["event_id"])
	assert.Equal(t, "detailed_station", detailed["source_type"])
	assert.Equal(t, "2024-04-03T12:34:56", detailed["timestamp"])
	assert.InDelta(t, 12.3, detailed["depth_km"], 1e-9)
	assert.InDelta(t, 4, detailed["max_intensity_observed"], 1e-9)
	locs := detailed["affected_locations"].([]any)
	require.Len(t, locs, 2)
	assert.Equal(t, "臺北市", locs[0].(map[string]any)["county"])
	assert.Equal(t, "Unknown", locs[1].(map[string]any)["county"])

	// regional: filtered in place, timestamp derived from the identifier
	regional := readUnified(t, filepath.Join(h.dirs.Unified, "2024040312345652_regional.json"))
	assert.Equal(t, "regional_intensity", regional["source_type"])
	assert.Equal(t, "2024-04-03 12:34:56", regional["timestamp"])
	assert.Nil(t, regional["depth_km"])
	assert.Equal(t, "4級", regional["max_intensity_observed"])
	require.Len(t, regional["affected_locations"].([]any), 1)

	require.Len(t, h.publisher.published, 2)
	assert.Equal(t, domain.SourceDetailedStation, h.publisher.published[0].SourceType)
	assert.Equal(t, domain.SourceRegionalIntensity, h.publisher.published[1].SourceType)

	last, ok := h.p.LastReport()
	require.True(t, ok)
	assert.Equal(t, rep.RunID, last.RunID)
}

func TestPipeline_Run_Idempotent(t *testing.T) {
	h := newHarness(t, 0)

	_, err := h.p.Run(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(filepath.Join(h.dirs.Unified, "2024_113001.json"))
	require.NoError(t, err)
	h.fetcher.requests = nil

	rep, err := h.p.Run(context.Background())
	require.NoError(t, err)

	download := stageByName(t, rep, pipeline.StageDownload)
	assert.Equal(t, 0, download.Processed)
	assert.Equal(t, 2, download.Skipped)
	assert.Equal(t, 2, download.ByKind[domain.KindAlreadyExists])
	assert.Empty(t, h.fetcher.requests, "existing outputs are never re-fetched")

	second, err := os.ReadFile(filepath.Join(h.dirs.Unified, "2024_113001.json"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPipeline_Download_TransportFailure(t *testing.T) {
	h := newHarness(t, 0)
	h.fetcher.bulletins = nil
	h.fetcher.pages = nil

	s := h.p.Download(context.Background())

	assert.Equal(t, 0, s.Processed)
	assert.Equal(t, 3, s.Failed)
	assert.Equal(t, 1, s.ByKind[domain.KindTransportFailure])
	assert.Equal(t, 1, s.ByKind[domain.KindPatternNotFound])
	assert.Equal(t, 1, s.ByKind[domain.KindMalformedRow])
	assert.NoFileExists(t, filepath.Join(h.dirs.Bulletin, "2024_113001.txt"))
}

func TestPipeline_Download_PausesAfterEachBulletin(t *testing.T) {
	h := newHarness(t, time.Second)

	done := make(chan pipeline.Summary, 1)
	go func() { done <- h.p.Download(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))

	select {
	case <-done:
		t.Fatal("download finished before the pause elapsed")
	default:
	}

	h.clock.Advance(time.Second)
	select {
	case s := <-done:
		assert.Equal(t, 2, s.Processed)
	case <-ctx.Done():
		t.Fatal("download did not resume after the pause")
	}
}

func TestPipeline_Unify_UnknownShapeNotWritten(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, filestore.WriteFile(filepath.Join(h.dirs.Enriched, "odd.json"), []byte(`{"foo": []}`)))
	require.NoError(t, filestore.WriteFile(filepath.Join(h.dirs.Enriched, "broken.json"), []byte(`{`)))

	s := h.p.Unify(context.Background())

	assert.Equal(t, 0, s.Processed)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.ByKind[domain.KindUnknownSourceShape])
	assert.Equal(t, 1, s.ByKind[domain.KindDecodeFailure])
	assert.NoFileExists(t, filepath.Join(h.dirs.Unified, "odd.json"))
	assert.Empty(t, h.publisher.published)
}

func TestPipeline_Unify_RegionalPassWins(t *testing.T) {
	h := newHarness(t, 0)
	detailed := `{"earthquake_id": "1", "timestamp": null, "latitude": 1.0, "longitude": 2.0, "depth_km": 3.0, "magnitude": 4.0, "stations": []}`
	regional := `{"epicenter_lat": "5", "epicenter_lon": "6", "magnitude": "7", "max_intensity": "1", "locations": []}`
	require.NoError(t, filestore.WriteFile(filepath.Join(h.dirs.Enriched, "same.json"), []byte(detailed)))
	require.NoError(t, filestore.WriteFile(filepath.Join(h.dirs.Regional, "same.json"), []byte(regional)))

	s := h.p.Unify(context.Background())
	assert.Equal(t, 2, s.Processed)

	doc := readUnified(t, filepath.Join(h.dirs.Unified, "same.json"))
	assert.Equal(t, "regional_intensity", doc["source_type"])
}

func TestPipeline_Unify_PublishFailure(t *testing.T) {
	h := newHarness(t, 0)
	h.publisher.err = errors.New("broker unavailable")
	require.NoError(t, filestore.WriteJSON(filepath.Join(h.dirs.Regional, "r.json"), testRegional(), filestore.IndentStage))

	s := h.p.Unify(context.Background())

	assert.Equal(t, 1, s.Processed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.ByKind[domain.KindTransportFailure])
	assert.Zero(t, s.Published)
	assert.FileExists(t, filepath.Join(h.dirs.Unified, "r.json"))
}

func TestPipeline_Parse_Incomplete(t *testing.T) {
	h := newHarness(t, 0)
	writeBig5(t, filepath.Join(h.dirs.Bulletin, "2024_9.txt"), "Lat: 1.0\nLon: 2.0\n")

	s := h.p.Parse(context.Background())

	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.ByKind[domain.KindIncomplete])
	assert.NoFileExists(t, filepath.Join(h.dirs.Parsed, "2024_9.json"))
}

func TestPipeline_FilterRegions_InPlace(t *testing.T) {
	h := newHarness(t, 0)
	file := filepath.Join(h.dirs.Regional, "2024040312345652_regional.json")
	require.NoError(t, filestore.WriteJSON(file, testRegional(), filestore.IndentStage))

	s := h.p.FilterRegions(context.Background())
	assert.Equal(t, 1, s.Processed)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var rec domain.RegionalRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Len(t, rec.Locations, 1)
	assert.Equal(t, "臺北市", rec.Locations[0].County)
	assert.Equal(t, "4級", rec.MaxIntensity)
}

func TestPipeline_Coords(t *testing.T) {
	h := newHarness(t, 0)
	require.Equal(t, 2, h.p.Download(context.Background()).Processed)
	require.Equal(t, 1, h.p.Parse(context.Background()).Processed)

	coords, s := h.p.Coords(context.Background())

	assert.Equal(t, 1, s.Processed)
	assert.Equal(t, domain.Coordinates{
		"TAP": {domain.Float(121.51), domain.Float(25.04)},
		"HWA": {domain.Float(121.61), domain.Float(23.98)},
	}, coords)
}

func TestPipeline_Run_Cancelled(t *testing.T) {
	h := newHarness(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := h.p.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rep.Stages, 1)
	assert.NotEmpty(t, rep.Err)
	assert.Error(t, h.p.CheckReadiness(context.Background()))
	assert.Empty(t, h.fetcher.requests)
}

func TestPipeline_NilPublisher(t *testing.T) {
	h := newHarness(t, 0)
	p := pipeline.New(h.dirs, 0, h.fetcher, nil, h.clock, testLogger(), observability.NewMetricsForTesting())

	rep, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stageByName(t, rep, pipeline.StageUnify).Published)
}

func TestPipeline_Encode(t *testing.T) {
	h := newHarness(t, 0)
	var out bytes.Buffer

	s := h.p.Encode(filepath.Join(h.dirs.Input, "index.csv"), &out)

	assert.Equal(t, "2024040312345652113001\n2024040312345652\n", out.String())
	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.ByKind[domain.KindMalformedRow])
	assert.Equal(t, testStart, s.StartedAt)
}

func TestPipeline_Encode_MissingFile(t *testing.T) {
	h := newHarness(t, 0)
	var out bytes.Buffer

	s := h.p.Encode(filepath.Join(h.dirs.Input, "missing.csv"), &out)

	assert.Empty(t, out.String())
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.ByKind[domain.KindDecodeFailure])
}
