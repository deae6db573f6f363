package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/filestore"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// downloadStage walks every CSV index in the input directory. Numeric rows
// are fetched as bulletins, the rest as regional detail pages.
func (p *Pipeline) downloadStage(ctx context.Context, runID string) Summary {
	t := p.track(runID, StageDownload)

	files, err := filestore.Glob(p.dirs.Input, "*.csv")
	if err != nil {
		t.add(p.dirs.Input, err)
		return t.finish()
	}

	for _, file := range files {
		p.logger.Info("processing csv index", "file", file)
		rows, err := filestore.ReadCSV(file)
		if err != nil {
			t.add(file, &domain.Error{Kind: domain.KindDecodeFailure, Detail: "read csv", Err: err})
		}
		for _, row := range rows {
			if ctx.Err() != nil {
				return t.finish()
			}
			item := fmt.Sprintf("%s:%d", filepath.Base(file), row.Line)
			t.add(item, p.downloadRow(ctx, row))
		}
	}
	return t.finish()
}

func (p *Pipeline) downloadRow(ctx context.Context, row filestore.Row) error {
	idx, err := domain.EncodeRow(row.Cells)
	if err != nil {
		return err
	}

	if !idx.Numeric() {
		_, err := p.fetcher.FetchRegional(ctx, p.fetcher.DetailURL(idx.Encoded), p.dirs.Regional)
		return err
	}

	year, ok := idx.Year()
	if !ok {
		return &domain.Error{Kind: domain.KindInvalidTime, Detail: fmt.Sprintf("cannot extract year from %q", idx.Time)}
	}
	if _, err := p.fetcher.DownloadBulletin(ctx, year, idx.ID, p.dirs.Bulletin); err != nil {
		return err
	}
	p.pause(ctx)
	return nil
}

// parseStage converts every bulletin into {stem}.json in the parsed directory.
func (p *Pipeline) parseStage(ctx context.Context, runID string) Summary {
	t := p.track(runID, StageParse)

	files, err := filestore.Glob(p.dirs.Bulletin, "*.txt")
	if err != nil {
		t.add(p.dirs.Bulletin, err)
		return t.finish()
	}
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		t.add(filepath.Base(file), p.parseFile(file))
	}
	return t.finish()
}

func (p *Pipeline) parseFile(file string) error {
	text, err := filestore.ReadBig5(file)
	if err != nil {
		return &domain.Error{Kind: domain.KindDecodeFailure, Detail: "read bulletin", Err: err}
	}
	rec, err := domain.ParseBulletin(filepath.Base(file), text, p.logger)
	if err != nil {
		return err
	}
	out := filepath.Join(p.dirs.Parsed, filestore.Stem(file)+".json")
	return filestore.WriteJSON(out, rec, filestore.IndentStage)
}

// enrichStage attaches cities to every parsed record and writes the
// allow-listed subset into the enriched directory under the same name.
func (p *Pipeline) enrichStage(ctx context.Context, runID string) Summary {
	t := p.track(runID, StageEnrich)

	files, err := filestore.Glob(p.dirs.Parsed, "*.json")
	if err != nil {
		t.add(p.dirs.Parsed, err)
		return t.finish()
	}
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		t.add(filepath.Base(file), p.enrichFile(file))
	}
	return t.finish()
}

func (p *Pipeline) enrichFile(file string) error {
	var rec domain.EventRecord
	if err := readJSON(file, &rec); err != nil {
		return err
	}
	enriched, stats := domain.EnrichWithCity(rec)
	p.logger.Debug("stations enriched", "file", filepath.Base(file),
		"kept", stats.Kept, "dropped", stats.Dropped, "unknown", stats.Unknown)
	return filestore.WriteJSON(filepath.Join(p.dirs.Enriched, filepath.Base(file)), enriched, filestore.IndentStage)
}

// filterRegionsStage rewrites every regional record in place, keeping only
// allow-listed counties.
func (p *Pipeline) filterRegionsStage(ctx context.Context, runID string) Summary {
	t := p.track(runID, StageFilterRegions)

	files, err := filestore.Glob(p.dirs.Regional, "*.json")
	if err != nil {
		t.add(p.dirs.Regional, err)
		return t.finish()
	}
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		t.add(filepath.Base(file), p.filterFile(file))
	}
	return t.finish()
}

func (p *Pipeline) filterFile(file string) error {
	var rec domain.RegionalRecord
	if err := readJSON(file, &rec); err != nil {
		return err
	}
	if rec.Locations == nil {
		rec.Locations = []domain.LocationObservation{}
	}
	filtered, removed, kept := domain.FilterRegions(rec)
	p.logger.Info("regional locations filtered", "file", filepath.Base(file), "removed", removed, "kept", kept)
	return filestore.WriteJSON(file, filtered, filestore.IndentStage)
}

// unifyStage maps the enriched directory and then the regional directory into
// the unified directory. A later file with the same base name overwrites an
// earlier one. Unified records are published when a Publisher is set.
func (p *Pipeline) unifyStage(ctx context.Context, runID string) Summary {
	t := p.track(runID, StageUnify)

	for _, dir := range []string{p.dirs.Enriched, p.dirs.Regional} {
		files, err := filestore.Glob(dir, "*.json")
		if err != nil {
			t.add(dir, err)
			continue
		}

		batch := make([]domain.UnifiedRecord, 0, len(files))
		for _, file := range files {
			if ctx.Err() != nil {
				return t.finish()
			}
			rec, err := p.unifyFile(file)
			t.add(filepath.Base(file), err)
			if err == nil {
				batch = append(batch, rec)
			}
		}
		p.publish(ctx, t, dir, batch)
	}
	return t.finish()
}

func (p *Pipeline) unifyFile(file string) (domain.UnifiedRecord, error) {
	doc, err := os.ReadFile(file)
	if err != nil {
		return domain.UnifiedRecord{}, err
	}
	id := filestore.Stem(file)
	rec, err := domain.Unify(id, doc)
	if err != nil {
		return domain.UnifiedRecord{}, err
	}
	if err := filestore.WriteJSON(filepath.Join(p.dirs.Unified, id+".json"), rec, filestore.IndentUnified); err != nil {
		return domain.UnifiedRecord{}, err
	}
	return rec, nil
}

func (p *Pipeline) publish(ctx context.Context, t *tracker, dir string, batch []domain.UnifiedRecord) {
	if p.publisher == nil || len(batch) == 0 {
		return
	}
	if err := p.publisher.Publish(ctx, batch); err != nil {
		t.add("publish "+dir, &domain.Error{Kind: domain.KindTransportFailure, Detail: "publish unified records", Err: err})
		return
	}
	t.summary.Published += len(batch)
	p.metrics.RecordsPublished.Add(float64(len(batch)))
}

// Coords builds the station coordinate lookup from the parsed directory.
// Files are read in name order, so later files win for repeated codes.
func (p *Pipeline) Coords(ctx context.Context) (domain.Coordinates, Summary) {
	t := p.track(NewRunID(), StageCoords)
	coords := make(domain.Coordinates)

	files, err := filestore.Glob(p.dirs.Parsed, "*.json")
	if err != nil {
		t.add(p.dirs.Parsed, err)
		return coords, t.finish()
	}
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		doc, err := os.ReadFile(file)
		if err == nil {
			err = coords.AddDocument(doc)
		}
		t.add(filepath.Base(file), err)
	}
	return coords, t.finish()
}

// Encode writes the encoded identifier of every valid row of a CSV index to
// w, one per line. Invalid rows are logged with their CSV line number.
func (p *Pipeline) Encode(file string, w io.Writer) Summary {
	t := p.track(NewRunID(), StageEncode)

	rows, err := filestore.ReadCSV(file)
	if err != nil {
		t.add(filepath.Base(file), &domain.Error{Kind: domain.KindDecodeFailure, Detail: "read csv", Err: err})
	}
	for _, row := range rows {
		idx, err := domain.EncodeRow(row.Cells)
		if err == nil {
			_, err = fmt.Fprintln(w, idx.Encoded)
		}
		t.add(fmt.Sprintf("%s:%d", filepath.Base(file), row.Line), err)
	}
	return t.finish()
}

func readJSON(file string, v any) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &domain.Error{Kind: domain.KindDecodeFailure, Detail: "decode " + filepath.Base(file), Err: err}
	}
	return nil
}
