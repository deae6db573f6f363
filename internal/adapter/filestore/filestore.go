// Package filestore persists pipeline artifacts as flat files: UTF-8 JSON
// documents and raw bulletin downloads, plus readers for the Big5-encoded
// inputs published by the CWA.
package filestore

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

// Indentation used for each output directory.
const (
	IndentStage   = 2 // parsed, enriched and regional documents
	IndentUnified = 4
)

// Row is one CSV record with its 1-based line number in the source file.
type Row struct {
	Line  int
	Cells []string
}

// WriteJSON serializes v with the given indent width, leaving non-ASCII and
// HTML characters unescaped, and writes it to path. Parent directories are
// created as needed.
func WriteJSON(path string, v any, indent int) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", indent))
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return WriteFile(path, bytes.TrimRight(buf.Bytes(), "\n"))
}

// WriteFile writes data to path through a temporary sibling and a rename, so a
// reader never observes a partially written file.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadBig5 reads a Big5-encoded text file and returns it as UTF-8. Byte
// sequences that are not valid Big5 decode to U+FFFD rather than failing.
func ReadBig5(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return DecodeBig5(raw)
}

// DecodeBig5 converts Big5 bytes to UTF-8.
func DecodeBig5(raw []byte) (string, error) {
	out, _, err := transform.Bytes(traditionalchinese.Big5.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("decode big5: %w", err)
	}
	return string(out), nil
}

// EncodeBig5 converts UTF-8 text to Big5. Runes with no Big5 mapping are an
// error.
func EncodeBig5(s string) ([]byte, error) {
	out, _, err := transform.Bytes(traditionalchinese.Big5.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode big5: %w", err)
	}
	return out, nil
}

// ReadCSV reads a Big5-encoded CSV index, skipping the header row. Rows may
// have any number of cells. On a parse error the rows read so far are
// returned with the error.
func ReadCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(f, traditionalchinese.Big5.NewDecoder()))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows []Row
	header := true
	for {
		cells, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		line, _ := r.FieldPos(0)
		if header {
			header = false
			continue
		}
		rows = append(rows, Row{Line: line, Cells: cells})
	}
}

// Glob lists files in dir matching pattern, sorted by name. A missing
// directory yields no files.
func Glob(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	return files, nil
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
