package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON_IndentAndEscaping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	doc := map[string]any{"county": "臺北市", "note": "a<b&c"}

	require.NoError(t, WriteJSON(path, doc, IndentUnified))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"county\": \"臺北市\",\n    \"note\": \"a<b&c\"\n}", string(data))
}

func TestWriteJSON_StageIndent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSON(path, []int{1}, IndentStage))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  1\n]", string(data))
}

func TestWriteFile_Overwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")

	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestBig5RoundTrip(t *testing.T) {
	raw, err := EncodeBig5("測站 臺北市")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("測站 臺北市"), raw)

	path := filepath.Join(t.TempDir(), "2024_1.txt")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	text, err := ReadBig5(path)
	require.NoError(t, err)
	assert.Equal(t, "測站 臺北市", text)
}

func TestDecodeBig5_Lossy(t *testing.T) {
	text, err := DecodeBig5([]byte{'o', 'k', 0xff, 0xff})
	require.NoError(t, err)
	assert.Contains(t, text, "ok")
	assert.Contains(t, text, "�")
}

func TestReadBig5_Missing(t *testing.T) {
	_, err := ReadBig5(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadCSV(t *testing.T) {
	content := "編號,時間,經度,緯度,規模,深度,位置,備註\n" +
		"113001,2024-04-03 12:34:56,121.67,23.77,5.2,12.3,花蓮縣,\n" +
		"A2024001,2024-04-03 13:00:00,121.1,23.1,4,10,臺北市,小區域\n" +
		"short,row\n"
	raw, err := EncodeBig5(content)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "index.csv")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "113001", rows[0].Cells[0])
	assert.Equal(t, "花蓮縣", rows[0].Cells[6])
	assert.Len(t, rows[0].Cells, 8)
	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, "小區域", rows[1].Cells[7])
	assert.Equal(t, []string{"short", "row"}, rows[2].Cells)
}

func TestReadCSV_LenientQuotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quotes.csv")
	require.NoError(t, os.WriteFile(path, []byte("h1,h2\na\"b,c\n"), 0o644))

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a\"b", "c"}, rows[0].Cells)
}

func TestReadCSV_Missing(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.json"), 0o755))

	files, err := Glob(dir, "*.json")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")}, files)

	files, err = Glob(filepath.Join(dir, "missing"), "*.json")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestExistsAndStem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2024_113001.txt")
	assert.False(t, Exists(path))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	assert.True(t, Exists(path))

	assert.Equal(t, "2024_113001", Stem(path))
	assert.Equal(t, "2024040312345652_regional", Stem("x/2024040312345652_regional.json"))
}
