package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NandaniSingh69/PharmaTrack/alternatives"
)

const catalogCSV = `id,name,composition,price,sub_category
med-1,Crocin Advance,Paracetamol (500mg),30,Analgesic
med-2,Dolo 650,Paracetamol (650mg),25,Analgesic
med-3,Augmentin 625,Amoxycillin (500mg) + Clavulanic Acid (125mg),220,Penicillin Antibiotics
`

type printedResponse struct {
	TargetMedicine struct {
		ID string `json:"_id"`
	} `json:"targetMedicine"`
	Alternatives []struct {
		Medicine struct {
			ID string `json:"_id"`
		} `json:"medicine"`
	} `json:"alternatives"`
	Count int `json:"count"`
}

func importCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(catalogCSV), 0o644))

	dbPath := filepath.Join(dir, "catalog.db")
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"catalogctl", "import", "--csv", csvPath, "--db", dbPath})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Imported 3 medicines")
	return dbPath
}

func TestImportAndAlternatives(t *testing.T) {
	dbPath := importCatalog(t)

	var out bytes.Buffer
	err := newApp(&out).Run([]string{"catalogctl", "alternatives", "--db", dbPath, "--id", "med-1", "--max-results", "5"})
	require.NoError(t, err)

	var resp printedResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "med-1", resp.TargetMedicine.ID)
	require.NotEmpty(t, resp.Alternatives)
	assert.Equal(t, "med-2", resp.Alternatives[0].Medicine.ID)
	assert.Equal(t, len(resp.Alternatives), resp.Count)
}

func TestAlternativesUnknownMedicine(t *testing.T) {
	dbPath := importCatalog(t)

	err := newApp(&bytes.Buffer{}).Run([]string{"catalogctl", "alternatives", "--db", dbPath, "--id", "missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, alternatives.ErrNotFound)
}

func TestAlternativesInvalidScore(t *testing.T) {
	dbPath := importCatalog(t)

	err := newApp(&bytes.Buffer{}).Run([]string{"catalogctl", "alternatives", "--db", dbPath, "--id", "med-1", "--min-score", "1.5"})
	assert.ErrorIs(t, err, alternatives.ErrInvalidInput)
}

func TestRequiredFlags(t *testing.T) {
	// t.Setenv restores the variables after the test
	for _, key := range []string{"CATALOG_SOURCE", "SQLITE_PATH"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	t.Run("import needs csv", func(t *testing.T) {
		err := newApp(&bytes.Buffer{}).Run([]string{"catalogctl", "import", "--db", filepath.Join(t.TempDir(), "x.db")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "csv")
	})

	t.Run("alternatives needs id", func(t *testing.T) {
		err := newApp(&bytes.Buffer{}).Run([]string{"catalogctl", "alternatives", "--db", filepath.Join(t.TempDir(), "x.db")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "id")
	})
}

func TestImportMissingFile(t *testing.T) {
	dir := t.TempDir()
	err := newApp(&bytes.Buffer{}).Run([]string{"catalogctl", "import",
		"--csv", filepath.Join(dir, "absent.csv"),
		"--db", filepath.Join(dir, "catalog.db")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import failed")
}
