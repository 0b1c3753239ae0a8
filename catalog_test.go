package idfm2bq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogIsUnique(t *testing.T) {
	names := make(map[string]bool)
	tables := make(map[string]bool)
	for _, s := range Sources() {
		assert.False(t, names[s.Name], "duplicate source name %s", s.Name)
		assert.False(t, tables[s.Table], "duplicate table %s", s.Table)
		names[s.Name] = true
		tables[s.Table] = true
		assert.NotEmpty(t, s.BronzePrefix)
	}
}

func TestSourceByName(t *testing.T) {
	s, ok := SourceByName("validations")
	require.True(t, ok)
	assert.Equal(t, KindValidations, s.Kind)
	assert.Equal(t, "fact_validations", s.Table)

	_, ok = SourceByName("nope")
	assert.False(t, ok)
}

func TestExportURL(t *testing.T) {
	gares, _ := SourceByName("gares")
	assert.Equal(t,
		"https://data.iledefrance-mobilites.fr/api/explore/v2.1/catalog/datasets/emplacement-des-gares-idf/exports/parquet?parquet_compression=snappy",
		gares.ExportURL())

	vacances, _ := SourceByName("vacances")
	assert.Equal(t,
		"https://data.education.gouv.fr/api/explore/v2.1/catalog/datasets/fr-en-calendrier-scolaire/exports/csv?delimiter=%3B",
		vacances.ExportURL())

	validations, _ := SourceByName("validations")
	assert.Panics(t, func() { validations.ExportURL() })
}

func TestArchiveURL(t *testing.T) {
	validations, _ := SourceByName("validations")
	assert.Equal(t,
		"https://data.iledefrance-mobilites.fr/api/datasets/1.0/histo-validations-reseau-ferre/attachments/validations_2019_zip",
		validations.ArchiveURL(2019))
}

func TestObjectName(t *testing.T) {
	for name, expected := range map[string]string{
		"gares":        "emplacement-des-gares-idf.parquet",
		"vacances":     "fr-en-calendrier-scolaire.csv",
		"jours-feries": "jours_feries.ndjson",
		"meteo":        "meteo.parquet",
		"validations":  "validations_*.csv",
	} {
		s, ok := SourceByName(name)
		require.True(t, ok, name)
		assert.Equal(t, expected, s.ObjectName())
	}
}

func TestCommuneURLs(t *testing.T) {
	urls := CommuneURLs()
	require.Len(t, urls, 8)
	assert.Contains(t, urls[0], "https://geo.api.gouv.fr/departements/75/communes")
}
