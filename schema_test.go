package idfm2bq

import (
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSpecFor(t *testing.T) {
	for _, s := range Sources() {
		spec := loadSpecFor(s)
		switch s.Kind {
		case KindParquetExport, KindWeather:
			assert.Equal(t, bigquery.Parquet, spec.Format, s.Name)
			assert.Nil(t, spec.Schema, s.Name)
		case KindCSVExport:
			assert.Equal(t, bigquery.CSV, spec.Format, s.Name)
			assert.Equal(t, ";", spec.FieldDelimiter, s.Name)
			assert.True(t, spec.SkipLeadingRow, s.Name)
			assert.NotEmpty(t, spec.Schema, s.Name)
		case KindValidations:
			assert.Equal(t, bigquery.CSV, spec.Format, s.Name)
			assert.Equal(t, "", spec.FieldDelimiter, s.Name)
			assert.True(t, spec.SkipLeadingRow, s.Name)
			assert.Equal(t, factValidationsSchema, spec.Schema, s.Name)
		case KindJSONAPI:
			assert.Equal(t, bigquery.JSON, spec.Format, s.Name)
			assert.NotEmpty(t, spec.Schema, s.Name)
		}
	}
}

func TestFactValidationsSchema(t *testing.T) {
	require.Len(t, factValidationsSchema, len(canonicalHeader))
	for i, field := range factValidationsSchema {
		assert.Equal(t, canonicalHeader[i], field.Name)
	}

	assert.Equal(t, bigquery.DateFieldType, factValidationsSchema[0].Type)
	assert.True(t, factValidationsSchema[0].Required)
	assert.Equal(t, bigquery.IntegerFieldType, factValidationsSchema[7].Type)
	assert.True(t, factValidationsSchema[7].Required)
}
