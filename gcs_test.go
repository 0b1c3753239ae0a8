package idfm2bq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	bucket, object, err := ParseURI("gs://my-bucket/bronze/gares/file.parquet")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "bronze/gares/file.parquet", object)

	_, _, err = ParseURI("s3://my-bucket/file")
	require.Error(t, err)
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, "bronze/gares/file.parquet", objectPath("gares", "file.parquet"))
	assert.Equal(t, "bronze/file.parquet", objectPath("", "file.parquet"))
	assert.Equal(t, "bronze/validations/csv/2019.csv", objectPath("validations", "csv/2019.csv"))
}

func TestBronzeURI(t *testing.T) {
	gares, _ := SourceByName("gares")
	assert.Equal(t, "gs://b/bronze/gares/emplacement-des-gares-idf.parquet", bronzeURI("b", gares))

	validations, _ := SourceByName("validations")
	assert.Equal(t, "gs://b/bronze/validations/validations_*.csv", bronzeURI("b", validations))
}
