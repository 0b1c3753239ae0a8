package idfm2bq

import "cloud.google.com/go/bigquery"

// Explicit schemas for sources staged as CSV or NDJSON. The parquet sources
// (dimension exports and weather) are self-describing and need none.

// factValidationsSchema is the unified validation fact table,
// grain = day x station x fare category.
var factValidationsSchema = bigquery.Schema{
	{Name: "JOUR", Type: bigquery.DateFieldType, Required: true},
	{Name: "CODE_STIF_TRNS", Type: bigquery.StringFieldType},
	{Name: "CODE_STIF_RES", Type: bigquery.StringFieldType},
	{Name: "CODE_STIF_ARRET", Type: bigquery.StringFieldType},
	{Name: "LIBELLE_ARRET", Type: bigquery.StringFieldType},
	{Name: "ID_REFA_LDA", Type: bigquery.StringFieldType},
	{Name: "CATEGORIE_TITRE", Type: bigquery.StringFieldType},
	{Name: "NB_VALD", Type: bigquery.IntegerFieldType, Required: true},
}

var vacancesScolairesSchema = bigquery.Schema{
	{Name: "description", Type: bigquery.StringFieldType},
	{Name: "population", Type: bigquery.StringFieldType},
	{Name: "start_date", Type: bigquery.TimestampFieldType},
	{Name: "end_date", Type: bigquery.TimestampFieldType},
	{Name: "location", Type: bigquery.StringFieldType},
	{Name: "zones", Type: bigquery.StringFieldType},
	{Name: "annee_scolaire", Type: bigquery.StringFieldType},
}

var joursFeriesSchema = bigquery.Schema{
	{Name: "date", Type: bigquery.DateFieldType, Required: true},
	{Name: "nom", Type: bigquery.StringFieldType},
}

var communesSchema = bigquery.Schema{
	{Name: "code", Type: bigquery.StringFieldType, Required: true},
	{Name: "nom", Type: bigquery.StringFieldType},
	{Name: "code_departement", Type: bigquery.StringFieldType},
	{Name: "population", Type: bigquery.IntegerFieldType},
}

// loadSpecFor maps a source to its silver load job configuration.
func loadSpecFor(s Source) LoadSpec {
	switch s.Kind {
	case KindParquetExport, KindWeather:
		return LoadSpec{Format: bigquery.Parquet}
	case KindCSVExport:
		return LoadSpec{
			Format:         bigquery.CSV,
			Schema:         vacancesScolairesSchema,
			SkipLeadingRow: true,
			FieldDelimiter: ";",
		}
	case KindValidations:
		return LoadSpec{
			Format:         bigquery.CSV,
			Schema:         factValidationsSchema,
			SkipLeadingRow: true,
		}
	case KindJSONAPI:
		spec := LoadSpec{Format: bigquery.JSON}
		switch s.Table {
		case "dim_jours_feries":
			spec.Schema = joursFeriesSchema
		case "dim_commune":
			spec.Schema = communesSchema
		}
		return spec
	default:
		panic("unknown source kind")
	}
}
