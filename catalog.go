package idfm2bq

import (
	"fmt"
	"strings"
)

// NOTE: Dataset slugs come from the Île-de-France Mobilités and
// data.education.gouv.fr open-data portals; renaming one there breaks the
// extract step, not the catalog.

type SourceKind int

const (
	// KindParquetExport is an explore-API dataset exported as snappy parquet.
	KindParquetExport SourceKind = iota
	// KindCSVExport is an explore-API dataset exported as semicolon CSV.
	KindCSVExport
	// KindJSONAPI is a JSON endpoint re-encoded as newline-delimited JSON.
	KindJSONAPI
	// KindValidations is the yearly validation archives (one zip per year).
	KindValidations
	// KindWeather is the Open-Meteo daily archive written as parquet.
	KindWeather
)

type Source struct {
	Name         string
	Kind         SourceKind
	Dataset      string // portal dataset slug, where applicable
	BronzePrefix string
	Table        string // silver table the source feeds
}

var sources = []Source{
	{Name: "gares", Kind: KindParquetExport, Dataset: "emplacement-des-gares-idf", BronzePrefix: "gares", Table: "dim_gare"},
	{Name: "lignes", Kind: KindParquetExport, Dataset: "referentiel-des-lignes", BronzePrefix: "lignes", Table: "dim_ligne"},
	{Name: "arrets", Kind: KindParquetExport, Dataset: "arrets", BronzePrefix: "arrets", Table: "dim_arret"},
	{Name: "transporteurs", Kind: KindParquetExport, Dataset: "transporteurs", BronzePrefix: "transporteurs", Table: "dim_transporteur"},
	{Name: "vacances", Kind: KindCSVExport, Dataset: "fr-en-calendrier-scolaire", BronzePrefix: "vacances", Table: "dim_vacances_scolaires"},
	{Name: "jours-feries", Kind: KindJSONAPI, BronzePrefix: "jours_feries", Table: "dim_jours_feries"},
	{Name: "communes", Kind: KindJSONAPI, BronzePrefix: "communes", Table: "dim_commune"},
	{Name: "meteo", Kind: KindWeather, BronzePrefix: "meteo", Table: "dim_meteo"},
	{Name: "validations", Kind: KindValidations, Dataset: "histo-validations-reseau-ferre", BronzePrefix: "validations", Table: "fact_validations"},
}

func Sources() []Source {
	out := make([]Source, len(sources))
	copy(out, sources)
	return out
}

func SourceByName(name string) (Source, bool) {
	for _, s := range sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

const (
	idfmExportURL      = "https://data.iledefrance-mobilites.fr/api/explore/v2.1/catalog/datasets/%s/exports/%s"
	idfmAttachmentURL  = "https://data.iledefrance-mobilites.fr/api/datasets/1.0/%s/attachments/%s"
	educationExportURL = "https://data.education.gouv.fr/api/explore/v2.1/catalog/datasets/%s/exports/csv?delimiter=%%3B"
	joursFeriesURL     = "https://calendrier.api.gouv.fr/jours-feries/metropole.json"
	communesURL        = "https://geo.api.gouv.fr/departements/%s/communes?fields=nom,code,codeDepartement,population"
)

// The eight departments of Île-de-France.
var idfDepartments = []string{"75", "77", "78", "91", "92", "93", "94", "95"}

// CommuneURLs returns one registry URL per Île-de-France department.
func CommuneURLs() []string {
	urls := make([]string, 0, len(idfDepartments))
	for _, dep := range idfDepartments {
		urls = append(urls, fmt.Sprintf(communesURL, dep))
	}
	return urls
}

// ExportURL builds the portal download URL for a parquet or CSV export source.
func (s Source) ExportURL() string {
	switch s.Kind {
	case KindParquetExport:
		return fmt.Sprintf(idfmExportURL, s.Dataset, "parquet?parquet_compression=snappy")
	case KindCSVExport:
		return fmt.Sprintf(educationExportURL, s.Dataset)
	default:
		panic("ExportURL on source without an export")
	}
}

// ObjectName is the deterministic file name a source gets in staging and in
// bronze. Extract and load both derive names from it, so bronze objects are
// never guessed. Validations use a wildcard: one object per year.
func (s Source) ObjectName() string {
	switch s.Kind {
	case KindParquetExport:
		return s.Dataset + ".parquet"
	case KindCSVExport:
		return s.Dataset + ".csv"
	case KindJSONAPI:
		return strings.ReplaceAll(s.Name, "-", "_") + ".ndjson"
	case KindWeather:
		return "meteo.parquet"
	case KindValidations:
		return "validations_*.csv"
	default:
		panic("unknown source kind")
	}
}

// ValidationCSVName names the normalized file for one year.
func ValidationCSVName(year int) string {
	return fmt.Sprintf("validations_%d.csv", year)
}

// StationGeoJSONURL is the GeoJSON rendition of the station dataset, used
// to place the weather query point.
func StationGeoJSONURL() string {
	return fmt.Sprintf(idfmExportURL, "emplacement-des-gares-idf", "geojson")
}

// ArchiveURL builds the attachment URL for one year of validation history.
func (s Source) ArchiveURL(year int) string {
	if s.Kind != KindValidations {
		panic("ArchiveURL on non-validation source")
	}
	return fmt.Sprintf(idfmAttachmentURL, s.Dataset, fmt.Sprintf("validations_%d_zip", year))
}
