package idfm2bq

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var ErrInvalidInput = errors.New("invalid input")
var ErrBadYear = errors.New("no parsing profile for year")

// The fixed year range of the published validation history.
const (
	FirstValidationYear = 2015
	LastValidationYear  = 2024
)

// canonicalHeader is the unified CSV layout every yearly file normalizes to.
var canonicalHeader = []string{
	"JOUR", "CODE_STIF_TRNS", "CODE_STIF_RES", "CODE_STIF_ARRET",
	"LIBELLE_ARRET", "ID_REFA_LDA", "CATEGORIE_TITRE", "NB_VALD",
}

// censoredValue replaces the portal's privacy-censored count "Moins de 5".
// 3 is the midpoint of the censored 1..5 range.
const censoredValue = "3"

// yearProfile selects how one year's files are parsed. The portal changed
// separator, encoding, date layout and header names over the life of the
// dataset.
type yearProfile struct {
	comma      rune
	encoding   encoding.Encoding // nil means UTF-8
	dateLayout string
	header     map[string]string // lower-cased source column -> canonical
}

var legacyHeader = map[string]string{
	"jour":            "JOUR",
	"code_stif_trns":  "CODE_STIF_TRNS",
	"code_stif_res":   "CODE_STIF_RES",
	"code_stif_arret": "CODE_STIF_ARRET",
	"libelle_arret":   "LIBELLE_ARRET",
	"id_refa_lda":     "ID_REFA_LDA",
	"categorie_titre": "CATEGORIE_TITRE",
	"nb_vald":         "NB_VALD",
}

// renamedHeader covers the 2023 portal refresh, which lower-cased the
// columns and renamed the stop-area reference.
var renamedHeader = map[string]string{
	"jour":            "JOUR",
	"code_stif_trns":  "CODE_STIF_TRNS",
	"code_stif_res":   "CODE_STIF_RES",
	"code_stif_arret": "CODE_STIF_ARRET",
	"libelle_arret":   "LIBELLE_ARRET",
	"lda_id":          "ID_REFA_LDA",
	"categorie_titre": "CATEGORIE_TITRE",
	"nb_vald":         "NB_VALD",
}

func profileForYear(year int) (yearProfile, error) {
	switch {
	case year >= 2015 && year <= 2018:
		return yearProfile{
			comma:      '\t',
			encoding:   charmap.Windows1252,
			dateLayout: "02/01/2006",
			header:     legacyHeader,
		}, nil
	case year >= 2019 && year <= 2022:
		return yearProfile{
			comma:      ';',
			dateLayout: "2006-01-02",
			header:     legacyHeader,
		}, nil
	case year >= 2023 && year <= LastValidationYear:
		return yearProfile{
			comma:      ';',
			dateLayout: "2006-01-02",
			header:     renamedHeader,
		}, nil
	default:
		return yearProfile{}, fmt.Errorf("%w: %d", ErrBadYear, year)
	}
}

type NormalizeStats struct {
	Rows     int
	Skipped  int
	Censored int
}

// NormalizeValidations rewrites one year of validation data (a zip archive
// or a single delimited file) as a canonical UTF-8 comma-separated CSV at
// outputPath. Output is byte-stable for identical input.
func NormalizeValidations(inputPath, outputPath string, year int) (*NormalizeStats, error) {
	if inputPath == "" {
		panic("Missing inputPath")
	}
	if outputPath == "" {
		panic("Missing outputPath")
	}

	profile, err := profileForYear(year)
	if err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("Normalizing %s (%d)", inputPath, year))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, err
	}
	outputF, err := os.Create(outputPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if outputF != nil {
			_ = outputF.Close()
		}
	}()

	outputCSV := csv.NewWriter(outputF)
	if err := outputCSV.Write(canonicalHeader); err != nil {
		return nil, err
	}

	stats := &NormalizeStats{}
	if strings.EqualFold(filepath.Ext(inputPath), ".zip") {
		err = normalizeArchive(inputPath, profile, outputCSV, stats)
	} else {
		err = normalizeFileAt(inputPath, profile, outputCSV, stats)
	}
	if err != nil {
		return nil, err
	}

	outputCSV.Flush()
	if err := outputCSV.Error(); err != nil {
		return nil, err
	}
	err = outputF.Close()
	outputF = nil
	if err != nil {
		return nil, err
	}

	slog.Info(fmt.Sprintf("Wrote %d rows (%d skipped, %d censored) to %s",
		stats.Rows, stats.Skipped, stats.Censored, outputPath))
	return stats, nil
}

func normalizeArchive(inputPath string, profile yearProfile, out *csv.Writer, stats *NormalizeStats) error {
	inputZip, err := zip.OpenReader(inputPath)
	if err != nil {
		return err
	}
	defer func() { _ = inputZip.Close() }()

	// Sort entries so the output does not depend on archive order.
	var names []string
	for _, entry := range inputZip.File {
		if strings.HasSuffix(entry.Name, ".txt") || strings.HasSuffix(entry.Name, ".csv") {
			names = append(names, entry.Name)
		}
	}
	slices.Sort(names)
	if len(names) == 0 {
		return fmt.Errorf("%w: %s contains no delimited files", ErrInvalidInput, inputPath)
	}

	for _, name := range names {
		entryF, err := inputZip.Open(name)
		if err != nil {
			return err
		}
		err = normalizeFile(name, entryF, profile, out, stats)
		_ = entryF.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func normalizeFileAt(inputPath string, profile yearProfile, out *csv.Writer, stats *NormalizeStats) error {
	inputF, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer func() { _ = inputF.Close() }()
	return normalizeFile(inputPath, inputF, profile, out, stats)
}

func normalizeFile(name string, input io.Reader, profile yearProfile, out *csv.Writer, stats *NormalizeStats) error {
	if profile.encoding != nil {
		input = transform.NewReader(input, profile.encoding.NewDecoder())
	}

	inputCSV := csv.NewReader(input)
	inputCSV.Comma = profile.comma
	inputCSV.FieldsPerRecord = -1
	inputCSV.LazyQuotes = true

	header, err := inputCSV.Read()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, err)
	}
	slog.Info(fmt.Sprintf("Normalizing %s: %s", name, strings.Join(header, ",")))

	// columnFor[i] is the canonical index of source column i, or -1.
	columnFor := make([]int, len(header))
	seen := make(map[string]bool)
	for i, column := range header {
		column = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(column), "\uFEFF"))
		canonical, ok := profile.header[column]
		if !ok {
			columnFor[i] = -1
			continue
		}
		columnFor[i] = slices.Index(canonicalHeader, canonical)
		seen[canonical] = true
	}
	for _, required := range []string{"JOUR", "NB_VALD"} {
		if !seen[required] {
			return fmt.Errorf("%w: %s is missing column %s", ErrInvalidInput, name, required)
		}
	}

	for {
		row, err := inputCSV.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidInput, name, err)
		}

		outRow := make([]string, len(canonicalHeader))
		for i, v := range row {
			if i >= len(columnFor) || columnFor[i] == -1 {
				continue
			}
			outRow[columnFor[i]] = strings.TrimSpace(v)
		}

		day, err := time.Parse(profile.dateLayout, outRow[0])
		if err != nil {
			stats.Skipped++
			continue
		}
		outRow[0] = day.Format("2006-01-02")

		count := outRow[len(outRow)-1]
		if strings.EqualFold(count, "moins de 5") {
			count = censoredValue
			stats.Censored++
		} else {
			// Legacy files group thousands with spaces, sometimes non-breaking.
			count = strings.ReplaceAll(count, " ", "")
			count = strings.ReplaceAll(count, " ", "")
		}
		if _, err := strconv.ParseInt(count, 10, 64); err != nil {
			stats.Skipped++
			continue
		}
		outRow[len(outRow)-1] = count

		if err := out.Write(outRow); err != nil {
			return err
		}
		stats.Rows++
	}

	if stats.Skipped > 0 {
		slog.Warn(fmt.Sprintf("Skipped %d malformed row(s) so far", stats.Skipped))
	}
	return nil
}
