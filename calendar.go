package idfm2bq

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
)

// JourFerie is one French public holiday, as loaded into dim_jours_feries.
type JourFerie struct {
	Date string `json:"date"`
	Nom  string `json:"nom"`
}

// FetchJoursFeries downloads the metropole public-holiday calendar and
// stages it as NDJSON at destPath. The API returns a single date->name
// object covering several decades; only dates within the validation year
// range (plus the following year, for forward-looking joins) are kept.
func FetchJoursFeries(ctx context.Context, url, destPath string) (int, error) {
	var raw map[string]string
	if err := fetchJSON(ctx, url, &raw); err != nil {
		return 0, err
	}

	var rows []JourFerie
	for date, nom := range raw {
		if len(date) < 4 {
			continue
		}
		year, err := strconv.Atoi(date[:4])
		if err != nil || year < FirstValidationYear || year > LastValidationYear+1 {
			continue
		}
		rows = append(rows, JourFerie{Date: date, Nom: nom})
	}
	slices.SortFunc(rows, func(a, b JourFerie) int {
		if a.Date < b.Date {
			return -1
		} else if a.Date > b.Date {
			return 1
		}
		return 0
	})

	if err := writeNDJSON(destPath, rows); err != nil {
		return 0, err
	}
	slog.Info(fmt.Sprintf("Staged %d public holidays", len(rows)))
	return len(rows), nil
}

// communeRecord matches the geo.api.gouv.fr response shape.
type communeRecord struct {
	Code            string `json:"code"`
	Nom             string `json:"nom"`
	CodeDepartement string `json:"codeDepartement"`
	Population      int64  `json:"population"`
}

// Commune is one Île-de-France commune, as loaded into dim_commune.
type Commune struct {
	Code            string `json:"code"`
	Nom             string `json:"nom"`
	CodeDepartement string `json:"code_departement"`
	Population      int64  `json:"population"`
}

// FetchCommunes downloads the commune registry for each given department
// URL and stages the union as NDJSON at destPath.
func FetchCommunes(ctx context.Context, urls []string, destPath string) (int, error) {
	var rows []Commune
	for _, url := range urls {
		var batch []communeRecord
		if err := fetchJSON(ctx, url, &batch); err != nil {
			return 0, err
		}
		for _, c := range batch {
			rows = append(rows, Commune{
				Code:            c.Code,
				Nom:             c.Nom,
				CodeDepartement: c.CodeDepartement,
				Population:      c.Population,
			})
		}
	}

	if err := writeNDJSON(destPath, rows); err != nil {
		return 0, err
	}
	slog.Info(fmt.Sprintf("Staged %d communes", len(rows)))
	return len(rows), nil
}
