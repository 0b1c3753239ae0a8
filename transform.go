package idfm2bq

import (
	"context"
	"fmt"
)

// Gold KPI queries. Every referenced table lives in the silver dataset and
// every destination table is created there too: querying across the US
// multiregion and us-east1 fails with a location mismatch, so gold is
// co-located with silver under a gold_ prefix.

type goldTable struct {
	Name string
	SQL  string
}

// The %[1]s placeholder is the silver dataset ID.

const goldReseauJourSQL = `
WITH par_jour AS (
  SELECT
    JOUR AS jour,
    SUM(NB_VALD) AS total_validations,
    COUNT(DISTINCT ID_REFA_LDA) AS nb_gares
  FROM ` + "`%[1]s.fact_validations`" + `
  GROUP BY JOUR
)
SELECT
  j.jour,
  j.total_validations,
  j.nb_gares,
  m.temperature_min,
  m.temperature_max,
  m.precipitation_mm,
  m.wind_speed_max,
  jf.date IS NOT NULL AS est_ferie,
  EXISTS (
    SELECT 1 FROM ` + "`%[1]s.dim_vacances_scolaires`" + ` v
    WHERE v.zones = 'Zone C'
      AND j.jour BETWEEN DATE(v.start_date) AND DATE(v.end_date)
  ) AS est_vacances_scolaires
FROM par_jour j
LEFT JOIN ` + "`%[1]s.dim_meteo`" + ` m ON CAST(m.date AS DATE) = j.jour
LEFT JOIN ` + "`%[1]s.dim_jours_feries`" + ` jf ON jf.date = j.jour
`

const goldGareMoisSQL = `
SELECT
  DATE_TRUNC(JOUR, MONTH) AS mois,
  ID_REFA_LDA,
  ANY_VALUE(LIBELLE_ARRET) AS libelle_arret,
  SUM(NB_VALD) AS total_validations,
  RANK() OVER (
    PARTITION BY DATE_TRUNC(JOUR, MONTH)
    ORDER BY SUM(NB_VALD) DESC
  ) AS rang
FROM ` + "`%[1]s.fact_validations`" + `
WHERE ID_REFA_LDA IS NOT NULL
GROUP BY mois, ID_REFA_LDA
`

const goldTitreJourSQL = `
SELECT
  JOUR AS jour,
  CATEGORIE_TITRE AS categorie_titre,
  SUM(NB_VALD) AS validations,
  SAFE_DIVIDE(
    SUM(NB_VALD),
    SUM(SUM(NB_VALD)) OVER (PARTITION BY JOUR)
  ) AS part_jour
FROM ` + "`%[1]s.fact_validations`" + `
GROUP BY jour, categorie_titre
`

const goldMeteoSQL = `
WITH par_jour AS (
  SELECT JOUR AS jour, SUM(NB_VALD) AS total_validations
  FROM ` + "`%[1]s.fact_validations`" + `
  GROUP BY JOUR
)
SELECT
  CASE
    WHEN m.precipitation_mm = 0 THEN 'sec'
    WHEN m.precipitation_mm < 5 THEN 'pluie_faible'
    ELSE 'pluie_forte'
  END AS classe_precipitation,
  COUNT(*) AS nb_jours,
  AVG(j.total_validations) AS validations_moyennes
FROM par_jour j
JOIN ` + "`%[1]s.dim_meteo`" + ` m ON CAST(m.date AS DATE) = j.jour
GROUP BY classe_precipitation
`

// GoldTables renders every KPI query against the given silver dataset.
func GoldTables(dataset string) []goldTable {
	render := func(sql string) string { return fmt.Sprintf(sql, dataset) }
	return []goldTable{
		{Name: "gold_kpi_reseau_jour", SQL: render(goldReseauJourSQL)},
		{Name: "gold_kpi_gare_mois", SQL: render(goldGareMoisSQL)},
		{Name: "gold_kpi_titre_jour", SQL: render(goldTitreJourSQL)},
		{Name: "gold_kpi_meteo", SQL: render(goldMeteoSQL)},
	}
}

// Transform builds the gold KPI tables from silver.
func Transform(ctx context.Context, cfg Config) error {
	warehouse, err := OpenWarehouse(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = warehouse.Close() }()

	for _, gold := range GoldTables(cfg.Dataset) {
		if err := warehouse.RunToTable(ctx, gold.Name, gold.SQL); err != nil {
			return err
		}
	}
	return nil
}
