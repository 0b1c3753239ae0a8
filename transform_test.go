package idfm2bq

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldTables(t *testing.T) {
	tables := GoldTables("silver")
	require.Len(t, tables, 4)

	names := make([]string, 0, len(tables))
	for _, gold := range tables {
		names = append(names, gold.Name)

		assert.True(t, strings.HasPrefix(gold.Name, "gold_"), gold.Name)
		assert.NotContains(t, gold.SQL, "%", gold.Name)
		assert.Contains(t, gold.SQL, "`silver.fact_validations`", gold.Name)
	}
	assert.Equal(t, []string{
		"gold_kpi_reseau_jour",
		"gold_kpi_gare_mois",
		"gold_kpi_titre_jour",
		"gold_kpi_meteo",
	}, names)
}

func TestGoldReseauJourJoinsCalendar(t *testing.T) {
	tables := GoldTables("silver")
	sql := tables[0].SQL

	assert.Contains(t, sql, "`silver.dim_meteo`")
	assert.Contains(t, sql, "`silver.dim_jours_feries`")
	assert.Contains(t, sql, "`silver.dim_vacances_scolaires`")
	assert.Contains(t, sql, "'Zone C'")
}
