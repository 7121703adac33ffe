package calificaciones

import (
	"context"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NuamCalifSaas/api/calificaciones/factores"
)

func newTestProcessor() (*RowProcessor, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewRowProcessor(factores.DefaultConfig(), repo), repo
}

func TestProcessPersistsRowWithComputedFactors(t *testing.T) {
	p, repo := newTestProcessor()

	row := Row{
		"codigo_instrumento": "COPEC",
		"nombre_instrumento": "Empresas Copec",
		"fecha_informe":      "2024-12-31",
		"numero_dj":          "1922",
		"monto_8":            "250",
		"monto_9":            "250",
		"monto_10":           "500",
	}
	out := p.Process(context.Background(), 1, row, "analista")
	require.Equal(t, RowPersisted, out.State, out.Message)
	require.NotZero(t, out.RecordID)

	rec, err := repo.GetRecord(context.Background(), out.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "0.25000000", rec.Factores[8].StringFixed(8))
	assert.Equal(t, "0.25000000", rec.Factores[9].StringFixed(8))
	assert.Equal(t, "0.50000000", rec.Factores[10].StringFixed(8))
	require.True(t, rec.Monto.Valid)
	assert.True(t, rec.Monto.Decimal.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "analista", rec.CreadoPor)
	assert.Equal(t, "MONTO", rec.MetodoIngreso)
}

func TestProcessMissingInstrumentCode(t *testing.T) {
	p, _ := newTestProcessor()

	out := p.Process(context.Background(), 3, Row{"fecha_informe": "2024-12-31"}, "analista")
	assert.Equal(t, RowFailed, out.State)
	assert.Equal(t, ClassMissingField, out.Class)
	assert.Contains(t, out.Message, "codigo_instrumento")
}

func TestProcessMissingReportDate(t *testing.T) {
	p, _ := newTestProcessor()

	out := p.Process(context.Background(), 1, Row{"codigo_instrumento": "X"}, "analista")
	assert.Equal(t, ClassMissingField, out.Class)
	assert.Contains(t, out.Message, "fecha_informe")
}

func TestProcessUnparseableDate(t *testing.T) {
	p, _ := newTestProcessor()

	row := Row{"codigo_instrumento": "X", "fecha_informe": "not-a-date"}
	out := p.Process(context.Background(), 1, row, "analista")
	assert.Equal(t, ClassInvalidValue, out.Class)
	assert.Contains(t, out.Message, "fecha_informe")
}

func TestProcessUnparseableAmount(t *testing.T) {
	p, _ := newTestProcessor()

	row := Row{
		"codigo_instrumento": "X",
		"fecha_informe":      "2024-12-31",
		"monto_9":            "abc",
	}
	out := p.Process(context.Background(), 1, row, "analista")
	assert.Equal(t, ClassInvalidValue, out.Class)
	assert.Contains(t, out.Message, "monto_9")
}

func TestProcessFactorOutOfRange(t *testing.T) {
	p, _ := newTestProcessor()

	row := Row{
		"codigo_instrumento": "X",
		"fecha_informe":      "2024-12-31",
		"factor_37":          "5",
	}
	out := p.Process(context.Background(), 1, row, "analista")
	assert.Equal(t, RowFailed, out.State)
	assert.Equal(t, ClassValidation, out.Class)
	assert.Contains(t, out.Message, "factor_37")
}

func TestProcessDuplicateNaturalKey(t *testing.T) {
	p, _ := newTestProcessor()
	ctx := context.Background()

	row := Row{
		"codigo_instrumento": "COPEC",
		"fecha_informe":      "2024-12-31",
		"numero_dj":          "1922",
		"monto_8":            "100",
	}
	first := p.Process(ctx, 1, row, "analista")
	require.Equal(t, RowPersisted, first.State, first.Message)

	second := p.Process(ctx, 2, row, "analista")
	assert.Equal(t, RowFailed, second.State)
	assert.Equal(t, ClassDuplicate, second.Class)
}

func TestProcessLegacyFactorEntry(t *testing.T) {
	p, repo := newTestProcessor()

	row := Row{
		"codigo_instrumento": "FFMM1",
		"fecha_informe":      "2024-06-30",
		"metodo_ingreso":     "factor",
		"factor":             "3.5",
	}
	out := p.Process(context.Background(), 1, row, "analista")
	require.Equal(t, RowPersisted, out.State, out.Message)

	rec, err := repo.GetRecord(context.Background(), out.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "FACTOR", rec.MetodoIngreso)
	require.True(t, rec.Monto.Valid)
	assert.Equal(t, "3500000.0000", rec.Monto.Decimal.StringFixed(4))
}

func TestProcessSpanishNumberFormat(t *testing.T) {
	p, repo := newTestProcessor()

	row := Row{
		"codigo_instrumento": "BSAN",
		"fecha_informe":      "31-12-2024",
		"monto_8":            "1.234.567,89",
	}
	out := p.Process(context.Background(), 1, row, "analista")
	require.Equal(t, RowPersisted, out.State, out.Message)

	rec, err := repo.GetRecord(context.Background(), out.RecordID)
	require.NoError(t, err)
	require.True(t, rec.Monto.Valid)
	assert.Equal(t, "1234567.89", rec.Monto.Decimal.String())
	assert.Equal(t, "2024-12-31", rec.FechaInforme.Format("2006-01-02"))
}

func TestProcessCriticalSumViolation(t *testing.T) {
	p, _ := newTestProcessor()

	row := Row{
		"codigo_instrumento": "X",
		"fecha_informe":      "2024-12-31",
	}
	for i := 8; i <= 16; i++ {
		row["factor_"+strconv.Itoa(i)] = "0.2"
	}
	out := p.Process(context.Background(), 1, row, "analista")
	assert.Equal(t, ClassValidation, out.Class)
	assert.Contains(t, out.Message, "1.80000000")
}
