package calificaciones

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NuamCalifSaas/api/calificaciones/factores"
)

func TestIngestRowsPartialFailure(t *testing.T) {
	repo := NewMemoryRepository()
	o := NewBatchOrchestrator(factores.DefaultConfig(), repo)
	ctx := context.Background()

	rows := []Row{
		{
			"codigo_instrumento": "COPEC",
			"fecha_informe":      "2024-12-31",
			"numero_dj":          "1922",
			"monto_8":            "600",
			"monto_9":            "400",
		},
		{
			"codigo_instrumento": "BSAN",
			"fecha_informe":      "2024-12-31",
			"factor_37":          "5",
		},
		{
			"codigo_instrumento": "CHILE",
			"fecha_informe":      "2024-12-31",
			"factor_8":           "0.9",
			"factor_9":           "0.9",
		},
	}

	batch, outcomes, err := o.IngestRows(ctx, rows, "cartera.csv", "analista")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "PARCIAL", batch.Estado)
	assert.Equal(t, 3, batch.RegistrosProcesados)
	assert.Equal(t, 1, batch.RegistrosExitosos)
	assert.Equal(t, 2, batch.RegistrosFallidos)

	lines := strings.Split(batch.ErroresDetalle, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Row 2:"))
	assert.Contains(t, lines[0], "factor_37")
	assert.True(t, strings.HasPrefix(lines[1], "Row 3:"))
	assert.Contains(t, lines[1], "1.80000000")

	// the failing rows left nothing behind
	recs, err := repo.ListRecords(ctx, RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	stored, err := repo.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, "PARCIAL", stored.Estado)
}

func TestIngestRowsAllSucceed(t *testing.T) {
	repo := NewMemoryRepository()
	o := NewBatchOrchestrator(factores.DefaultConfig(), repo)

	rows := []Row{
		{"codigo_instrumento": "A", "fecha_informe": "2024-12-31", "monto_8": "10"},
		{"codigo_instrumento": "B", "fecha_informe": "2024-12-31", "monto_8": "20"},
	}
	batch, outcomes, err := o.IngestRows(context.Background(), rows, "ok.csv", "analista")
	require.NoError(t, err)

	assert.Equal(t, "EXITOSO", batch.Estado)
	assert.Empty(t, batch.ErroresDetalle)
	for _, out := range outcomes {
		assert.Equal(t, RowPersisted, out.State)
	}
}

func TestIngestRowsAllFail(t *testing.T) {
	repo := NewMemoryRepository()
	o := NewBatchOrchestrator(factores.DefaultConfig(), repo)

	rows := []Row{
		{"codigo_instrumento": "A", "fecha_informe": "bad"},
		{"codigo_instrumento": "B"},
	}
	batch, _, err := o.IngestRows(context.Background(), rows, "bad.csv", "analista")
	require.NoError(t, err)

	assert.Equal(t, "FALLIDO", batch.Estado)
	assert.Equal(t, 0, batch.RegistrosExitosos)
	assert.Equal(t, 2, batch.RegistrosFallidos)
}

func TestIngestFileUnsupportedFormat(t *testing.T) {
	repo := NewMemoryRepository()
	o := NewBatchOrchestrator(factores.DefaultConfig(), repo)

	batch, outcomes, err := o.IngestFile(context.Background(), strings.NewReader("junk"), "cartera.pdf", "analista")
	require.Error(t, err)
	assert.Nil(t, outcomes)

	var rowErr *RowError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, ClassStructural, rowErr.Class)

	assert.Equal(t, "FALLIDO", batch.Estado)
	stored, gerr := repo.GetBatch(context.Background(), batch.ID)
	require.NoError(t, gerr)
	assert.Equal(t, "FALLIDO", stored.Estado)
	assert.NotEmpty(t, stored.ErroresDetalle)
}

func TestIngestFileCSVEndToEnd(t *testing.T) {
	repo := NewMemoryRepository()
	o := NewBatchOrchestrator(factores.DefaultConfig(), repo)

	csv := "codigo_instrumento,fecha_informe,numero_dj,monto_8,monto_9\n" +
		"COPEC,2024-12-31,1922,600,400\n" +
		",2024-12-31,1922,1,1\n" + // no code: skipped, not failed
		"BSAN,2024-12-31,1922,100,300\n"

	batch, outcomes, err := o.IngestFile(context.Background(), strings.NewReader(csv), "cartera.csv", "analista")
	require.NoError(t, err)

	assert.Equal(t, "EXITOSO", batch.Estado)
	assert.Equal(t, 2, batch.RegistrosProcesados)
	require.Len(t, outcomes, 2)

	recs, err := repo.ListRecords(context.Background(), RecordFilter{Codigo: "BSAN"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "0.25000000", recs[0].Factores[8].StringFixed(8))
	assert.Equal(t, "0.75000000", recs[0].Factores[9].StringFixed(8))
}
