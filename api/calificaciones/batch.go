package calificaciones

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"NuamCalifSaas/api/calificaciones/factores"
	"NuamCalifSaas/api/constants"
)

// BatchOrchestrator runs one bounded upload through the row pipeline and
// owns the batch audit record: created PROCESANDO before the first row,
// finalized exactly once with counts, per-row error detail and the derived
// estado.
type BatchOrchestrator struct {
	cfg       factores.Config
	repo      Repository
	processor *RowProcessor
}

func NewBatchOrchestrator(cfg factores.Config, repo Repository) *BatchOrchestrator {
	return &BatchOrchestrator{
		cfg:       cfg,
		repo:      repo,
		processor: NewRowProcessor(cfg, repo),
	}
}

// IngestFile parses the upload and processes its rows. A failure before the
// first row (unsupported format, unreadable file, oversize) finalizes the
// batch FALLIDO with a single top-level message and is returned as an
// error; row-level failures never are.
func (o *BatchOrchestrator) IngestFile(ctx context.Context, f io.ReadSeeker, filename, actor string) (*IngestionBatch, []RowOutcome, error) {
	batch := &IngestionBatch{
		ID:            uuid.New().String(),
		ArchivoNombre: filename,
		Usuario:       actor,
		Estado:        constants.BatchProcessing,
	}
	if err := o.repo.CreateBatch(ctx, batch); err != nil {
		return nil, nil, err
	}
	log.Printf("[CargaMasiva] batch %s started - user=%s file=%s", batch.ID, actor, filename)

	rows, err := ParseRows(f, filename, o.cfg.MaxUploadRows)
	if err != nil {
		batch.Estado = constants.BatchFailed
		batch.ErroresDetalle = err.Error()
		if finErr := o.repo.FinalizeBatch(ctx, batch); finErr != nil {
			log.Printf("[CargaMasiva] batch %s finalize failed: %v", batch.ID, finErr)
		}
		log.Printf("[CargaMasiva] batch %s structural failure: %v", batch.ID, err)
		return batch, nil, &RowError{Class: ClassStructural, Message: err.Error()}
	}

	outcomes := o.processRows(ctx, batch, rows, actor)
	return batch, outcomes, nil
}

// IngestRows processes already-materialized rows under a fresh batch record.
func (o *BatchOrchestrator) IngestRows(ctx context.Context, rows []Row, filename, actor string) (*IngestionBatch, []RowOutcome, error) {
	batch := &IngestionBatch{
		ID:            uuid.New().String(),
		ArchivoNombre: filename,
		Usuario:       actor,
		Estado:        constants.BatchProcessing,
	}
	if err := o.repo.CreateBatch(ctx, batch); err != nil {
		return nil, nil, err
	}
	return batch, o.processRows(ctx, batch, rows, actor), nil
}

// processRows walks the rows strictly in input order so the ordinals in the
// error detail match the uploaded file, then finalizes the batch.
func (o *BatchOrchestrator) processRows(ctx context.Context, batch *IngestionBatch, rows []Row, actor string) []RowOutcome {
	var (
		outcomes  = make([]RowOutcome, 0, len(rows))
		errorList []string
		exitosos  int
		fallidos  int
	)
	for i, row := range rows {
		outcome := o.processor.Process(ctx, i+1, row, actor)
		outcomes = append(outcomes, outcome)
		if outcome.State == RowPersisted {
			exitosos++
			continue
		}
		fallidos++
		errorList = append(errorList, fmt.Sprintf(constants.FmtRowError, outcome.Ordinal, outcome.Message))
		log.Printf("[CargaMasiva] batch %s row %d failed (%s): %s", batch.ID, outcome.Ordinal, outcome.Class, outcome.Message)
	}

	batch.RegistrosProcesados = len(rows)
	batch.RegistrosExitosos = exitosos
	batch.RegistrosFallidos = fallidos
	batch.ErroresDetalle = strings.Join(errorList, "\n")
	switch {
	case fallidos == 0:
		batch.Estado = constants.BatchSuccess
	case exitosos > 0:
		batch.Estado = constants.BatchPartial
	default:
		batch.Estado = constants.BatchFailed
	}

	if err := o.repo.FinalizeBatch(ctx, batch); err != nil {
		log.Printf("[CargaMasiva] batch %s finalize failed: %v", batch.ID, err)
	}
	log.Printf("[CargaMasiva] batch %s done - estado=%s procesados=%d exitosos=%d fallidos=%d",
		batch.ID, batch.Estado, batch.RegistrosProcesados, exitosos, fallidos)
	return outcomes
}
