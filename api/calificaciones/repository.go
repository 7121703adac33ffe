package calificaciones

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by Repository implementations. The postgres
// implementation maps driver error codes onto these so callers never see a
// raw database error for the cases the pipeline classifies.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate natural key")
)

// RecordFilter narrows record listings. Zero values mean "no filter".
type RecordFilter struct {
	Codigo          string
	NumeroDJ        string
	FechaDesde      time.Time
	FechaHasta      time.Time
	IncludeInactive bool
	Limit           int
	Offset          int
}

// Repository is the persistence boundary of the classification domain.
// Storage schema and migrations live behind it. All methods operate on
// active rows unless stated otherwise; deactivation is the only "delete".
type Repository interface {
	// Instruments
	GetInstrument(ctx context.Context, id int64) (*FinancialInstrument, error)
	GetInstrumentByCode(ctx context.Context, codigo string) (*FinancialInstrument, error)
	CreateInstrument(ctx context.Context, inst *FinancialInstrument) error
	UpdateInstrument(ctx context.Context, inst *FinancialInstrument) error
	InstrumentCodeExists(ctx context.Context, codigo string) (bool, error)
	ListInstruments(ctx context.Context, search string) ([]*FinancialInstrument, error)

	// Classification records
	CreateRecord(ctx context.Context, rec *TaxClassificationRecord) error
	GetRecord(ctx context.Context, id int64) (*TaxClassificationRecord, error)
	UpdateRecord(ctx context.Context, rec *TaxClassificationRecord) error
	DeactivateRecord(ctx context.Context, id int64) error
	ListRecords(ctx context.Context, filter RecordFilter) ([]*TaxClassificationRecord, error)

	// CountRecords returns how many records match the filter, ignoring
	// Limit/Offset. Listings use it for pagination totals.
	CountRecords(ctx context.Context, filter RecordFilter) (int, error)

	// ActiveRecordExists probes the natural key (instrument, report date,
	// declaration number) among active records. It is the fast-path
	// duplicate check; the storage uniqueness constraint stays
	// authoritative under concurrent batches.
	ActiveRecordExists(ctx context.Context, instrumentID int64, fechaInforme time.Time, numeroDJ string) (bool, error)

	// Ingestion batches
	CreateBatch(ctx context.Context, batch *IngestionBatch) error
	FinalizeBatch(ctx context.Context, batch *IngestionBatch) error
	GetBatch(ctx context.Context, id string) (*IngestionBatch, error)
	PurgeBatchesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
