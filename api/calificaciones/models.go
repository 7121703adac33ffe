package calificaciones

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialInstrument is a catalog entry (share, bond, fund, ...). Codigo is
// the natural key; instruments are soft-deactivated, never deleted.
type FinancialInstrument struct {
	ID            int64     `json:"id"`
	Codigo        string    `json:"codigo_instrumento"`
	Nombre        string    `json:"nombre_instrumento"`
	Tipo          string    `json:"tipo_instrumento"`
	Activo        bool      `json:"activo"`
	FechaCreacion time.Time `json:"fecha_creacion"`
}

// TaxClassificationRecord is the central entity: one tax classification of
// one instrument for one report date and declaration form.
//
// Factores and Montos are indexed containers rather than discrete columns;
// the configured index range decides which entries are meaningful. Monto and
// Factor are the legacy scalar pair kept for backward compatibility.
type TaxClassificationRecord struct {
	ID           int64  `json:"id"`
	InstrumentID int64  `json:"instrumento_id"`
	Codigo       string `json:"codigo_instrumento,omitempty"`

	Monto         decimal.NullDecimal `json:"monto"`
	Factor        decimal.NullDecimal `json:"factor"`
	MetodoIngreso string              `json:"metodo_ingreso"`

	NumeroDJ     string    `json:"numero_dj"`
	FechaInforme time.Time `json:"fecha_informe"`

	// Administrative metadata, informational only
	Secuencia      int                 `json:"secuencia,omitempty"`
	Mercado        string              `json:"mercado,omitempty"`
	AnoEjercicio   int                 `json:"ano_ejercicio,omitempty"`
	TipoSociedad   string              `json:"tipo_sociedad,omitempty"`
	ValorHistorico decimal.NullDecimal `json:"valor_historico,omitempty"`

	Montos   map[int]decimal.Decimal `json:"montos,omitempty"`
	Factores map[int]decimal.Decimal `json:"factores,omitempty"`

	Observaciones     string    `json:"observaciones,omitempty"`
	Activo            bool      `json:"activo"`
	CreadoPor         string    `json:"creado_por,omitempty"`
	FechaCreacion     time.Time `json:"fecha_creacion"`
	FechaModificacion time.Time `json:"fecha_modificacion"`
}

// IngestionBatch is the audit record of one bulk upload run. Field names are
// wire-stable; downstream reporting reads them as-is.
type IngestionBatch struct {
	ID                  string    `json:"id"`
	ArchivoNombre       string    `json:"archivo_nombre"`
	Usuario             string    `json:"usuario"`
	FechaCarga          time.Time `json:"fecha_carga"`
	Estado              string    `json:"estado"`
	RegistrosProcesados int       `json:"registros_procesados"`
	RegistrosExitosos   int       `json:"registros_exitosos"`
	RegistrosFallidos   int       `json:"registros_fallidos"`
	ErroresDetalle      string    `json:"errores_detalle"`
}

// Row is one uploaded tabular row, keyed by column name.
type Row map[string]string

// RowClass is the failure taxonomy for one processed row.
type RowClass string

const (
	ClassMissingField RowClass = "MISSING_FIELD"
	ClassInvalidValue RowClass = "INVALID_VALUE"
	ClassValidation   RowClass = "VALIDATION"
	ClassDuplicate    RowClass = "DUPLICATE"
	ClassIntegrity    RowClass = "INTEGRITY"
	ClassStructural   RowClass = "STRUCTURAL"
)

// RowError is a classified row-level failure. It never escapes the batch;
// the orchestrator records it in the batch error detail.
type RowError struct {
	Class   RowClass
	Message string
}

func (e *RowError) Error() string {
	return e.Message
}

// RowState tracks a row through the ingestion pipeline.
type RowState string

const (
	RowPending   RowState = "PENDING"
	RowResolved  RowState = "RESOLVED"
	RowComputed  RowState = "COMPUTED"
	RowValidated RowState = "VALIDATED"
	RowPersisted RowState = "PERSISTED"
	RowFailed    RowState = "FAILED"
)

// RowOutcome is the final result of one row: either PERSISTED with the new
// record ID, or FAILED with a classification and message.
type RowOutcome struct {
	Ordinal  int      `json:"ordinal"`
	State    RowState `json:"state"`
	Class    RowClass `json:"class,omitempty"`
	Message  string   `json:"message,omitempty"`
	RecordID int64    `json:"record_id,omitempty"`
}
